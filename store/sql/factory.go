package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	rdmigrations "github.com/goliatone/go-rdstation/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// DatabaseConfig satisfies the go-persistence-bun config contract.
type DatabaseConfig struct {
	Driver         string
	Server         string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c DatabaseConfig) GetDebug() bool   { return c.Debug }
func (c DatabaseConfig) GetDriver() string { return c.Driver }
func (c DatabaseConfig) GetServer() string { return c.Server }

func (c DatabaseConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c DatabaseConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "go-rdstation"
	}
	return c.OtelIdentifier
}

// OpenPostgres connects through lib/pq and applies the postgres migrations.
func OpenPostgres(ctx context.Context, dsn string) (*persistence.Client, error) {
	return open(ctx, DatabaseConfig{Driver: "postgres", Server: dsn}, pgdialect.New(), rdmigrations.DialectPostgres)
}

// OpenSQLite connects through go-sqlite3 and applies the sqlite migrations.
func OpenSQLite(ctx context.Context, dsn string) (*persistence.Client, error) {
	return open(ctx, DatabaseConfig{Driver: "sqlite3", Server: dsn}, sqlitedialect.New(), rdmigrations.DialectSQLite)
}

func open(ctx context.Context, cfg DatabaseConfig, dialect schema.Dialect, migrationDialect string) (*persistence.Client, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	sqlDB, err := sql.Open(cfg.Driver, cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", cfg.Driver, err)
	}
	if migrationDialect == rdmigrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: persistence client: %w", err)
	}

	_, err = rdmigrations.Register(ctx, func(_ context.Context, source rdmigrations.Source) error {
		client.RegisterSQLMigrations(source.FS)
		return nil
	}, migrationDialect)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

// NewActivityStoreFromPersistence accepts a *bun.DB or anything exposing
// DB() *bun.DB, such as a go-persistence-bun client.
func NewActivityStoreFromPersistence(client any) (*ActivityStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewActivityStore(db)
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
