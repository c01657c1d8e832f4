package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"
	"testing/fstest"

	rdstation "github.com/goliatone/go-rdstation"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// SourceLabel identifies these migrations to the host migration runner.
const SourceLabel = "go-rdstation"

const rootPath = "data/sql/migrations"

// Source is the migration directory of one SQL dialect. Postgres files live
// at the root, sqlite files in the sqlite subdirectory.
type Source struct {
	Dialect  string
	Path     string
	FS       fs.FS
	Versions []string
}

// Plan describes what a Register call handed to the runner.
type Plan struct {
	Label   string
	Sources []Source
}

func (p Plan) Dialects() []string {
	out := make([]string, 0, len(p.Sources))
	for _, source := range p.Sources {
		out = append(out, source.Dialect)
	}
	return out
}

type RegisterFunc func(ctx context.Context, source Source) error

// Sources resolves both dialect directories from the embedded tree, or from
// fsys when given. Every version needs an up and a down file, and both
// dialects must carry the same versions.
func Sources(fsys ...fs.FS) ([]Source, error) {
	root := rdstation.GetMigrationsFS()
	if len(fsys) > 0 && fsys[0] != nil {
		root = fsys[0]
	}
	base, basePath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}

	postgresFS, err := topLevel(base)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve postgres directory: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: basePath, FS: postgresFS},
		{Dialect: DialectSQLite, Path: pathJoin(basePath, DialectSQLite), FS: sqliteFS},
	}
	for index := range sources {
		versions, err := Versions(sources[index].FS)
		if err != nil {
			return nil, fmt.Errorf("migrations: %s: %w", sources[index].Dialect, err)
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("migrations: %s directory %q has no migrations", sources[index].Dialect, sources[index].Path)
		}
		sources[index].Versions = versions
	}
	if !slices.Equal(sources[0].Versions, sources[1].Versions) {
		return nil, fmt.Errorf("migrations: dialects drifted: postgres %v, sqlite %v", sources[0].Versions, sources[1].Versions)
	}
	return sources, nil
}

// Versions lists the migration versions in the top level of fsys, sorted.
// A version is the file name without its .up.sql or .down.sql suffix.
func Versions(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	halves := map[string]int{}
	for _, name := range matches {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			halves[strings.TrimSuffix(name, ".up.sql")] |= 1
		case strings.HasSuffix(name, ".down.sql"):
			halves[strings.TrimSuffix(name, ".down.sql")] |= 2
		default:
			return nil, fmt.Errorf("migration %q must end in .up.sql or .down.sql", name)
		}
	}
	versions := make([]string, 0, len(halves))
	for version, mask := range halves {
		if mask != 3 {
			return nil, fmt.Errorf("migration %q needs both an up and a down file", version)
		}
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}

// Register hands the sources of the requested dialects to fn, or every
// dialect when none is named.
func Register(ctx context.Context, fn RegisterFunc, dialects ...string) (Plan, error) {
	plan := Plan{Label: SourceLabel}
	if fn == nil {
		return plan, fmt.Errorf("migrations: register function is required")
	}
	wanted, err := normalizeDialects(dialects)
	if err != nil {
		return plan, err
	}
	sources, err := Sources()
	if err != nil {
		return plan, err
	}
	for _, source := range sources {
		if len(wanted) > 0 && !slices.Contains(wanted, source.Dialect) {
			continue
		}
		if err := fn(ctx, source); err != nil {
			return plan, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
		plan.Sources = append(plan.Sources, source)
	}
	return plan, nil
}

func normalizeDialects(dialects []string) ([]string, error) {
	out := make([]string, 0, len(dialects))
	for _, dialect := range dialects {
		dialect = strings.TrimSpace(strings.ToLower(dialect))
		switch dialect {
		case "":
			continue
		case DialectPostgres, DialectSQLite:
		default:
			return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
		}
		if !slices.Contains(out, dialect) {
			out = append(out, dialect)
		}
	}
	return out, nil
}

func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, rootPath); err == nil && info.IsDir() {
		sub, err := fs.Sub(root, rootPath)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
		}
		return sub, rootPath, nil
	}
	if matches, err := fs.Glob(root, "*.sql"); err == nil && len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", rootPath)
}

// topLevel copies the root .sql files of fsys. Migration runners walk their
// sources recursively, so the postgres source must not expose sqlite/.
func topLevel(fsys fs.FS) (fs.FS, error) {
	matches, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	files := fstest.MapFS{}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		files[name] = &fstest.MapFile{Data: data, Mode: 0o644}
	}
	return files, nil
}

func pathJoin(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
