package rdstation

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var activitySchema embed.FS

// GetMigrationsFS exposes the activity ledger schema. Postgres files sit in
// data/sql/migrations and their sqlite twins in the sqlite subdirectory; the
// migrations package checks the two stay in step.
func GetMigrationsFS() fs.FS {
	return activitySchema
}
