package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/voiscan/appindexor/internal/db"
	"github.com/voiscan/appindexor/internal/logger"
)

//go:embed 001_schema.sql
var mig001 string

// RunMigrations runs all migrations for the indexer database.
func RunMigrations(dbPath string) error {
	return db.RunMigrations(dbPath, all())
}

// RunMigrationsDB runs all migrations on an already-open database.
func RunMigrationsDB(log *logger.Logger, database *sql.DB) error {
	return db.RunMigrationsDB(log, database, all())
}

func all() []db.Migration {
	return []db.Migration{
		{
			ID:  "001_schema.sql",
			SQL: mig001,
		},
	}
}
