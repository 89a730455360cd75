package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// Dialect carries the DDL and sentinel query for one SQL backend.
type Dialect struct {
	Name string
	// SentinelQuery returns a single boolean: true when the schema exists.
	SentinelQuery string
	Steps         []migrationStep
}

// Postgres is the DDL set for PostgreSQL.
var Postgres = Dialect{
	Name:          "postgres",
	SentinelQuery: "SELECT to_regclass('public.requirements') IS NOT NULL",
	Steps: []migrationStep{
		{
			Name: "create_table_requirements",
			SQL: `CREATE TABLE IF NOT EXISTS requirements (
  id             UUID        PRIMARY KEY,
  file_reference TEXT        NULL,
  text           TEXT        NOT NULL CHECK (text <> ''),
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
		},
		{
			Name: "create_index_requirements_created_at",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_requirements_created_at ON requirements (created_at);`,
		},
	},
}

// SQLite is the DDL set for SQLite.
var SQLite = Dialect{
	Name:          "sqlite",
	SentinelQuery: "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'requirements'",
	Steps: []migrationStep{
		{
			Name: "create_table_requirements",
			SQL: `CREATE TABLE IF NOT EXISTS requirements (
  id             TEXT     PRIMARY KEY,
  file_reference TEXT     NULL,
  text           TEXT     NOT NULL CHECK (text <> ''),
  created_at     DATETIME NOT NULL
);`,
		},
		{
			Name: "create_index_requirements_created_at",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_requirements_created_at ON requirements (created_at);`,
		},
	},
}

// ForDriver returns the dialect for a database driver name.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// EnsureMigrated checks if the 'requirements' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, d Dialect, log *zap.Logger) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("dialect", d.Name))

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	if err := db.QueryRowContext(ctx, d.SentinelQuery).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("detail", "schema already exists, skipping migration"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	for _, step := range d.Steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
