// Package migration applies versioned SQL migrations to the booking database.
//
// Migration files are embedded in the binary and follow the naming convention
// {version}_{description}.sql (e.g. "001_initial_schema.sql"). Applied versions
// are tracked in the schema_migrations table so every file runs exactly once.
//
// Example usage:
//
//	runner := migration.NewRunner(db, migration.Files(), logger)
//	if err := runner.Run(ctx); err != nil {
//		return err
//	}
package migration
