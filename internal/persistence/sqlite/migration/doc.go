// Package migration provides a versioned schema migration system for SQLite.
//
// Migrations are SQL files named {version}_{description}.sql (for example
// "001_initial_schema.sql") read from an fs.FS, which lets the service embed
// them in the binary. Applied versions are tracked in a schema_migrations
// table and each migration executes inside its own transaction, rolling back
// on failure so a broken migration never leaves the schema half applied.
package migration
