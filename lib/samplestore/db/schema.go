package db

import (
	_ "embed"

	"poolwatch-backend/lib/dbutil"
)

//go:embed schema.sqlite.sql
var SqliteSchema string

//go:embed schema.postgres.sql
var PostgresSchema string

// Schema returns the schema for the given dialect.
func Schema(dialect dbutil.Dialect) string {
	if dialect == dbutil.DialectPostgres {
		return PostgresSchema
	}
	return SqliteSchema
}
