// Package dbutil opens the database behind a connection string.
//
// Supported forms:
//   - a file path, "file:..." or ":memory:" opens a local sqlite database.
//   - "libsql://", "http(s)://" or "ws(s)://" opens a remote libsql database.
//   - "postgres://" or "postgresql://" opens a postgres database through pgx.
package dbutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	DialectSqlite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	switch d {
	case DialectSqlite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	}
	return "unknown"
}

// DB is a *sql.DB that remembers which sql dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Rebind rewrites '?' placeholders into the placeholder style of the
// dialect.
func (db DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}

	var out strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			out.WriteByte('$')
			out.WriteString(strconv.Itoa(n))
			continue
		}
		out.WriteRune(c)
	}
	return out.String()
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Open opens the database named by `dsn` and applies the schema that
// `schema` returns for its dialect.
func Open(ctx context.Context, dsn string, schema func(Dialect) string) (DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return DB{}, wrapOpenDB(fmt.Errorf("a connection string was not specified"))
	}

	var db DB
	var err error
	switch {
	case hasAnyPrefix(dsn, "postgres://", "postgresql://"):
		db, err = openPostgres(dsn)
	case hasAnyPrefix(dsn, "libsql://", "http://", "https://", "ws://", "wss://"):
		db, err = openLibsql(dsn)
	default:
		db, err = openSqlite(dsn)
	}
	if err != nil {
		return DB{}, wrapOpenDB(err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return DB{}, wrapOpenDB(err)
	}

	if schema != nil {
		err = applySchema(ctx, db, schema(db.Dialect))
		if err != nil {
			db.Close()
			return DB{}, err
		}
	}

	return db, nil
}

// not every driver accepts several statements in one exec, so they are
// sent one at a time.
func applySchema(ctx context.Context, db DB, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func openSqlite(path string) (DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return DB{}, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return DB{}, err
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	// a single connection also keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return DB{}, err
	}

	return DB{DB: db, Dialect: DialectSqlite}, nil
}

func openLibsql(url string) (DB, error) {
	db, err := sql.Open("libsql", url)
	if err != nil {
		return DB{}, err
	}
	return DB{DB: db, Dialect: DialectSqlite}, nil
}

func openPostgres(dsn string) (DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return DB{}, err
	}
	db.SetMaxOpenConns(4)
	return DB{DB: db, Dialect: DialectPostgres}, nil
}
