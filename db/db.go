// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect names the SQL backend behind a DB.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB is a connection pool that knows which dialect it speaks.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultBusyTimeout is the SQLite lock wait, in milliseconds, used when the
// DSN does not set one.
const DefaultBusyTimeout = 10000

// Open connects to the database and verifies the connection.
// dbType is "postgres" or "sqlite"; empty defaults to sqlite.
// SQLite DSNs are passed through SQLiteDSN first.
func Open(dbType, dsn string) (*DB, error) {
	dialect, err := ParseDialect(dbType)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite {
		if dsn, err = SQLiteDSN(dsn); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// SQLiteDSN returns dsn with the options the schema and the roll locking
// depend on: _txlock=immediate, foreign_keys on, and a busy timeout.
// A weaker _txlock or foreign_keys setting is overridden; an existing
// busy_timeout and any other options are kept.
func SQLiteDSN(dsn string) (string, error) {
	path, rawQuery, _ := strings.Cut(dsn, "?")
	if path == "" {
		return "", errors.New("sqlite DSN has no database path")
	}

	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid sqlite DSN options: %w", err)
	}

	if lock := q.Get("_txlock"); lock != "immediate" && lock != "exclusive" {
		q.Set("_txlock", "immediate")
	}

	var pragmas []string
	hasTimeout := false
	for _, p := range q["_pragma"] {
		name := strings.ToLower(strings.TrimSpace(p))
		if strings.HasPrefix(name, "foreign_keys") {
			continue
		}
		if strings.HasPrefix(name, "busy_timeout") {
			hasTimeout = true
		}
		pragmas = append(pragmas, p)
	}
	if !hasTimeout {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", DefaultBusyTimeout))
	}
	q["_pragma"] = append(pragmas, "foreign_keys(1)")

	return path + "?" + q.Encode(), nil
}

// ParseDialect validates a database type name.
func ParseDialect(dbType string) (Dialect, error) {
	switch Dialect(dbType) {
	case "", SQLite:
		return SQLite, nil
	case Postgres:
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

// ForUpdate returns the row-locking suffix for SELECT statements.
// SQLite has no row locks; its writers are serialized by BEGIN IMMEDIATE
// (_txlock=immediate, which Open always sets), covering the same
// read-then-write window.
func (d *DB) ForUpdate() string {
	if d.Dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d *DB) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure from either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// extended codes disabled
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}

	return false
}
