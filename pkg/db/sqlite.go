package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"scrapejob/pkg/domain"
)

// SQLiteClient stores records in a local SQLite file, for development runs
// without cloud credentials.
type SQLiteClient struct {
	db     *sql.DB
	tables tableSet
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteClient{db: db}, nil
}

// DB exposes the underlying handle.
func (c *SQLiteClient) DB() *sql.DB {
	return c.db
}

// PutRecord implements RowStore.
func (c *SQLiteClient) PutRecord(ctx context.Context, table string, rec domain.Record) error {
	if err := checkRecord(table, rec); err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID(), err)
	}

	name := quoteIdent(table)
	ddl := `CREATE TABLE IF NOT EXISTS ` + name + ` (
		id TEXT PRIMARY KEY,
		searched_on TEXT NOT NULL,
		payload TEXT NOT NULL
	)`
	if err := c.tables.ensure(ctx, c.db, table, ddl); err != nil {
		return err
	}

	q := `INSERT OR REPLACE INTO ` + name + ` (id, searched_on, payload) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, string(rec.ID()), rec[domain.FieldSearchedOn], string(payload)); err != nil {
		return fmt.Errorf("upsert %s into %s: %w", rec.ID(), table, err)
	}
	return nil
}

// Close closes the database.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}
