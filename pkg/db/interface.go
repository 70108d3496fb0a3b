package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"scrapejob/pkg/domain"
)

// ErrInvalidTable is returned for table names that cannot be used safely.
var ErrInvalidTable = errors.New("invalid table name")

// ErrMissingID is returned when a record without an id is written.
var ErrMissingID = errors.New("record has no id")

// RowStore writes individual records addressed by their id. Writing an id that
// already exists overwrites it silently.
type RowStore interface {
	PutRecord(ctx context.Context, table string, rec domain.Record) error
	Close() error
}

// DBProvider is an interface for database clients that provide access to a sql.DB handle.
// This allows both PostgresClient and SupabaseClient to be used interchangeably.
type DBProvider interface {
	DB() *sql.DB
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ValidateTable checks a table name before it is interpolated into a query.
func ValidateTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}

func checkRecord(table string, rec domain.Record) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	if rec.ID() == "" {
		return ErrMissingID
	}
	return nil
}
