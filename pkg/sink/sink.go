// Package sink persists a job's results: the whole collection as one
// document, and every new record as its own row.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scrapejob/pkg/db"
	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
	"scrapejob/pkg/merge"
)

// Sink writes to a document store and a row store. The two writes are
// independent; nothing reconciles a collection written without its rows.
type Sink struct {
	docs  docstore.Store
	rows  db.RowStore
	table string
}

// ErrNoRowStore is returned by PutRecord when the Sink has no row store.
var ErrNoRowStore = errors.New("no row store configured")

// New returns a Sink writing rows into table. rows may be nil, in which case
// no rows are written and PutRecords reports no outcomes.
func New(docs docstore.Store, rows db.RowStore, table string) *Sink {
	return &Sink{docs: docs, rows: rows, table: table}
}

// Outcome is the result of writing one record to the row store.
type Outcome struct {
	ID  domain.ID
	Err error
}

// WriteCollection stores c at key, replacing the previous document. version
// is the token the collection was loaded at; existed tells whether a document
// was there. The write fails with docstore.ErrVersionConflict if another
// writer got in between.
func (s *Sink) WriteCollection(ctx context.Context, key string, c domain.Collection, version string, existed bool) (string, error) {
	body, err := merge.Encode(c)
	if err != nil {
		return "", fmt.Errorf("encode collection: %w", err)
	}

	opts := docstore.PutOptions{IfVersion: version}
	if !existed {
		opts = docstore.PutOptions{IfAbsent: true}
	}

	v, err := s.docs.Put(ctx, key, body, opts)
	if err != nil {
		return "", fmt.Errorf("write collection %s: %w", key, err)
	}

	slog.InfoContext(ctx, "collection written", "key", key, "records", len(c), "bytes", len(body))
	return v, nil
}

// PutRecord stores one record under its id, overwriting any previous row.
func (s *Sink) PutRecord(ctx context.Context, rec domain.Record) error {
	if s.rows == nil {
		return ErrNoRowStore
	}
	return s.rows.PutRecord(ctx, s.table, rec)
}

// PutRecords writes every record, continuing past failures, and reports one
// outcome per record in input order. Without a row store nothing is attempted
// and the result is empty.
func (s *Sink) PutRecords(ctx context.Context, recs []domain.Record) []Outcome {
	if s.rows == nil {
		slog.DebugContext(ctx, "no row store, skipping rows", "records", len(recs))
		return nil
	}
	out := make([]Outcome, 0, len(recs))
	for _, rec := range recs {
		err := s.PutRecord(ctx, rec)
		if err != nil {
			slog.WarnContext(ctx, "failed to put record", "table", s.table, "id", rec.ID(), "err", err)
		}
		out = append(out, Outcome{ID: rec.ID(), Err: err})
	}
	return out
}
