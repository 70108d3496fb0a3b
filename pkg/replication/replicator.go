// Package replication copies a job's stored collection into a SQL table, so
// the history can be queried without going through the document store.
package replication

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"scrapejob/pkg/db"
	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
	"scrapejob/pkg/merge"
)

// SQL dialects understood by the Replicator.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Config wires the replication dependencies.
type Config struct {
	Docs    docstore.Store
	SQL     db.DBProvider
	Dialect string

	// BatchSize and Workers default to 100 and 5.
	BatchSize int
	Workers   int
}

// Replicator copies collections from a document store into SQL tables.
type Replicator struct {
	docs      docstore.Store
	sql       db.DBProvider
	dialect   string
	batchSize int
	workers   int
}

// Result counts what a replication run did.
type Result struct {
	Processed int
	Inserted  int
}

func NewReplicator(cfg Config) (*Replicator, error) {
	if cfg.Docs == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if cfg.SQL == nil || cfg.SQL.DB() == nil {
		return nil, fmt.Errorf("sql database is required")
	}
	switch cfg.Dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unknown sql dialect %q", cfg.Dialect)
	}
	r := &Replicator{
		docs:      cfg.Docs,
		sql:       cfg.SQL,
		dialect:   cfg.Dialect,
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
	}
	if r.batchSize <= 0 {
		r.batchSize = 100
	}
	if r.workers <= 0 {
		r.workers = 5
	}
	return r, nil
}

// ReplicateCollection reads the collection at key and inserts every record
// whose id is not yet in table. Existing rows are left untouched, so running
// it again only adds what was appended since.
func (r *Replicator) ReplicateCollection(ctx context.Context, key, table string) (Result, error) {
	if err := db.ValidateTable(table); err != nil {
		return Result{}, err
	}
	if err := r.ensureSchema(ctx, table); err != nil {
		return Result{}, err
	}

	loaded, err := merge.LoadOrInit(ctx, r.docs, key)
	if err != nil {
		return Result{}, err
	}
	if !loaded.Existed {
		return Result{}, fmt.Errorf("collection %s: %w", key, docstore.ErrNotFound)
	}

	slog.InfoContext(ctx, "replicating collection", "key", key, "table", table, "records", len(loaded.Collection))

	res, err := r.processBatches(ctx, table, loaded.Collection)
	if err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "replication complete", "key", key, "processed", res.Processed, "inserted", res.Inserted)
	return res, nil
}

func (r *Replicator) processBatches(ctx context.Context, table string, c domain.Collection) (Result, error) {
	type batchJob struct {
		batch      domain.Collection
		start, end int
	}
	type batchResult struct {
		processed int
		inserted  int
		err       error
	}

	numBatches := (len(c) + r.batchSize - 1) / r.batchSize
	jobs := make(chan batchJob, numBatches)
	results := make(chan batchResult, numBatches)

	for start := 0; start < len(c); start += r.batchSize {
		end := min(start+r.batchSize, len(c))
		jobs <- batchJob{batch: c[start:end], start: start, end: end}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				inserted, err := r.processBatch(ctx, table, job.batch)
				if err != nil {
					err = fmt.Errorf("batch [%d:%d]: %w", job.start, job.end, err)
				}
				results <- batchResult{processed: len(job.batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var res Result
	var firstErr error
	for br := range results {
		if br.err != nil {
			if firstErr == nil {
				firstErr = br.err
			}
			continue
		}
		res.Processed += br.processed
		res.Inserted += br.inserted
	}
	return res, firstErr
}

// processBatch inserts the records of batch that table does not hold yet.
func (r *Replicator) processBatch(ctx context.Context, table string, batch domain.Collection) (int, error) {
	existing, err := r.existingIDs(ctx, table, batch)
	if err != nil {
		return 0, err
	}

	toInsert := make(domain.Collection, 0, len(batch))
	for _, rec := range batch {
		id := rec.ID()
		if id == "" || existing[id] {
			continue
		}
		// the same id may appear twice in one collection
		existing[id] = true
		toInsert = append(toInsert, rec)
	}
	if len(toInsert) == 0 {
		return 0, nil
	}

	if err := r.insertTx(ctx, table, toInsert); err != nil {
		return 0, err
	}
	return len(toInsert), nil
}

func (r *Replicator) ensureSchema(ctx context.Context, table string) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + quoteIdent(table) + ` (
  id TEXT PRIMARY KEY,
  searched_on TEXT NOT NULL DEFAULT '',
  payload TEXT NOT NULL
)`
	if _, err := r.sql.DB().ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (r *Replicator) existingIDs(ctx context.Context, table string, batch domain.Collection) (map[domain.ID]bool, error) {
	set := make(map[domain.ID]bool)
	args := make([]any, 0, len(batch))
	for _, rec := range batch {
		if id := rec.ID(); id != "" {
			args = append(args, string(id))
		}
	}
	if len(args) == 0 {
		return set, nil
	}

	marks := make([]string, len(args))
	for i := range args {
		marks[i] = r.placeholder(i + 1)
	}
	query := `SELECT id FROM ` + quoteIdent(table) + ` WHERE id IN (` + strings.Join(marks, ", ") + `)`

	rows, err := r.sql.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		set[domain.ID(id)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return set, nil
}

func (r *Replicator) insertTx(ctx context.Context, table string, batch domain.Collection) error {
	tx, err := r.sql.DB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (id, searched_on, payload) VALUES (%s, %s, %s) ON CONFLICT (id) DO NOTHING`,
		quoteIdent(table), r.placeholder(1), r.placeholder(2), r.placeholder(3))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range batch {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID(), err)
		}
		if _, err := stmt.ExecContext(ctx, string(rec.ID()), rec[domain.FieldSearchedOn], string(payload)); err != nil {
			return fmt.Errorf("insert record id=%q: %w", rec.ID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *Replicator) placeholder(i int) string {
	if r.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func quoteIdent(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}
