package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapejob/pkg/db"
	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
	"scrapejob/pkg/merge"
)

func seed(t *testing.T, docs docstore.Store, key string, n int) domain.Collection {
	t.Helper()
	recs := make([]domain.Record, n)
	for i := range recs {
		recs[i] = domain.Record{"content": fmt.Sprintf("headline %d", i)}
	}
	c := domain.Collection(domain.Stamp(recs, "2024-01-02 03:04:05"))
	body, err := merge.Encode(c)
	require.NoError(t, err)
	_, err = docs.Put(context.Background(), key, body, docstore.PutOptions{})
	require.NoError(t, err)
	return c
}

func openSQLite(t *testing.T) *db.SQLiteClient {
	t.Helper()
	c, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func count(t *testing.T, c *db.SQLiteClient, table string) int {
	t.Helper()
	var n int
	require.NoError(t, c.DB().QueryRow(`SELECT COUNT(*) FROM `+quoteIdent(table)).Scan(&n))
	return n
}

func TestReplicateCollection(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	sqlite := openSQLite(t)
	c := seed(t, docs, "data/bloomberg.json", 23)

	r, err := NewReplicator(Config{Docs: docs, SQL: sqlite, Dialect: DialectSQLite, BatchSize: 5, Workers: 3})
	require.NoError(t, err)

	res, err := r.ReplicateCollection(ctx, "data/bloomberg.json", "news_export")
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 23, Inserted: 23}, res)
	assert.Equal(t, 23, count(t, sqlite, "news_export"))

	var payload string
	require.NoError(t, sqlite.DB().QueryRow(`SELECT payload FROM "news_export" WHERE id = ?`, string(c[7].ID())).Scan(&payload))
	var rec domain.Record
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))
	assert.Equal(t, c[7], rec)

	// a second pass only adds what was appended
	seed(t, docs, "data/bloomberg.json", 25)
	res, err = r.ReplicateCollection(ctx, "data/bloomberg.json", "news_export")
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 25, Inserted: 2}, res)
	assert.Equal(t, 25, count(t, sqlite, "news_export"))
}

func TestReplicateCollection_DuplicateIDs(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	sqlite := openSQLite(t)

	c := domain.Collection{
		{"id": "t-result0", "searched_on": "t", "content": "a"},
		{"id": "t-result0", "searched_on": "t", "content": "b"},
		{"content": "no id"},
	}
	body, err := merge.Encode(c)
	require.NoError(t, err)
	_, err = docs.Put(ctx, "k", body, docstore.PutOptions{})
	require.NoError(t, err)

	r, err := NewReplicator(Config{Docs: docs, SQL: sqlite, Dialect: DialectSQLite})
	require.NoError(t, err)
	res, err := r.ReplicateCollection(ctx, "k", "dups")
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 3, Inserted: 1}, res)
}

func TestReplicateCollection_MissingDocument(t *testing.T) {
	r, err := NewReplicator(Config{Docs: docstore.NewMemory(), SQL: openSQLite(t), Dialect: DialectSQLite})
	require.NoError(t, err)

	_, err = r.ReplicateCollection(context.Background(), "absent.json", "t")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestReplicateCollection_InvalidTable(t *testing.T) {
	r, err := NewReplicator(Config{Docs: docstore.NewMemory(), SQL: openSQLite(t), Dialect: DialectSQLite})
	require.NoError(t, err)

	_, err = r.ReplicateCollection(context.Background(), "k", "x; drop")
	require.ErrorIs(t, err, db.ErrInvalidTable)
}

func TestNewReplicator_Validation(t *testing.T) {
	sqlite := openSQLite(t)
	_, err := NewReplicator(Config{SQL: sqlite, Dialect: DialectSQLite})
	require.Error(t, err)
	_, err = NewReplicator(Config{Docs: docstore.NewMemory(), Dialect: DialectSQLite})
	require.Error(t, err)
	_, err = NewReplicator(Config{Docs: docstore.NewMemory(), SQL: sqlite, Dialect: "oracle"})
	require.Error(t, err)
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", (&Replicator{dialect: DialectPostgres}).placeholder(3))
	assert.Equal(t, "?", (&Replicator{dialect: DialectSQLite}).placeholder(3))
}
