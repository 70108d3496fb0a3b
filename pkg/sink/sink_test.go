package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"scrapejob/pkg/db"
	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
	"scrapejob/pkg/merge"
)

func records(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{"content": "c"}
	}
	return domain.Stamp(out, "2024-01-01 00:00:00")
}

func TestWriteCollection_CreatesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	s := New(docs, nil, "news")

	v1, err := s.WriteCollection(ctx, "data/bloomberg.json", domain.Collection(records(2)), "", false)
	require.NoError(t, err)

	loaded, err := merge.LoadOrInit(ctx, docs, "data/bloomberg.json")
	require.NoError(t, err)
	require.Len(t, loaded.Collection, 2)

	_, err = s.WriteCollection(ctx, "data/bloomberg.json", domain.Collection(records(1)), v1, true)
	require.NoError(t, err)

	loaded, err = merge.LoadOrInit(ctx, docs, "data/bloomberg.json")
	require.NoError(t, err)
	require.Len(t, loaded.Collection, 1)
}

func TestWriteCollection_Conflict(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemory()
	s := New(docs, nil, "news")

	_, err := s.WriteCollection(ctx, "k", domain.Collection{}, "", false)
	require.NoError(t, err)

	// a second writer that also saw "absent" loses
	_, err = s.WriteCollection(ctx, "k", domain.Collection(records(1)), "", false)
	require.ErrorIs(t, err, docstore.ErrVersionConflict)
}

func TestPutRecords_BestEffort(t *testing.T) {
	ctx := context.Background()
	rows := db.NewMemoryStore()
	recs := records(3)
	boom := errors.New("throttled")
	rows.FailIDs = map[domain.ID]error{recs[1].ID(): boom}

	out := New(docstore.NewMemory(), rows, "news").PutRecords(ctx, recs)

	require.Len(t, out, 3)
	require.NoError(t, out[0].Err)
	require.ErrorIs(t, out[1].Err, boom)
	require.NoError(t, out[2].Err)
	require.Equal(t, recs[1].ID(), out[1].ID)
	require.Equal(t, 2, rows.Len("news"))
}

func TestPutRecord_NoRowStore(t *testing.T) {
	s := New(docstore.NewMemory(), nil, "news")
	require.ErrorIs(t, s.PutRecord(context.Background(), records(1)[0]), ErrNoRowStore)
	require.Empty(t, s.PutRecords(context.Background(), records(3)))
}
