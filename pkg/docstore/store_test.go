package docstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// exerciseStore runs the contract every backend must honor.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "data/airfares.json")
	require.ErrorIs(t, err, ErrNotFound)

	// a version check against a missing document fails
	_, err = s.Put(ctx, "data/airfares.json", []byte(`[]`), PutOptions{IfVersion: "nope"})
	require.ErrorIs(t, err, ErrVersionConflict)

	v1, err := s.Put(ctx, "data/airfares.json", []byte(`[]`), PutOptions{IfAbsent: true})
	require.NoError(t, err)
	require.NotEmpty(t, v1)

	_, err = s.Put(ctx, "data/airfares.json", []byte(`[{}]`), PutOptions{IfAbsent: true})
	require.ErrorIs(t, err, ErrVersionConflict)

	obj, err := s.Get(ctx, "data/airfares.json")
	require.NoError(t, err)
	require.Equal(t, `[]`, string(obj.Body))
	require.Equal(t, v1, obj.Version)

	v2, err := s.Put(ctx, "data/airfares.json", []byte(`[{"id":"a"}]`), PutOptions{IfVersion: v1})
	require.NoError(t, err)
	require.NotEqual(t, v1, v2)

	// the old version is stale now
	_, err = s.Put(ctx, "data/airfares.json", []byte(`[{"id":"b"}]`), PutOptions{IfVersion: v1})
	require.ErrorIs(t, err, ErrVersionConflict)

	// unconditional writes always win
	_, err = s.Put(ctx, "data/airfares.json", []byte(`[{"id":"c"}]`), PutOptions{})
	require.NoError(t, err)
	obj, err = s.Get(ctx, "data/airfares.json")
	require.NoError(t, err)
	require.Equal(t, `[{"id":"c"}]`, string(obj.Body))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	require.Equal(t, 3, m.Puts())
}

func TestFile(t *testing.T) {
	exerciseStore(t, NewFile(t.TempDir()))
}

func TestFile_RejectsDirectoryKeys(t *testing.T) {
	f := NewFile(t.TempDir())
	_, err := f.Put(context.Background(), "data/", []byte(`[]`), PutOptions{})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrVersionConflict))
}

func TestFile_KeysStayInsideRoot(t *testing.T) {
	f := NewFile("/srv/docs")
	p, err := f.path("../../etc/passwd")
	require.NoError(t, err)
	require.Equal(t, "/srv/docs/etc/passwd", p)
}
