package merge

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
)

type failingStore struct {
	err error
}

func (f failingStore) Get(ctx context.Context, key string) (*docstore.Object, error) {
	return nil, f.err
}

func (f failingStore) Put(ctx context.Context, key string, body []byte, opts docstore.PutOptions) (string, error) {
	return "", f.err
}

func TestLoadOrInit_NotFound(t *testing.T) {
	loaded, err := LoadOrInit(context.Background(), docstore.NewMemory(), "data/bloomberg.json")
	require.NoError(t, err)
	require.False(t, loaded.Existed)
	require.Empty(t, loaded.Collection)
	require.NotNil(t, loaded.Collection)
	require.Empty(t, loaded.Version)
}

func TestLoadOrInit_Existing(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	body := `[{"id":"a-result0","content":"X"},{"id":"a-result1","content":"Y"},{"id":"a-result2","content":"Z"}]`
	v, err := store.Put(ctx, "k", []byte(body), docstore.PutOptions{})
	require.NoError(t, err)

	loaded, err := LoadOrInit(ctx, store, "k")
	require.NoError(t, err)
	require.True(t, loaded.Existed)
	require.Equal(t, v, loaded.Version)
	require.Len(t, loaded.Collection, 3)
	require.Equal(t, "Y", loaded.Collection[1]["content"])
}

func TestLoadOrInit_OtherErrorsPropagate(t *testing.T) {
	denied := errors.New("access denied")
	_, err := LoadOrInit(context.Background(), failingStore{err: denied}, "k")
	require.ErrorIs(t, err, denied)
}

func TestLoadOrInit_Malformed(t *testing.T) {
	ctx := context.Background()
	for _, body := range []string{`{"id":"x"}`, `not json`, `null`, `[1,2]`} {
		store := docstore.NewMemory()
		_, err := store.Put(ctx, "k", []byte(body), docstore.PutOptions{})
		require.NoError(t, err)

		_, err = LoadOrInit(ctx, store, "k")
		require.ErrorIs(t, err, ErrMalformed, body)
	}
}

func TestAppend(t *testing.T) {
	c := domain.Collection{{"id": "1"}, {"id": "2"}, {"id": "3"}}
	recs := []domain.Record{{"id": "4"}, {"id": "5"}}

	got := Append(c, recs)
	require.Len(t, got, len(c)+len(recs))
	if diff := cmp.Diff(c, got[:len(c)]); diff != "" {
		t.Fatalf("prefix changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(domain.Collection(recs), got[len(c):]); diff != "" {
		t.Fatalf("suffix mismatch (-want +got):\n%s", diff)
	}

	// appending to a full-capacity slice must not alias the input
	got[0] = domain.Record{"id": "changed"}
	require.Equal(t, "1", c[0]["id"])
}

func TestAppend_Empty(t *testing.T) {
	require.Empty(t, Append(nil, nil))
	require.Len(t, Append(domain.Collection{{"id": "1"}}, nil), 1)
}

func TestEncodeDecode(t *testing.T) {
	body, err := Encode(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))

	c := domain.Collection{{"id": "1", "content": "X"}}
	body, err = Encode(c)
	require.NoError(t, err)
	require.Equal(t, `[{"content":"X","id":"1"}]`, string(body))

	back, err := Decode(body)
	require.NoError(t, err)
	require.Equal(t, c, back)
}
