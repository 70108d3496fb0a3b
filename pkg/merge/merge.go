// Package merge loads a job's persisted collection and extends it with new records.
package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"scrapejob/pkg/docstore"
	"scrapejob/pkg/domain"
)

// ErrMalformed is returned when the stored document is not a JSON array of records.
var ErrMalformed = errors.New("malformed collection document")

// Loaded is a collection as read from the document store.
type Loaded struct {
	Collection domain.Collection
	// Existed is false when the document was absent and an empty collection
	// was started instead.
	Existed bool
	// Version is the store's version token, empty when the document was absent.
	Version string
}

// LoadOrInit reads the collection at key. A missing document yields an empty
// collection; every other store error is returned unchanged in meaning.
func LoadOrInit(ctx context.Context, store docstore.Store, key string) (*Loaded, error) {
	obj, err := store.Get(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		slog.InfoContext(ctx, "collection not found, starting empty", "key", key)
		return &Loaded{Collection: domain.Collection{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", key, err)
	}

	c, err := Decode(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", key, err)
	}

	slog.DebugContext(ctx, "collection loaded", "key", key, "records", len(c), "version", obj.Version)
	return &Loaded{Collection: c, Existed: true, Version: obj.Version}, nil
}

// Decode parses a stored collection document.
func Decode(body []byte) (domain.Collection, error) {
	var c domain.Collection
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// "null" decodes to a nil slice without error
	if c == nil {
		return nil, fmt.Errorf("%w: document is not an array", ErrMalformed)
	}
	return c, nil
}

// Encode serializes a collection as a JSON array.
func Encode(c domain.Collection) ([]byte, error) {
	if c == nil {
		c = domain.Collection{}
	}
	return json.Marshal(c)
}

// Append returns c extended with recs in order. Neither input is modified and
// no deduplication happens.
func Append(c domain.Collection, recs []domain.Record) domain.Collection {
	out := make(domain.Collection, 0, len(c)+len(recs))
	out = append(out, c...)
	out = append(out, recs...)
	return out
}
