package db

import (
	"context"
	"sync"

	"scrapejob/pkg/domain"
)

// MemoryStore keeps records in process memory. FailIDs makes PutRecord fail
// for the listed ids, which tests use to exercise partial failures.
type MemoryStore struct {
	mu      sync.Mutex
	tables  map[string]map[domain.ID]domain.Record
	puts    int
	FailIDs map[domain.ID]error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[domain.ID]domain.Record)}
}

// PutRecord implements RowStore.
func (m *MemoryStore) PutRecord(ctx context.Context, table string, rec domain.Record) error {
	if err := checkRecord(table, rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailIDs[rec.ID()]; ok {
		return err
	}
	t, ok := m.tables[table]
	if !ok {
		t = make(map[domain.ID]domain.Record)
		m.tables[table] = t
	}
	t[rec.ID()] = rec.Clone()
	m.puts++
	return nil
}

// Get returns the record stored under id, if any.
func (m *MemoryStore) Get(table string, id domain.ID) (domain.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tables[table][id]
	return rec, ok
}

// Len reports how many distinct ids table holds.
func (m *MemoryStore) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

// Puts reports how many writes succeeded in total.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Close implements RowStore.
func (m *MemoryStore) Close() error {
	return nil
}
