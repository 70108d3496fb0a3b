package docstore

import (
	"context"
	"strconv"
	"sync"
)

// Memory is an in-process Store. Conditional writes are atomic.
type Memory struct {
	mu      sync.Mutex
	docs    map[string][]byte
	version map[string]int
	puts    int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string][]byte),
		version: make(map[string]int),
	}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		Body:    append([]byte(nil), body...),
		Version: strconv.Itoa(m.version[key]),
	}, nil
}

// Put implements Store.
func (m *Memory) Put(ctx context.Context, key string, body []byte, opts PutOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.docs[key]
	if opts.IfAbsent && exists {
		return "", ErrVersionConflict
	}
	if opts.IfVersion != "" && (!exists || strconv.Itoa(m.version[key]) != opts.IfVersion) {
		return "", ErrVersionConflict
	}

	m.docs[key] = append([]byte(nil), body...)
	m.version[key]++
	m.puts++
	return strconv.Itoa(m.version[key]), nil
}

// Puts reports how many writes succeeded.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
