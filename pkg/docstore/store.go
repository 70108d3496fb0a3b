// Package docstore holds whole JSON documents addressed by key, with a version
// token per stored document so writers can detect concurrent updates.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrNotFound means the key holds no document. Only a true not-found
	// outcome maps to it; permission and transport failures do not.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict means a conditional write lost a race.
	ErrVersionConflict = errors.New("document version conflict")
)

// Object is a stored document and the version it was read at.
type Object struct {
	Body    []byte
	Version string
}

// PutOptions makes a write conditional. The zero value overwrites unconditionally.
type PutOptions struct {
	// IfVersion only writes when the stored version still equals it.
	IfVersion string
	// IfAbsent only writes when no document exists at the key.
	IfAbsent bool
}

// Store reads and writes documents by key.
type Store interface {
	Get(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, body []byte, opts PutOptions) (string, error)
}

func contentVersion(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
