package docstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File stores documents as files under a root directory, mainly for local
// runs. Versions are content hashes; the version check and the write are not
// atomic across processes.
type File struct {
	root string
	mu   sync.Mutex
}

// NewFile returns a File store rooted at dir.
func NewFile(dir string) *File {
	return &File{root: dir}
}

func (f *File) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

// Get implements Store.
func (f *File) Get(ctx context.Context, key string) (*Object, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", key, err)
	}
	return &Object{Body: body, Version: contentVersion(body)}, nil
}

// Put implements Store.
func (f *File) Put(ctx context.Context, key string, body []byte, opts PutOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if opts.IfAbsent || opts.IfVersion != "" {
		cur, err := f.Get(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			if opts.IfVersion != "" {
				return "", ErrVersionConflict
			}
		case err != nil:
			return "", err
		case opts.IfAbsent || cur.Version != opts.IfVersion:
			return "", ErrVersionConflict
		}
	}

	p, err := f.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("write document %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("write document %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write document %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("write document %s: %w", key, err)
	}

	return contentVersion(body), nil
}
