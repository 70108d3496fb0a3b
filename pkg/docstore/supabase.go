package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseStorage is the subset of the Supabase storage client used by Supabase.
type SupabaseStorage interface {
	DownloadFile(bucketId string, filePath string, urlOptions ...storage.UrlOptions) ([]byte, error)
	UploadFile(bucketId string, relativePath string, data io.Reader, fileOptions ...storage.FileOptions) (storage.FileUploadResponse, error)
}

// Supabase stores documents in a Supabase Storage bucket. The storage API has
// no conditional writes, so versions are content hashes checked just before
// the upload.
type Supabase struct {
	client SupabaseStorage
	bucket string
}

// NewSupabase returns a Store over a Supabase Storage bucket.
func NewSupabase(client SupabaseStorage, bucket string) *Supabase {
	return &Supabase{client: client, bucket: bucket}
}

// Get implements Store.
func (s *Supabase) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := s.client.DownloadFile(s.bucket, key)
	if err != nil {
		if isSupabaseNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download %s/%s: %w", s.bucket, key, err)
	}
	return &Object{Body: body, Version: contentVersion(body)}, nil
}

// Put implements Store.
func (s *Supabase) Put(ctx context.Context, key string, body []byte, opts PutOptions) (string, error) {
	if opts.IfAbsent || opts.IfVersion != "" {
		cur, err := s.Get(ctx, key)
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

	upsert := true
	contentType := "application/json"
	_, err := s.client.UploadFile(s.bucket, key, bytes.NewReader(body), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", s.bucket, key, err)
	}
	return contentVersion(body), nil
}

// The storage API answers a missing object with "Object not found". A missing
// bucket ("Bucket not found") is a configuration error and must not read as an
// empty document.
func isSupabaseNotFound(err error) bool {
	var se *storage.StorageError
	if !errors.As(err, &se) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(se.Message), "object not found")
}
