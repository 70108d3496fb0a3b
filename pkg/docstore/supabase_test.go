package docstore

import (
	"context"
	"errors"
	"io"
	"testing"

	storage "github.com/supabase-community/storage-go"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	files       map[string][]byte
	downloadErr error
}

func (f *fakeBucket) DownloadFile(bucketId string, filePath string, _ ...storage.UrlOptions) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	body, ok := f.files[bucketId+"/"+filePath]
	if !ok {
		return nil, &storage.StorageError{Message: "Object not found"}
	}
	return body, nil
}

func (f *fakeBucket) UploadFile(bucketId string, relativePath string, data io.Reader, _ ...storage.FileOptions) (storage.FileUploadResponse, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return storage.FileUploadResponse{}, err
	}
	f.files[bucketId+"/"+relativePath] = body
	return storage.FileUploadResponse{}, nil
}

func TestSupabase(t *testing.T) {
	exerciseStore(t, NewSupabase(&fakeBucket{files: map[string][]byte{}}, "scrapes"))
}

func TestSupabase_PermissionErrorPropagates(t *testing.T) {
	s := NewSupabase(&fakeBucket{downloadErr: errors.New("new row violates row-level security policy")}, "scrapes")
	_, err := s.Get(context.Background(), "data/bloomberg.json")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestSupabase_OnlyMissingObjectIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"missing object", &storage.StorageError{Status: 404, Message: "Object not found"}, true},
		{"missing bucket", &storage.StorageError{Status: 404, Message: "Bucket not found"}, false},
		{"status only", &storage.StorageError{Status: 404, Message: "upstream returned 404"}, false},
		{"untyped", errors.New("Object not found"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSupabase(&fakeBucket{downloadErr: tt.err}, "scrapes")
			_, err := s.Get(context.Background(), "data/bloomberg.json")
			require.Error(t, err)
			require.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
		})
	}
}
