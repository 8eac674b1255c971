package ports

import (
	"context"
	"io"
)

// ObjectInfo describes a retained conversion output.
type ObjectInfo struct {
	// Key addresses the object in Get and Delete. localfs keeps the key it
	// was handed; gdrive answers with the Drive file id.
	Key         string
	ContentType string
	Size        int64
}

// StorageProvider keeps converted outputs after the job workspace is gone.
// Get and Delete report a missing object as os.ErrNotExist.
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, info ObjectInfo, body io.Reader) (ObjectInfo, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	DeleteObject(ctx context.Context, key string) error
}
