package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo is one archived snapshot batch as listed from the bucket.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter stores snapshot archives. Large batches go through
// PutMultipart.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader lists and loads archived snapshot batches by date prefix.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// SnapshotArchiver writes a batch of pool snapshots taken at one instant and
// returns the key it was stored under.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snaps []PoolSnapshot, at time.Time) (string, error)
}
