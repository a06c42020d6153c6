package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader reads and lists objects from blob storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// BlobDeleter removes objects from blob storage.
type BlobDeleter interface {
	Delete(ctx context.Context, path string) error
}

// Archiver moves aged settlement history out of the primary store.
type Archiver interface {
	ArchiveBets(ctx context.Context, before uint64) (int64, error)
	ArchiveAudit(ctx context.Context, before time.Time) (int64, error)
}
