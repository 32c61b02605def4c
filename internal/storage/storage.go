package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	URL          string
	Size         int64
	LastModified *time.Time
}

// Service stores user-uploaded media in remote object storage.
type Service interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	ObjectURL(ctx context.Context, key string) (string, error)
}
