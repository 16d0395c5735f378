// Package storage keeps uploaded voice logs and hands out URLs the client
// can play them from.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Store is an object store for audio.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns common.ErrNotFound for unknown keys.
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	// URL returns an absolute presigned URL or a path relative to the API base.
	URL(ctx context.Context, key string) (string, error)
}

// NewKey returns a fresh object key for a doctor's recording.
func NewKey(doctorID string, now time.Time) string {
	return fmt.Sprintf("audio/%s/%d/%02d/%02d/%v", doctorID, now.Year(), now.Month(), now.Day(), uuid.New())
}
