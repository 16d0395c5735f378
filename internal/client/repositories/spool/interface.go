// Package spool stores the encrypted source audio of recordings that have not
// been confirmed by the server yet.
package spool

import (
	"context"
	"time"
)

// Blob is one sealed audio payload keyed by the recording id it belongs to.
type Blob struct {
	RecordID    string
	ContentType string
	FileName    string
	Nonce       []byte
	Ciphertext  []byte
	CreatedAt   time.Time
}

type Repository interface {
	// Put inserts or replaces the blob for b.RecordID.
	Put(ctx context.Context, b Blob) error

	// Get returns common.ErrNotFound when nothing is spooled for id.
	Get(ctx context.Context, id string) (*Blob, error)

	Delete(ctx context.Context, id string) error

	// IDs lists the record ids that currently have spooled audio.
	IDs(ctx context.Context) ([]string, error)
}
