package snapshots

import (
	"context"
	"time"
)

// Snapshot is one persisted record list.
type Snapshot struct {
	Store     string
	Kind      string
	PatientID string
	Payload   []byte
	UpdatedAt time.Time
}

type Repository interface {
	// Save upserts the snapshot keyed by (Store, Kind, PatientID).
	Save(ctx context.Context, s Snapshot) error

	// List returns every snapshot of store.
	List(ctx context.Context, store string) ([]Snapshot, error)

	// Clear removes every snapshot of store.
	Clear(ctx context.Context, store string) error
}
