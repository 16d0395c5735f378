package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Save(ctx context.Context, s Snapshot) error {
	query := `INSERT INTO snapshots (store, kind, patient_id, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store, kind, patient_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query, s.Store, s.Kind, s.PatientID, s.Payload, r.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s/%s/%s: %w", s.Store, s.Kind, s.PatientID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, store string) ([]Snapshot, error) {
	query := `SELECT store, kind, patient_id, payload, updated_at
		FROM snapshots WHERE store = ? ORDER BY kind, patient_id`

	rows, err := r.db.QueryContext(ctx, query, store)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Store, &s.Kind, &s.PatientID, &s.Payload, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, store string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE store = ?`, store); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}
