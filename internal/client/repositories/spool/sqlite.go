package spool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, b Blob) error {
	query := `INSERT INTO media_spool (record_id, content_type, file_name, nonce, ciphertext)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			content_type = excluded.content_type,
			file_name = excluded.file_name,
			nonce = excluded.nonce,
			ciphertext = excluded.ciphertext`

	_, err := r.db.ExecContext(ctx, query, b.RecordID, b.ContentType, b.FileName, b.Nonce, b.Ciphertext)
	if err != nil {
		return fmt.Errorf("failed to spool %s: %w", b.RecordID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Blob, error) {
	query := `SELECT record_id, content_type, file_name, nonce, ciphertext, created_at
		FROM media_spool WHERE record_id = ?`

	var b Blob
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&b.RecordID, &b.ContentType, &b.FileName, &b.Nonce, &b.Ciphertext, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read spool %s: %w", id, err)
	}
	return &b, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM media_spool WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete spool %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record_id FROM media_spool ORDER BY created_at, record_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list spool: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
