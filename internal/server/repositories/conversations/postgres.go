package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

const columns = `id, patient_id, doctor_id, input_mode, conversation_type, full_transcript,
	transcript_segments, audio_key, duration, status, error_code, error, COALESCE(client_ref, ''),
	occurred_at, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Conversation) (*models.Conversation, bool, error) {
	segments, err := marshalSegments(c.Segments)
	if err != nil {
		return nil, false, err
	}

	query := `INSERT INTO conversations (id, patient_id, doctor_id, input_mode, conversation_type,
			full_transcript, transcript_segments, audio_key, duration, status, error_code, error, client_ref, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14)
		ON CONFLICT (doctor_id, client_ref) DO NOTHING
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		c.ID, c.PatientID, c.DoctorID, c.InputMode, c.ConversationType,
		c.FullTranscript, segments, c.AudioKey, c.Duration, c.Status, c.ErrorCode, c.Error, c.ClientRef, c.Timestamp,
	).Scan(&c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) && c.ClientRef != "" {
		existing, err := r.FindByClientRef(ctx, c.DoctorID, c.ClientRef)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return c, true, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM conversations WHERE id = $1`, id)
}

func (r *PostgresRepository) FindByClientRef(ctx context.Context, doctorID, clientRef string) (*models.Conversation, error) {
	return r.getOne(ctx, `SELECT `+columns+` FROM conversations WHERE doctor_id = $1 AND client_ref = $2`, doctorID, clientRef)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Conversation, error) {
	c, err := scan(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByPatient(ctx context.Context, doctorID, patientID, inputMode string) ([]models.Conversation, error) {
	query := `SELECT ` + columns + ` FROM conversations
		WHERE doctor_id = $1 AND patient_id = $2 AND input_mode = $3
		ORDER BY occurred_at, created_at, id`

	rows, err := r.db.QueryContext(ctx, query, doctorID, patientID, inputMode)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Conversation{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateTranscript(ctx context.Context, id string, u TranscriptUpdate) error {
	segments, err := marshalSegments(u.Segments)
	if err != nil {
		return err
	}
	query := `UPDATE conversations
		SET full_transcript = $2, transcript_segments = $3, status = $4, error_code = $5, error = $6
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, u.FullTranscript, segments, u.Status, u.ErrorCode, u.Error)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Conversation, error) {
	var (
		c        models.Conversation
		segments []byte
	)
	err := s.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.InputMode, &c.ConversationType, &c.FullTranscript,
		&segments, &c.AudioKey, &c.Duration, &c.Status, &c.ErrorCode, &c.Error, &c.ClientRef,
		&c.Timestamp, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &c.Segments); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func marshalSegments(s []models.TranscriptSegment) ([]byte, error) {
	if s == nil {
		s = []models.TranscriptSegment{}
	}
	return json.Marshal(s)
}
