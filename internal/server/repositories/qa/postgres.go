package qa

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.QAExchange) (*models.QAExchange, error) {
	query := `INSERT INTO qa_exchanges (id, patient_id, doctor_id, query, thought, answer, client_ref)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, e.ID, e.PatientID, e.DoctorID, e.Query, e.Thought, e.Answer, e.ClientRef).
		Scan(&e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByPatient(ctx context.Context, doctorID, patientID string) ([]models.QAExchange, error) {
	query := `SELECT id, patient_id, doctor_id, query, thought, answer, COALESCE(client_ref, ''), created_at
		FROM qa_exchanges
		WHERE doctor_id = $1 AND patient_id = $2
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, doctorID, patientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.QAExchange{}
	for rows.Next() {
		var e models.QAExchange
		if err := rows.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Query, &e.Thought, &e.Answer, &e.ClientRef, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
