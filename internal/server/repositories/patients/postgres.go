package patients

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

const columns = `id, doctor_id, external_id, first_name, last_name, date_of_birth, gender,
	contact_email, contact_phone, blood_type, allergies, chronic_conditions, notes, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	allergies, err := json.Marshal(nonNil(p.Allergies))
	if err != nil {
		return nil, err
	}
	conditions, err := json.Marshal(nonNil(p.ChronicConditions))
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO patients (id, doctor_id, external_id, first_name, last_name, date_of_birth, gender,
			contact_email, contact_phone, blood_type, allergies, chronic_conditions, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.PrimaryDoctorID, p.ExternalID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.ContactEmail, p.ContactPhone, p.BloodType, allergies, conditions, p.Notes,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Allergies = nonNil(p.Allergies)
	p.ChronicConditions = nonNil(p.ChronicConditions)
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, doctorID, id string) (*models.Patient, error) {
	query := `SELECT ` + columns + ` FROM patients WHERE id = $1 AND doctor_id = $2`

	p, err := scan(r.db.QueryRowContext(ctx, query, id, doctorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, doctorID string) ([]models.Patient, error) {
	query := `SELECT ` + columns + ` FROM patients WHERE doctor_id = $1 ORDER BY last_name, first_name, id`

	rows, err := r.db.QueryContext(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []models.Patient{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Patient, error) {
	var (
		p                     models.Patient
		allergies, conditions []byte
	)
	err := s.Scan(&p.ID, &p.PrimaryDoctorID, &p.ExternalID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.ContactEmail, &p.ContactPhone, &p.BloodType, &allergies, &conditions, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalList(allergies, &p.Allergies); err != nil {
		return nil, err
	}
	if err := unmarshalList(conditions, &p.ChronicConditions); err != nil {
		return nil, err
	}
	return &p, nil
}

func unmarshalList(b []byte, dst *[]string) error {
	if len(b) > 0 {
		if err := json.Unmarshal(b, dst); err != nil {
			return err
		}
	}
	*dst = nonNil(*dst)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
