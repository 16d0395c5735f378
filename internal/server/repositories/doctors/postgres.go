package doctors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Doctor) (*models.Doctor, error) {
	query :=
		`INSERT INTO doctors (name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, d.Name, d.Email, d.PasswordHash).Scan(&d.ID, &d.CreatedAt)
	if dbx.IsUniqueViolation(err) {
		return nil, common.ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	return r.getOne(ctx, `SELECT id, name, email, password_hash, created_at FROM doctors WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	return r.getOne(ctx, `SELECT id, name, email, password_hash, created_at FROM doctors WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.Doctor, error) {
	d := &models.Doctor{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}
