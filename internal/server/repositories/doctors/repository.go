// Package doctors declares the repository of doctor accounts.
package doctors

import (
	"context"

	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

type Repository interface {
	// Create stores d and fills its ID and CreatedAt. A taken email gives
	// common.ErrAlreadyExists.
	Create(ctx context.Context, d *models.Doctor) (*models.Doctor, error)
	GetByEmail(ctx context.Context, email string) (*models.Doctor, error)
	GetByID(ctx context.Context, id string) (*models.Doctor, error)
}
