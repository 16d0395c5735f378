// Package patients stores the patients of each doctor.
package patients

import (
	"context"

	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

// Repository reads and writes patients. Reads are scoped to the owning
// doctor; a patient of another doctor is reported as common.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, p *models.Patient) (*models.Patient, error)
	Get(ctx context.Context, doctorID, id string) (*models.Patient, error)
	List(ctx context.Context, doctorID string) ([]models.Patient, error)
}
