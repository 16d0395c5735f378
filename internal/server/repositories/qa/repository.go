// Package qa stores assistant questions and answers.
package qa

import (
	"context"

	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.QAExchange) (*models.QAExchange, error)
	// ListByPatient returns the exchanges oldest first.
	ListByPatient(ctx context.Context, doctorID, patientID string) ([]models.QAExchange, error)
}
