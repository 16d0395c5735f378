// Package conversations stores text and voice logs.
package conversations

import (
	"context"

	"github.com/dmitrijs2005/medscribe/internal/server/models"
)

// TranscriptUpdate is the outcome of transcribing a voice log.
type TranscriptUpdate struct {
	FullTranscript string
	Segments       []models.TranscriptSegment
	Status         string
	ErrorCode      string
	Error          string
}

type Repository interface {
	// Create stores c. When a log with the same doctor and client reference
	// already exists it is returned instead and created is false.
	Create(ctx context.Context, c *models.Conversation) (saved *models.Conversation, created bool, err error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	FindByClientRef(ctx context.Context, doctorID, clientRef string) (*models.Conversation, error)
	// ListByPatient returns the logs of one input mode, oldest first.
	ListByPatient(ctx context.Context, doctorID, patientID, inputMode string) ([]models.Conversation, error)
	UpdateTranscript(ctx context.Context, id string, u TranscriptUpdate) error
}
