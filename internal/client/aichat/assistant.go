package aichat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/optimistic"
	"github.com/dmitrijs2005/medscribe/internal/client/reconcile"
	"github.com/dmitrijs2005/medscribe/internal/client/store"
	"github.com/dmitrijs2005/medscribe/internal/logging"
)

var ErrEmptyQuery = errors.New("empty question")

type API interface {
	AskAI(ctx context.Context, q client.AIQuery) (*client.AIReply, error)
	AIHistory(ctx context.Context, patientID string) ([]client.HistoryEntry, error)
}

// Assistant asks questions on behalf of one doctor and keeps the exchanges
// in the AI collection of the record store.
type Assistant struct {
	api    API
	store  *store.Store
	logger logging.Logger
	now    func() time.Time
	ids    *optimistic.IDs
}

// IDPrefix starts the placeholder id of an unanswered question.
const IDPrefix = optimistic.IDPrefix + "ai-"

func NewAssistant(api API, st *store.Store, logger logging.Logger) *Assistant {
	a := &Assistant{api: api, store: st, logger: logger, now: time.Now}
	a.ids = optimistic.NewIDs(IDPrefix, func() time.Time { return a.now() })
	return a
}

// Ask records the question as pending, waits for the answer and stores it.
// On failure the exchange stays in the store as failed and the error is
// returned.
func (a *Assistant) Ask(ctx context.Context, patientID, doctorID, query string) (models.AIExchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.AIExchange{}, ErrEmptyQuery
	}

	now := a.now()
	id := a.ids.Next()
	pending := models.AIExchange{
		ID:        id,
		PatientID: patientID,
		DoctorID:  doctorID,
		Query:     query,
		Timestamp: now,
		Status:    models.StatusPending,
		ClientRef: id,
	}
	a.store.AI.Append(patientID, pending)

	reply, err := a.api.AskAI(ctx, client.AIQuery{Query: query, DoctorID: doctorID, PatientID: patientID, ClientRef: id})
	if err != nil {
		a.store.AI.UpdateStatus(patientID, id, models.StatusFailed)
		a.logger.Warn(ctx, "ai query failed", "patient_id", patientID, "error", err)
		failed := pending.WithStatus(models.StatusFailed)
		return failed, err
	}

	parsed := ParseAnswer(reply.Thought, reply.Answer)
	done := pending
	done.Status = models.StatusSent
	done.Thought = parsed.Thought
	done.Answer = parsed.Answer
	done.ConversationID = reply.ConversationID
	if reply.ID != "" {
		done.ID = reply.ID
	}
	if !reply.CreatedAt.IsZero() {
		done.Timestamp = reply.CreatedAt
	}
	a.store.AI.Patch(patientID, id, func(models.AIExchange) models.AIExchange { return done })
	return done, nil
}

// LoadHistory merges the server's stored exchanges for patientID into the
// store, keeping local exchanges the server has not recorded.
func (a *Assistant) LoadHistory(ctx context.Context, patientID string) ([]models.AIExchange, error) {
	entries, err := a.api.AIHistory(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("ai history: %w", err)
	}
	server := ParseHistory(patientID, entries)
	a.store.AI.Update(patientID, func(prev []models.AIExchange) []models.AIExchange {
		return reconcile.Merge(server, prev)
	})
	return a.store.AI.Get(patientID), nil
}

// Clear forgets the local exchanges of patientID.
func (a *Assistant) Clear(patientID string) {
	a.store.AI.SetAll(patientID, nil)
}
