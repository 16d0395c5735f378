package optimistic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

// MessageRequest is a text log to submit. OptimisticID and Timestamp are set
// on retry so the resubmission keeps the identity and time of the original.
type MessageRequest struct {
	PatientID        string
	DoctorID         string
	ConversationType string
	Body             string
	OptimisticID     string
	Timestamp        time.Time
}

// SendMessage inserts a pending message and submits it in the background.
// It returns the placeholder id.
func (c *Controller) SendMessage(ctx context.Context, req MessageRequest) (string, error) {
	body := strings.TrimSpace(req.Body)
	switch {
	case req.PatientID == "":
		return "", rejected("no patient selected")
	case req.DoctorID == "":
		return "", rejected("no author")
	case body == "":
		return "", rejected("empty message")
	}

	id := req.OptimisticID
	if id == "" {
		id = c.newID()
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = c.now()
	}
	ctype := req.ConversationType
	if ctype == "" {
		ctype = models.ConversationDoctorOnly
	}

	if err := c.track(req.PatientID, id, models.KindMessages); err != nil {
		return "", err
	}

	placeholder := models.Message{
		ID:               id,
		PatientID:        req.PatientID,
		DoctorID:         req.DoctorID,
		ConversationType: ctype,
		Body:             body,
		Timestamp:        ts,
		Status:           models.StatusPending,
		ClientRef:        id,
	}
	upsert(c.store.Messages, req.PatientID, placeholder)

	c.goSubmit(ctx, func(ctx context.Context) { c.submitMessage(ctx, placeholder) })
	return id, nil
}

func (c *Controller) submitMessage(ctx context.Context, m models.Message) {
	saved, err := c.api.CreateMessage(ctx, client.MessageInput{
		PatientID:        m.PatientID,
		DoctorID:         m.DoctorID,
		ConversationType: m.ConversationType,
		Body:             m.Body,
		ClientRef:        m.ClientRef,
		Timestamp:        m.Timestamp,
	})
	if err != nil {
		c.failMessage(ctx, m, err)
		return
	}

	confirmed := *saved
	confirmed.Status = models.StatusSent
	if confirmed.ClientRef == "" {
		confirmed.ClientRef = m.ClientRef
	}
	if confirmed.PatientID == "" {
		confirmed.PatientID = m.PatientID
	}

	_, found := settle(c.store.Messages, m.PatientID, m.ID, confirmed, nil)
	c.tracker.Remove(m.PatientID, m.ID)

	if !found {
		c.logger.Warn(ctx, "message placeholder gone, refetching", "patient_id", m.PatientID, "id", m.ID, "server_id", confirmed.ID)
		if err := c.refreshMessages(ctx, m.PatientID); err != nil {
			c.logger.Warn(ctx, "refetch messages", "patient_id", m.PatientID, "error", err)
		}
	}

	c.logger.Debug(ctx, "message sent", "patient_id", m.PatientID, "id", m.ID, "server_id", confirmed.ID)
	c.emit(Event{
		Kind:      models.KindMessages,
		PatientID: m.PatientID,
		ID:        m.ID,
		ServerID:  confirmed.ID,
		Status:    models.StatusSent,
	})
}

func (c *Controller) failMessage(ctx context.Context, m models.Message, err error) {
	code, msg := Describe(err)
	c.store.Messages.UpdateStatus(m.PatientID, m.ID, models.StatusFailed)
	c.tracker.UpdateStatus(m.PatientID, m.ID, models.StatusFailed, code)

	c.logger.Warn(ctx, "message failed", "patient_id", m.PatientID, "id", m.ID, "error", err)
	c.emit(Event{
		Kind:      models.KindMessages,
		PatientID: m.PatientID,
		ID:        m.ID,
		Status:    models.StatusFailed,
		ErrorCode: code,
		Message:   msg,
		Err:       err,
	})
}

// Describe extracts the error code and a message fit for the doctor.
func Describe(err error) (string, string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.UserMessage()
	}
	if errors.Is(err, client.ErrUnavailable) {
		return "", "Server is unreachable."
	}
	return "", client.GenericMessage
}
