package optimistic

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/common"
)

// CanRetryMessage reports whether m can be resubmitted.
func CanRetryMessage(m models.Message) bool {
	return m.RecordStatus() == models.StatusFailed && m.Body != ""
}

// CanRetryRecording reports whether r can be resubmitted. hasSource tells
// whether its audio is still available, in memory or spooled.
func CanRetryRecording(r models.Recording, hasSource bool) bool {
	return r.RecordStatus() == models.StatusFailed && !r.Terminal() && hasSource
}

// CanRetry looks id up in the store and applies the checks above.
func (c *Controller) CanRetry(ctx context.Context, kind models.Kind, patientID, id string) bool {
	switch kind {
	case models.KindMessages:
		m, ok := c.store.Messages.Find(patientID, id)
		return ok && CanRetryMessage(m) && !c.tracker.InFlight(id)
	case models.KindRecordings:
		r, ok := c.store.Recordings.Find(patientID, id)
		if !ok || c.tracker.InFlight(id) {
			return false
		}
		return CanRetryRecording(r, c.hasSource(ctx, r))
	}
	return false
}

func (c *Controller) hasSource(ctx context.Context, r models.Recording) bool {
	if !r.Source.Empty() {
		return true
	}
	return c.spool != nil && r.SourceRef != "" && c.spool.Has(ctx, r.SourceRef)
}

// RetryMessage resubmits the failed message id with its original id, body
// and timestamp. The record goes back to pending in place.
func (c *Controller) RetryMessage(ctx context.Context, patientID, id string) error {
	m, ok := c.store.Messages.Find(patientID, id)
	if !ok {
		return rejected("message %s: %v", id, common.ErrNotFound)
	}
	if !CanRetryMessage(m) {
		return rejected("message %s is %s", id, m.RecordStatus())
	}
	_, err := c.SendMessage(ctx, MessageRequest{
		PatientID:        m.PatientID,
		DoctorID:         m.DoctorID,
		ConversationType: m.ConversationType,
		Body:             m.Body,
		OptimisticID:     m.ID,
		Timestamp:        m.Timestamp,
	})
	return err
}

// RetryRecording resubmits the failed recording id with the same audio,
// duration and timestamp. Recordings that failed for lack of speech are
// not retried.
func (c *Controller) RetryRecording(ctx context.Context, patientID, id string) error {
	r, ok := c.store.Recordings.Find(patientID, id)
	switch {
	case !ok:
		return rejected("recording %s: %v", id, common.ErrNotFound)
	case r.RecordStatus() != models.StatusFailed:
		return rejected("recording %s is %s", id, r.RecordStatus())
	case r.Terminal():
		return rejected("recording %s: %v", id, common.ErrNoSpeech)
	}

	src := r.Source
	if src.Empty() {
		var err error
		src, err = c.loadSource(ctx, r)
		if err != nil {
			return rejected("recording %s: audio unavailable: %v", id, err)
		}
	}

	_, err := c.SendRecording(ctx, RecordingRequest{
		PatientID:    r.PatientID,
		DoctorID:     r.DoctorID,
		Audio:        src,
		Duration:     r.Duration,
		OptimisticID: r.ID,
		Timestamp:    r.Timestamp,
	})
	return err
}

func (c *Controller) loadSource(ctx context.Context, r models.Recording) (*models.Media, error) {
	if c.spool == nil || r.SourceRef == "" {
		return nil, common.ErrNotFound
	}
	m, err := c.spool.Get(ctx, r.SourceRef)
	if err != nil {
		return nil, err
	}
	if m.Empty() {
		return nil, errors.New("spooled audio is empty")
	}
	return m, nil
}
