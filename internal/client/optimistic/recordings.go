package optimistic

import (
	"context"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/media"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

// RecordingRequest is a voice log to submit. A zero Duration is read from
// the audio when its format allows.
type RecordingRequest struct {
	PatientID        string
	DoctorID         string
	ConversationType string
	Audio            *models.Media
	Duration         float64
	OptimisticID     string
	Timestamp        time.Time
}

// SendRecording inserts a pending recording with a playable local handle
// and uploads it in the background. It returns the placeholder id.
func (c *Controller) SendRecording(ctx context.Context, req RecordingRequest) (string, error) {
	switch {
	case req.PatientID == "":
		return "", rejected("no patient selected")
	case req.DoctorID == "":
		return "", rejected("no author")
	case req.Audio.Empty():
		return "", rejected("empty recording")
	case req.Duration < 0:
		return "", rejected("negative duration %v", req.Duration)
	}

	dur := req.Duration
	if dur == 0 {
		if d, err := media.WAVDuration(req.Audio.Data); err == nil {
			dur = d
		}
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

	if err := c.track(req.PatientID, id, models.KindRecordings); err != nil {
		return "", err
	}

	placeholder := models.Recording{
		ID:        id,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Timestamp: ts,
		Duration:  dur,
		Status:    models.StatusPending,
		ClientRef: id,
		Source:    req.Audio,
	}

	var stale string
	if prev, ok := c.store.Recordings.Find(req.PatientID, id); ok && prev.Ephemeral() {
		if _, live := c.handles.Resolve(prev.URL); live {
			placeholder.URL = prev.URL
		} else {
			stale = prev.URL
		}
	}
	if placeholder.URL == "" {
		placeholder.URL = c.handles.Create(req.Audio)
	}
	if stale != "" {
		c.handles.Revoke(stale)
	}

	if c.spool != nil {
		if err := c.spool.Put(ctx, id, req.Audio); err != nil {
			c.logger.Warn(ctx, "spool recording", "id", id, "error", err)
		} else {
			placeholder.SourceRef = id
		}
	}

	upsert(c.store.Recordings, req.PatientID, placeholder)

	c.goSubmit(ctx, func(ctx context.Context) { c.submitRecording(ctx, ctype, placeholder) })
	return id, nil
}

func (c *Controller) submitRecording(ctx context.Context, ctype string, r models.Recording) {
	saved, err := c.api.CreateRecording(ctx, client.RecordingInput{
		PatientID:        r.PatientID,
		DoctorID:         r.DoctorID,
		ConversationType: ctype,
		ClientRef:        r.ClientRef,
		Audio:            r.Source,
		Duration:         r.Duration,
		Timestamp:        r.Timestamp,
	})
	if err != nil {
		c.failRecording(ctx, r, err)
		return
	}

	confirmed := *saved
	confirmed.Status = models.StatusSent
	confirmed.Source = nil
	confirmed.SourceRef = ""
	confirmed.ErrorCode = ""
	confirmed.Error = ""
	if confirmed.ClientRef == "" {
		confirmed.ClientRef = r.ClientRef
	}
	if confirmed.PatientID == "" {
		confirmed.PatientID = r.PatientID
	}
	if confirmed.Duration == 0 {
		confirmed.Duration = r.Duration
	}

	replaced, found := settle(c.store.Recordings, r.PatientID, r.ID, confirmed, keepTranscript)
	c.release(ctx, r)
	for _, old := range replaced {
		c.release(ctx, old)
	}
	c.tracker.Remove(r.PatientID, r.ID)

	if !found {
		c.logger.Warn(ctx, "recording placeholder gone, refetching", "patient_id", r.PatientID, "id", r.ID, "server_id", confirmed.ID)
		if err := c.refreshRecordings(ctx, r.PatientID); err != nil {
			c.logger.Warn(ctx, "refetch recordings", "patient_id", r.PatientID, "error", err)
		}
	}

	c.logger.Debug(ctx, "recording sent", "patient_id", r.PatientID, "id", r.ID, "server_id", confirmed.ID)
	c.emit(Event{
		Kind:      models.KindRecordings,
		PatientID: r.PatientID,
		ID:        r.ID,
		ServerID:  confirmed.ID,
		Status:    models.StatusSent,
	})
}

// keepTranscript keeps a transcript a refresh already brought in when the
// create response came back before transcription finished.
func keepTranscript(saved, old models.Recording) models.Recording {
	if saved.Transcript == "" && old.Transcript != "" && old.RecordStatus() == models.StatusSent {
		saved.Transcript = old.Transcript
		saved.Segments = old.Segments
	}
	return saved
}

func (c *Controller) failRecording(ctx context.Context, r models.Recording, err error) {
	code, msg := Describe(err)
	c.store.Recordings.UpdateStatus(r.PatientID, r.ID, models.StatusFailed, func(x models.Recording) models.Recording {
		x.ErrorCode = code
		x.Error = msg
		return x
	})
	c.tracker.UpdateStatus(r.PatientID, r.ID, models.StatusFailed, code)

	c.logger.Warn(ctx, "recording failed", "patient_id", r.PatientID, "id", r.ID, "code", code, "error", err)
	c.emit(Event{
		Kind:      models.KindRecordings,
		PatientID: r.PatientID,
		ID:        r.ID,
		Status:    models.StatusFailed,
		ErrorCode: code,
		Message:   msg,
		Err:       err,
	})
}

// release drops the local resources of a superseded placeholder.
func (c *Controller) release(ctx context.Context, r models.Recording) {
	if r.Ephemeral() {
		c.handles.Revoke(r.URL)
	}
	if c.spool == nil || r.SourceRef == "" {
		return
	}
	if err := c.spool.Delete(ctx, r.SourceRef); err != nil {
		c.logger.Warn(ctx, "drop spooled audio", "id", r.SourceRef, "error", err)
	}
}
