package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/dmitrijs2005/medscribe/internal/server/metrics"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medscribe/internal/server/storage"
	"github.com/dmitrijs2005/medscribe/internal/server/transcription"
	"github.com/google/uuid"
)

const (
	// CodeTranscriptionFailed marks a voice log whose transcription broke for
	// a reason other than silence. Unlike no speech it can be retried.
	CodeTranscriptionFailed = "transcription_failed"

	NoSpeechMessage            = "No speech detected in the recording."
	TranscriptionFailedMessage = "Transcription failed. Please retry."

	defaultConversationType = "doctor_only"
	transcriptionTimeout    = 10 * time.Minute
)

var ErrTranscriptionFailed = errors.New("transcription failed")

type TextInput struct {
	DoctorID         string
	PatientID        string
	ConversationType string
	Body             string
	ClientRef        string
	Timestamp        time.Time
}

type VoiceInput struct {
	DoctorID         string
	PatientID        string
	ConversationType string
	ClientRef        string
	Timestamp        time.Time
	Duration         float64
	Audio            transcription.Audio
}

// Recording is a voice log with a URL to play it from.
type Recording struct {
	models.Conversation
	URL string
}

// ConversationService stores text and voice logs. A voice log is uploaded,
// stored, then transcribed; the caller waits for the transcript up to a
// limit after which transcription finishes in the background.
type ConversationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Store
	transcriber transcription.Transcriber
	wait        time.Duration
	metrics     *metrics.Metrics
	logger      logging.Logger
	now         func() time.Time

	wg sync.WaitGroup
}

func NewConversationService(db *sql.DB, m repomanager.RepositoryManager, store storage.Store,
	tr transcription.Transcriber, wait time.Duration, mt *metrics.Metrics, logger logging.Logger) *ConversationService {
	return &ConversationService{
		db:          db,
		repomanager: m,
		store:       store,
		transcriber: tr,
		wait:        wait,
		metrics:     mt,
		logger:      logger,
		now:         time.Now,
	}
}

// Wait blocks until background transcriptions finish.
func (s *ConversationService) Wait() {
	s.wg.Wait()
}

func (s *ConversationService) checkPatient(ctx context.Context, doctorID, patientID string) error {
	if _, err := uuid.Parse(patientID); err != nil {
		return common.ErrNotFound
	}
	_, err := s.repomanager.Patients(s.db).Get(ctx, doctorID, patientID)
	return err
}

func (s *ConversationService) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}

func conversationType(t string) string {
	if t = strings.TrimSpace(t); t != "" {
		return t
	}
	return defaultConversationType
}

// CreateText stores a text log. Submitting the same ClientRef twice returns
// the first log.
func (s *ConversationService) CreateText(ctx context.Context, in TextInput) (*models.Conversation, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: empty log", common.ErrInvalidInput)
	}
	if err := s.checkPatient(ctx, in.DoctorID, in.PatientID); err != nil {
		return nil, err
	}

	c := &models.Conversation{
		ID:               uuid.NewString(),
		PatientID:        in.PatientID,
		DoctorID:         in.DoctorID,
		InputMode:        models.InputText,
		ConversationType: conversationType(in.ConversationType),
		FullTranscript:   body,
		Status:           models.StatusSent,
		ClientRef:        in.ClientRef,
		Timestamp:        s.timestamp(in.Timestamp),
	}
	saved, created, err := s.repomanager.Conversations(s.db).Create(ctx, c)
	if err != nil {
		s.metrics.ObserveSubmission(models.InputText, metrics.OutcomeFailed)
		return nil, err
	}
	s.metrics.ObserveSubmission(models.InputText, outcome(created))
	return saved, nil
}

func outcome(created bool) string {
	if created {
		return metrics.OutcomeCreated
	}
	return metrics.OutcomeDuplicate
}

// CreateVoice stores and transcribes a voice log.
//
// A ClientRef already stored as sent returns that log unchanged. One stored
// as failed is retried in place: same id, same audio key. Silence yields
// common.ErrNoSpeech and other transcription errors ErrTranscriptionFailed;
// in both cases the log stays stored as failed.
func (s *ConversationService) CreateVoice(ctx context.Context, in VoiceInput) (*Recording, error) {
	if len(in.Audio.Data) == 0 {
		return nil, fmt.Errorf("%w: empty audio", common.ErrInvalidInput)
	}
	if err := s.checkPatient(ctx, in.DoctorID, in.PatientID); err != nil {
		return nil, err
	}

	repo := s.repomanager.Conversations(s.db)

	var c *models.Conversation
	if in.ClientRef != "" {
		existing, err := repo.FindByClientRef(ctx, in.DoctorID, in.ClientRef)
		switch {
		case err == nil && existing.Status != models.StatusFailed:
			s.metrics.ObserveSubmission(models.InputVoice, metrics.OutcomeDuplicate)
			return s.recording(ctx, existing)
		case err == nil:
			c = existing
		case !errors.Is(err, common.ErrNotFound):
			return nil, err
		}
	}

	retry := c != nil
	if !retry {
		c = &models.Conversation{
			ID:               uuid.NewString(),
			PatientID:        in.PatientID,
			DoctorID:         in.DoctorID,
			InputMode:        models.InputVoice,
			ConversationType: conversationType(in.ConversationType),
			AudioKey:         storage.NewKey(in.DoctorID, s.now()),
			Duration:         in.Duration,
			Status:           models.StatusSent,
			ClientRef:        in.ClientRef,
			Timestamp:        s.timestamp(in.Timestamp),
		}
	}

	// audio goes first so a stored row never points at a missing object
	err := s.store.Put(ctx, c.AudioKey, bytes.NewReader(in.Audio.Data), int64(len(in.Audio.Data)), in.Audio.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store audio: %w", err)
	}

	if retry {
		c.Status, c.ErrorCode, c.Error = models.StatusSent, "", ""
		if err := repo.UpdateTranscript(ctx, c.ID, conversations.TranscriptUpdate{Status: models.StatusSent}); err != nil {
			return nil, err
		}
	} else {
		saved, created, err := repo.Create(ctx, c)
		if err != nil {
			return nil, err
		}
		if !created {
			s.metrics.ObserveSubmission(models.InputVoice, metrics.OutcomeDuplicate)
			return s.recording(ctx, saved)
		}
		c = saved
	}

	done := s.transcribe(ctx, c.ID, in.Audio)

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		updated, err := repo.Get(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		return s.recording(ctx, updated)
	case <-timer.C:
		s.logger.Info(ctx, "transcription continues in background", "conversation_id", c.ID)
		s.metrics.ObserveSubmission(models.InputVoice, metrics.OutcomeDeferred)
		return s.recording(ctx, c)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// transcribe runs the transcriber and stores its outcome. It outlives the
// request so a slow transcription still lands in the database.
func (s *ConversationService) transcribe(ctx context.Context, id string, a transcription.Audio) <-chan error {
	done := make(chan error, 1)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transcriptionTimeout)
		defer cancel()

		start := time.Now()
		res, err := s.transcriber.Transcribe(ctx, a)
		s.metrics.ObserveTranscription(time.Since(start))

		u := conversations.TranscriptUpdate{Status: models.StatusSent}
		result := metrics.OutcomeCreated
		switch {
		case errors.Is(err, common.ErrNoSpeech):
			u = conversations.TranscriptUpdate{Status: models.StatusFailed, ErrorCode: common.ErrorCodeNoSpeech, Error: NoSpeechMessage}
			result = metrics.OutcomeNoSpeech
			err = common.ErrNoSpeech
		case err != nil:
			s.logger.Error(ctx, "transcription failed", "conversation_id", id, "error", err)
			u = conversations.TranscriptUpdate{Status: models.StatusFailed, ErrorCode: CodeTranscriptionFailed, Error: TranscriptionFailedMessage}
			result = metrics.OutcomeFailed
			err = fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		default:
			u.FullTranscript = res.Text
			u.Segments = res.Segments
		}

		if uerr := s.repomanager.Conversations(s.db).UpdateTranscript(ctx, id, u); uerr != nil {
			s.logger.Error(ctx, "failed to store transcript", "conversation_id", id, "error", uerr)
			if err == nil {
				err = uerr
			}
		}
		s.metrics.ObserveSubmission(models.InputVoice, result)
		done <- err
	}()

	return done
}

func (s *ConversationService) recording(ctx context.Context, c *models.Conversation) (*Recording, error) {
	u, err := s.store.URL(ctx, c.AudioKey)
	if err != nil {
		return nil, err
	}
	return &Recording{Conversation: *c, URL: u}, nil
}

// ListMessages returns a patient's text logs, oldest first.
func (s *ConversationService) ListMessages(ctx context.Context, doctorID, patientID string) ([]models.Conversation, error) {
	if err := s.checkPatient(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	return s.repomanager.Conversations(s.db).ListByPatient(ctx, doctorID, patientID, models.InputText)
}

// ListRecordings returns a patient's voice logs, oldest first.
func (s *ConversationService) ListRecordings(ctx context.Context, doctorID, patientID string) ([]Recording, error) {
	if err := s.checkPatient(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Conversations(s.db).ListByPatient(ctx, doctorID, patientID, models.InputVoice)
	if err != nil {
		return nil, err
	}

	out := make([]Recording, 0, len(list))
	for i := range list {
		r, err := s.recording(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// OpenMedia returns a stored recording of doctorID. Keys of other doctors
// are reported as not found.
func (s *ConversationService) OpenMedia(ctx context.Context, doctorID, key string) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(key, "audio/"+doctorID+"/") || strings.Contains(key, "..") {
		return nil, "", common.ErrNotFound
	}
	return s.store.Get(ctx, key)
}
