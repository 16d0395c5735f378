package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/services"
	"github.com/dmitrijs2005/medscribe/internal/server/transcription"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrInvalidInput)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.auth.Register(r.Context(), req.Name, req.Email, []byte(req.Password))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "doctor registered", "doctor_id", d.ID)
	writeJSON(w, http.StatusCreated, doctorResponse{ID: d.ID, Name: d.Name, Email: d.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, pair, err := s.auth.Login(r.Context(), req.Email, []byte(req.Password))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		DoctorID: d.ID, Name: d.Name, Email: d.Email,
		AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req tokenPair
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	list, err := s.patients.List(r.Context(), doctorID(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var in models.Patient
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.patients.Create(r.Context(), doctorID(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := s.patients.Get(r.Context(), doctorID(r.Context()), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreateConversation takes a multipart form. inputMode selects a text
// log (fullTranscript) or a voice log (file plus duration).
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed form: %v", common.ErrInvalidInput, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	ts, err := parseTimestamp(r.FormValue("timestamp"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	doctor := doctorID(ctx)

	switch mode := r.FormValue("inputMode"); mode {
	case models.InputText:
		c, err := s.conversations.CreateText(ctx, services.TextInput{
			DoctorID:         doctor,
			PatientID:        r.FormValue("patientId"),
			ConversationType: r.FormValue("conversationType"),
			Body:             r.FormValue("fullTranscript"),
			ClientRef:        r.FormValue("clientRef"),
			Timestamp:        ts,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMessage(*c))

	case models.InputVoice:
		audio, err := readAudio(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		duration, err := parseDuration(r.FormValue("duration"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		rec, err := s.conversations.CreateVoice(ctx, services.VoiceInput{
			DoctorID:         doctor,
			PatientID:        r.FormValue("patientId"),
			ConversationType: r.FormValue("conversationType"),
			ClientRef:        r.FormValue("clientRef"),
			Timestamp:        ts,
			Duration:         duration,
			Audio:            audio,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toRecording(*rec))

	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown input mode %q", common.ErrInvalidInput, mode))
	}
}

func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp", common.ErrInvalidInput)
	}
	return t, nil
}

func parseDuration(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	d, err := strconv.ParseFloat(v, 64)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: bad duration", common.ErrInvalidInput)
	}
	return d, nil
}

func readAudio(r *http.Request) (transcription.Audio, error) {
	f, fh, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return transcription.Audio{}, fmt.Errorf("%w: audio file is required", common.ErrInvalidInput)
	}
	if err != nil {
		return transcription.Audio{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return transcription.Audio{}, err
	}
	return transcription.Audio{Data: data, ContentType: contentType(fh), FileName: fh.Filename}, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	list, err := s.conversations.ListMessages(r.Context(), doctorID(r.Context()), r.PathValue("patientId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]messageResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toMessage(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	list, err := s.conversations.ListRecordings(r.Context(), doctorID(r.Context()), r.PathValue("patientId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]recordingResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, toRecording(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.qa.Ask(r.Context(), doctorID(r.Context()), req.PatientID, req.Query, req.ClientRef)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{
		ID: e.ID, Thought: e.Thought, Answer: e.Answer, ConversationID: e.ID, CreatedAt: e.CreatedAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := s.qa.History(r.Context(), doctorID(r.Context()), r.PathValue("patientId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]historyEntry, 0, len(list))
	for _, e := range list {
		out = append(out, historyEntry{ID: e.ID, FullTranscript: services.Transcript(e), Timestamp: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.PathValue("key"), "/")
	rc, ct, err := s.conversations.OpenMedia(r.Context(), doctorID(r.Context()), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	if ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn(r.Context(), "media copy interrupted", "key", key, "error", err)
	}
}
