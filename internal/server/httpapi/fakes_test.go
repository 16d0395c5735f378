package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/dmitrijs2005/medscribe/internal/server/metrics"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/services"
)

const (
	goodToken    = "good"
	expiredToken = "expired"
	testDoctor   = "d-1"
	testPatient  = "p-1"
)

var t0 = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

type fakeAuth struct {
	AuthService
	refreshes int
}

func (f *fakeAuth) Authenticate(token string) (string, error) {
	switch token {
	case goodToken:
		return testDoctor, nil
	case expiredToken:
		return "", common.ErrTokenExpired
	}
	return "", common.ErrInvalidToken
}

func (f *fakeAuth) Register(_ context.Context, name, email string, password []byte) (*models.Doctor, error) {
	if email == "taken@x.io" {
		return nil, common.ErrAlreadyExists
	}
	return &models.Doctor{ID: testDoctor, Name: name, Email: email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email string, password []byte) (*models.Doctor, *services.TokenPair, error) {
	if string(password) != "secret123" {
		return nil, nil, common.ErrUnauthorized
	}
	return &models.Doctor{ID: testDoctor, Name: "Dr. House", Email: email},
		&services.TokenPair{AccessToken: expiredToken, RefreshToken: "r-0"}, nil
}

func (f *fakeAuth) RefreshToken(_ context.Context, rt string) (*services.TokenPair, error) {
	if rt != "r-0" {
		return nil, common.ErrUnauthorized
	}
	f.refreshes++
	return &services.TokenPair{AccessToken: goodToken, RefreshToken: "r-1"}, nil
}

type fakePatients struct {
	PatientService
	list []models.Patient
}

func (f *fakePatients) List(_ context.Context, doctorID string) ([]models.Patient, error) {
	return f.list, nil
}

func (f *fakePatients) Get(_ context.Context, doctorID, id string) (*models.Patient, error) {
	for _, p := range f.list {
		if p.ID == id && p.PrimaryDoctorID == doctorID {
			return &p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakePatients) Create(_ context.Context, doctorID string, in models.Patient) (*models.Patient, error) {
	if in.FirstName == "" {
		return nil, common.ErrInvalidInput
	}
	in.ID = "p-new"
	in.PrimaryDoctorID = doctorID
	f.list = append(f.list, in)
	return &in, nil
}

type fakeConversations struct {
	ConversationService
	text     []services.TextInput
	voice    []services.VoiceInput
	voiceErr error
	media    map[string][]byte
}

func (f *fakeConversations) CreateText(_ context.Context, in services.TextInput) (*models.Conversation, error) {
	f.text = append(f.text, in)
	return &models.Conversation{
		ID: "c-1", PatientID: in.PatientID, DoctorID: in.DoctorID, ConversationType: in.ConversationType,
		FullTranscript: in.Body, Status: models.StatusSent, ClientRef: in.ClientRef, Timestamp: in.Timestamp,
	}, nil
}

func (f *fakeConversations) CreateVoice(_ context.Context, in services.VoiceInput) (*services.Recording, error) {
	f.voice = append(f.voice, in)
	if f.voiceErr != nil {
		return nil, f.voiceErr
	}
	return &services.Recording{
		Conversation: models.Conversation{
			ID: "v-1", PatientID: in.PatientID, DoctorID: in.DoctorID, Duration: in.Duration,
			FullTranscript: "hello", Status: models.StatusSent, ClientRef: in.ClientRef, Timestamp: in.Timestamp,
			Segments: []models.TranscriptSegment{{Speaker: "A", Text: "hello", End: 1}},
		},
		URL: "/api/media/audio/d-1/k",
	}, nil
}

func (f *fakeConversations) ListMessages(_ context.Context, doctorID, patientID string) ([]models.Conversation, error) {
	if patientID != testPatient {
		return nil, common.ErrNotFound
	}
	return []models.Conversation{{ID: "c-1", PatientID: patientID, DoctorID: doctorID, FullTranscript: "note", Status: models.StatusSent, Timestamp: t0}}, nil
}

func (f *fakeConversations) ListRecordings(_ context.Context, doctorID, patientID string) ([]services.Recording, error) {
	return []services.Recording{{
		Conversation: models.Conversation{ID: "v-0", PatientID: patientID, DoctorID: doctorID, Status: models.StatusFailed,
			ErrorCode: common.ErrorCodeNoSpeech, Error: services.NoSpeechMessage, Timestamp: t0},
		URL: "/api/media/audio/d-1/k0",
	}}, nil
}

func (f *fakeConversations) OpenMedia(_ context.Context, doctorID, key string) (io.ReadCloser, string, error) {
	b, ok := f.media[key]
	if !ok {
		return nil, "", common.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), "audio/wav", nil
}

type fakeQA struct {
	QAService
	err error
}

func (f *fakeQA) Ask(_ context.Context, doctorID, patientID, query, clientRef string) (*models.QAExchange, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.QAExchange{ID: "q-1", PatientID: patientID, DoctorID: doctorID, Query: query, Answer: "Penicillin.", CreatedAt: t0}, nil
}

func (f *fakeQA) History(_ context.Context, doctorID, patientID string) ([]models.QAExchange, error) {
	return []models.QAExchange{{ID: "q-1", Query: "Allergies?", Answer: "Penicillin.", CreatedAt: t0}}, nil
}

type fixture struct {
	auth          *fakeAuth
	patients      *fakePatients
	conversations *fakeConversations
	qa            *fakeQA
	metrics       *metrics.Metrics
	srv           *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		auth: &fakeAuth{},
		patients: &fakePatients{list: []models.Patient{{
			ID: testPatient, PrimaryDoctorID: testDoctor, FirstName: "Ada", LastName: "Lovelace",
			DateOfBirth: "1990-06-15", Allergies: []string{}, ChronicConditions: []string{},
		}}},
		conversations: &fakeConversations{media: map[string][]byte{"audio/d-1/k": []byte("RIFF")}},
		qa:            &fakeQA{},
		metrics:       metrics.New(),
	}
	s := NewServer(":0", logging.Discard(), f.metrics, f.auth, f.patients, f.conversations, f.qa)
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
