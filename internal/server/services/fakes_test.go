package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/doctors"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/patients"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/qa"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// memRepos is an in-memory RepositoryManager shared by the service tests.
type memRepos struct {
	repomanager.RepositoryManager

	mu            sync.Mutex
	doctors       map[string]*models.Doctor
	tokens        map[string]*models.RefreshToken
	patients      map[string]*models.Patient
	conversations map[string]*models.Conversation
	qa            []models.QAExchange

	createConvErr error
}

func newMemRepos() *memRepos {
	return &memRepos{
		doctors:       map[string]*models.Doctor{},
		tokens:        map[string]*models.RefreshToken{},
		patients:      map[string]*models.Patient{},
		conversations: map[string]*models.Conversation{},
	}
}

func (m *memRepos) Doctors(dbx.DBTX) doctors.Repository             { return memDoctors{m} }
func (m *memRepos) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return memTokens{m} }
func (m *memRepos) Patients(dbx.DBTX) patients.Repository           { return memPatients{m} }
func (m *memRepos) Conversations(dbx.DBTX) conversations.Repository { return memConversations{m} }
func (m *memRepos) QA(dbx.DBTX) qa.Repository                       { return memQA{m} }

type memDoctors struct{ m *memRepos }

func (r memDoctors) Create(_ context.Context, d *models.Doctor) (*models.Doctor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, x := range r.m.doctors {
		if x.Email == d.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	cp := *d
	cp.ID = "d-" + d.Email
	r.m.doctors[cp.ID] = &cp
	return &cp, nil
}

func (r memDoctors) GetByEmail(_ context.Context, email string) (*models.Doctor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, x := range r.m.doctors {
		if x.Email == email {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memDoctors) GetByID(_ context.Context, id string) (*models.Doctor, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if x, ok := r.m.doctors[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

type memTokens struct{ m *memRepos }

func (r memTokens) Create(_ context.Context, doctorID, token string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.tokens[token] = &models.RefreshToken{DoctorID: doctorID, Token: token, Expires: expiresAt}
	return nil
}

func (r memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if x, ok := r.m.tokens[token]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r memTokens) Delete(_ context.Context, token string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.tokens[token]
	delete(r.m.tokens, token)
	return ok, nil
}

type memPatients struct{ m *memRepos }

func (r memPatients) Create(_ context.Context, p *models.Patient) (*models.Patient, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cp := *p
	r.m.patients[p.ID] = &cp
	return p, nil
}

func (r memPatients) Get(_ context.Context, doctorID, id string) (*models.Patient, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if x, ok := r.m.patients[id]; ok && x.PrimaryDoctorID == doctorID {
		cp := *x
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r memPatients) List(_ context.Context, doctorID string) ([]models.Patient, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Patient{}
	for _, x := range r.m.patients {
		if x.PrimaryDoctorID == doctorID {
			out = append(out, *x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

type memConversations struct{ m *memRepos }

func (r memConversations) Create(_ context.Context, c *models.Conversation) (*models.Conversation, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.createConvErr != nil {
		return nil, false, r.m.createConvErr
	}
	if c.ClientRef != "" {
		for _, x := range r.m.conversations {
			if x.DoctorID == c.DoctorID && x.ClientRef == c.ClientRef {
				cp := *x
				return &cp, false, nil
			}
		}
	}
	cp := *c
	r.m.conversations[c.ID] = &cp
	return c, true, nil
}

func (r memConversations) Get(_ context.Context, id string) (*models.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if x, ok := r.m.conversations[id]; ok {
		cp := *x
		return &cp, nil
	}
	return nil, common.ErrNotFound
}

func (r memConversations) FindByClientRef(_ context.Context, doctorID, ref string) (*models.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, x := range r.m.conversations {
		if x.DoctorID == doctorID && x.ClientRef == ref {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memConversations) ListByPatient(_ context.Context, doctorID, patientID, mode string) ([]models.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Conversation{}
	for _, x := range r.m.conversations {
		if x.DoctorID == doctorID && x.PatientID == patientID && x.InputMode == mode {
			out = append(out, *x)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r memConversations) UpdateTranscript(_ context.Context, id string, u conversations.TranscriptUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	x, ok := r.m.conversations[id]
	if !ok {
		return common.ErrNotFound
	}
	x.FullTranscript, x.Segments, x.Status, x.ErrorCode, x.Error = u.FullTranscript, u.Segments, u.Status, u.ErrorCode, u.Error
	return nil
}

func (m *memRepos) conversation(id string) models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.conversations[id]
}

type memQA struct{ m *memRepos }

func (r memQA) Create(_ context.Context, e *models.QAExchange) (*models.QAExchange, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	e.CreatedAt = time.Date(2024, 3, 5, 10, 0, len(r.m.qa), 0, time.UTC)
	r.m.qa = append(r.m.qa, *e)
	return e, nil
}

func (r memQA) ListByPatient(_ context.Context, doctorID, patientID string) ([]models.QAExchange, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.QAExchange{}
	for _, e := range r.m.qa {
		if e.DoctorID == doctorID && e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

const (
	doctorID  = "d-1"
	patientID = "7f1c0a52-2b55-4a8e-9a0f-3f4c1a2b3c4d"
)

func withPatient(m *memRepos) *memRepos {
	m.patients[patientID] = &models.Patient{
		ID: patientID, PrimaryDoctorID: doctorID, FirstName: "Ada", LastName: "Lovelace",
		DateOfBirth: "1990-06-15", Allergies: []string{"penicillin"}, ChronicConditions: []string{},
	}
	return m
}
