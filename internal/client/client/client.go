package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

// MessageInput is a text log submission.
type MessageInput struct {
	PatientID        string
	DoctorID         string
	ConversationType string
	Body             string
	ClientRef        string
	Timestamp        time.Time
}

// RecordingInput is a voice log submission.
type RecordingInput struct {
	PatientID        string
	DoctorID         string
	ConversationType string
	ClientRef        string
	Audio            *models.Media
	Duration         float64
	Timestamp        time.Time
}

// AIQuery is a question about a patient.
type AIQuery struct {
	Query     string `json:"query"`
	DoctorID  string `json:"doctorId"`
	PatientID string `json:"patientId"`
	ClientRef string `json:"clientRef,omitempty"`
}

// AIReply is the assistant's answer. Answer may itself be a fenced JSON
// document; see the aichat package.
type AIReply struct {
	ID             string    `json:"id"`
	Thought        string    `json:"thought"`
	Answer         string    `json:"answer"`
	ConversationID string    `json:"conversationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HistoryEntry is one stored AI exchange, rendered as a transcript of the
// form "Doctor: ...\nAI: ...".
type HistoryEntry struct {
	ID             string    `json:"id"`
	FullTranscript string    `json:"fullTranscript"`
	Timestamp      time.Time `json:"timestamp"`
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, name, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) (*models.Session, error)
	SetTokens(access, refresh string)

	ListPatients(ctx context.Context) ([]models.Patient, error)
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	CreatePatient(ctx context.Context, in models.PatientInput) (*models.Patient, error)

	CreateMessage(ctx context.Context, in MessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, patientID string) ([]models.Message, error)
	CreateRecording(ctx context.Context, in RecordingInput) (*models.Recording, error)
	ListRecordings(ctx context.Context, patientID string) ([]models.Recording, error)

	AskAI(ctx context.Context, q AIQuery) (*AIReply, error)
	AIHistory(ctx context.Context, patientID string) ([]HistoryEntry, error)
}
