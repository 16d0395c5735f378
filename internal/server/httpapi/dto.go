package httpapi

import (
	"time"

	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/services"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type doctorResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	DoctorID     string `json:"doctorId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patientId"`
	DoctorID         string    `json:"doctorId"`
	ConversationType string    `json:"conversationType"`
	FullTranscript   string    `json:"fullTranscript"`
	Timestamp        time.Time `json:"timestamp"`
	Status           string    `json:"status"`
	ClientRef        string    `json:"clientRef,omitempty"`
}

func toMessage(c models.Conversation) messageResponse {
	return messageResponse{
		ID:               c.ID,
		PatientID:        c.PatientID,
		DoctorID:         c.DoctorID,
		ConversationType: c.ConversationType,
		FullTranscript:   c.FullTranscript,
		Timestamp:        c.Timestamp,
		Status:           c.Status,
		ClientRef:        c.ClientRef,
	}
}

type recordingResponse struct {
	ID                 string                     `json:"id"`
	PatientID          string                     `json:"patientId"`
	DoctorID           string                     `json:"doctorId"`
	URL                string                     `json:"url"`
	Timestamp          time.Time                  `json:"timestamp"`
	Duration           float64                    `json:"duration,omitempty"`
	Status             string                     `json:"status"`
	FullTranscript     string                     `json:"fullTranscript,omitempty"`
	TranscriptSegments []models.TranscriptSegment `json:"transcriptSegments,omitempty"`
	ErrorCode          string                     `json:"errorCode,omitempty"`
	Error              string                     `json:"error,omitempty"`
	ClientRef          string                     `json:"clientRef,omitempty"`
}

func toRecording(r services.Recording) recordingResponse {
	return recordingResponse{
		ID:                 r.ID,
		PatientID:          r.PatientID,
		DoctorID:           r.DoctorID,
		URL:                r.URL,
		Timestamp:          r.Timestamp,
		Duration:           r.Duration,
		Status:             r.Status,
		FullTranscript:     r.FullTranscript,
		TranscriptSegments: r.Segments,
		ErrorCode:          r.ErrorCode,
		Error:              r.Error,
		ClientRef:          r.ClientRef,
	}
}

type askRequest struct {
	Query     string `json:"query"`
	DoctorID  string `json:"doctorId"`
	PatientID string `json:"patientId"`
	ClientRef string `json:"clientRef"`
}

type askResponse struct {
	ID             string    `json:"id"`
	Thought        string    `json:"thought"`
	Answer         string    `json:"answer"`
	ConversationID string    `json:"conversationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

type historyEntry struct {
	ID             string    `json:"id"`
	FullTranscript string    `json:"fullTranscript"`
	Timestamp      time.Time `json:"timestamp"`
}
