package models

import "time"

const (
	InputText  = "text"
	InputVoice = "voice"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

type TranscriptSegment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Conversation is one text or voice log. ClientRef is the client's
// correlation id; a (DoctorID, ClientRef) pair is stored at most once.
type Conversation struct {
	ID               string
	PatientID        string
	DoctorID         string
	InputMode        string
	ConversationType string
	FullTranscript   string
	Segments         []TranscriptSegment
	AudioKey         string
	Duration         float64
	Status           string
	ErrorCode        string
	Error            string
	ClientRef        string
	Timestamp        time.Time
	CreatedAt        time.Time
}
