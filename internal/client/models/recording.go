package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
)

// TranscriptSegment is one diarised span of a recording transcript. Start and
// End are offsets in seconds.
type TranscriptSegment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Media is captured audio held by the client.
type Media struct {
	Data        []byte
	ContentType string
	FileName    string
}

func (m *Media) Empty() bool { return m == nil || len(m.Data) == 0 }

// Recording is a voice log entry.
//
// For a placeholder, URL is an ephemeral "blob:" handle owned by the client
// and Source holds the captured audio so a failed upload can be retried.
// Source never leaves the process through JSON; SourceRef names its spooled
// copy instead.
type Recording struct {
	ID         string              `json:"id"`
	PatientID  string              `json:"patientId,omitempty"`
	DoctorID   string              `json:"doctorId,omitempty"`
	URL        string              `json:"url"`
	Timestamp  time.Time           `json:"timestamp"`
	Duration   float64             `json:"duration,omitempty"`
	Status     Status              `json:"status,omitempty"`
	Transcript string              `json:"fullTranscript,omitempty"`
	Segments   []TranscriptSegment `json:"transcriptSegments,omitempty"`
	ErrorCode  string              `json:"errorCode,omitempty"`
	Error      string              `json:"error,omitempty"`
	ClientRef  string              `json:"clientRef,omitempty"`
	SourceRef  string              `json:"sourceRef,omitempty"`

	Source *Media `json:"-"`
}

func (r Recording) RecordID() string      { return r.ID }
func (r Recording) CorrelationID() string { return r.ClientRef }
func (r Recording) RecordTime() time.Time { return r.Timestamp }
func (r Recording) RecordStatus() Status  { return r.Status.Effective() }
func (r Recording) WithStatus(s Status) Recording {
	r.Status = s
	return r
}

// Terminal reports whether the failure cannot be fixed by resubmitting the
// same audio.
func (r Recording) Terminal() bool {
	return r.ErrorCode == common.ErrorCodeNoSpeech
}

// Ephemeral reports whether URL is a client-local playback handle.
func (r Recording) Ephemeral() bool {
	return strings.HasPrefix(r.URL, "blob:")
}
