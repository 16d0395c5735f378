// Package models defines the client-side records of the medscribe CLI:
// text log messages, voice recordings, AI exchanges and the patients that
// own them.
package models

import "time"

// Status is the delivery state of a locally visible record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Effective treats an empty status as sent, which is how records that come
// straight from the server arrive.
func (s Status) Effective() Status {
	if s == "" {
		return StatusSent
	}
	return s
}

// Record is implemented by every kind held in the record store. T is the
// concrete record type so that WithStatus can return a copy without type
// assertions.
type Record[T any] interface {
	RecordID() string
	// CorrelationID is the client reference sent with the create call and
	// echoed by the server. Empty for records the client never submitted.
	CorrelationID() string
	RecordTime() time.Time
	RecordStatus() Status
	WithStatus(Status) T
}

// Kind names a record collection. It is also the persistence key.
type Kind string

const (
	KindMessages   Kind = "messages"
	KindRecordings Kind = "recordings"
	KindAI         Kind = "ai"
)
