package models

import "time"

// AIExchange is one question put to the assistant and its answer.
type AIExchange struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patientId"`
	DoctorID       string    `json:"doctorId,omitempty"`
	Query          string    `json:"query"`
	Thought        string    `json:"thought,omitempty"`
	Answer         string    `json:"answer,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	Timestamp      time.Time `json:"createdAt"`
	Status         Status    `json:"status,omitempty"`
	ClientRef      string    `json:"clientRef,omitempty"`
}

func (a AIExchange) RecordID() string      { return a.ID }
func (a AIExchange) CorrelationID() string { return a.ClientRef }
func (a AIExchange) RecordTime() time.Time { return a.Timestamp }
func (a AIExchange) RecordStatus() Status  { return a.Status.Effective() }
func (a AIExchange) WithStatus(s Status) AIExchange {
	a.Status = s
	return a
}
