package models

import "time"

// ConversationDoctorOnly is the conversation type used for notes dictated or
// typed by the doctor alone.
const ConversationDoctorOnly = "doctor_only"

// Message is a text log entry.
type Message struct {
	ID               string    `json:"id"`
	PatientID        string    `json:"patientId"`
	DoctorID         string    `json:"doctorId"`
	ConversationType string    `json:"conversationType"`
	Body             string    `json:"fullTranscript"`
	Timestamp        time.Time `json:"timestamp"`
	Status           Status    `json:"status,omitempty"`
	ClientRef        string    `json:"clientRef,omitempty"`
}

func (m Message) RecordID() string      { return m.ID }
func (m Message) CorrelationID() string { return m.ClientRef }
func (m Message) RecordTime() time.Time { return m.Timestamp }
func (m Message) RecordStatus() Status  { return m.Status.Effective() }
func (m Message) WithStatus(s Status) Message {
	m.Status = s
	return m
}
