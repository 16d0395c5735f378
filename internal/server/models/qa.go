package models

import "time"

// QAExchange is one question to the assistant and its answer.
type QAExchange struct {
	ID        string
	PatientID string
	DoctorID  string
	Query     string
	Thought   string
	Answer    string
	ClientRef string
	CreatedAt time.Time
}
