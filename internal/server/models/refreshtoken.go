package models

import "time"

type RefreshToken struct {
	ID        string
	DoctorID  string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
