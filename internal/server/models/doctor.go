// Package models defines server-side data models persisted in the database.
package models

import "time"

type Doctor struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
