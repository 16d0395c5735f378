package models

import "time"

// Patient belongs to the doctor who created it. List fields are stored as
// JSON arrays.
type Patient struct {
	ID                string    `json:"id"`
	ExternalID        string    `json:"externalId,omitempty"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	DateOfBirth       string    `json:"dateOfBirth"`
	Gender            string    `json:"gender,omitempty"`
	ContactEmail      string    `json:"contactEmail,omitempty"`
	ContactPhone      string    `json:"contactPhone,omitempty"`
	BloodType         string    `json:"bloodType,omitempty"`
	Allergies         []string  `json:"allergies"`
	ChronicConditions []string  `json:"chronicConditions"`
	Notes             string    `json:"notes,omitempty"`
	PrimaryDoctorID   string    `json:"primaryDoctorId"`
	CreatedAt         time.Time `json:"createdAt"`
}
