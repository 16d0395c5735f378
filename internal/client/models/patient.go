package models

import "time"

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

func (p Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Age returns the age in whole years at now. It returns -1 when DateOfBirth
// is not a YYYY-MM-DD date.
func (p Patient) Age(now time.Time) int {
	dob, err := time.Parse(time.DateOnly, p.DateOfBirth)
	if err != nil {
		return -1
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// PatientInput is the create payload.
type PatientInput struct {
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	DateOfBirth       string   `json:"dateOfBirth"`
	Gender            string   `json:"gender,omitempty"`
	ContactEmail      string   `json:"contactEmail,omitempty"`
	ContactPhone      string   `json:"contactPhone,omitempty"`
	BloodType         string   `json:"bloodType,omitempty"`
	Allergies         []string `json:"allergies"`
	ChronicConditions []string `json:"chronicConditions"`
	Notes             string   `json:"notes,omitempty"`
}

// Session is the authenticated doctor together with the issued tokens.
type Session struct {
	DoctorID     string `json:"doctorId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
