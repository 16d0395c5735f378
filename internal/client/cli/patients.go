package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

// Patients lists the patients of the logged-in doctor.
func (a *App) Patients(ctx context.Context) error {
	list, err := a.patientService.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		printlnFn(styles.dim.Render("No patients yet. Use 'addpatient'."))
		return nil
	}

	current := a.currentPatient()
	now := a.now()
	for _, p := range list {
		mark := " "
		if current != nil && current.ID == p.ID {
			mark = "*"
		}
		printlnFn(fmt.Sprintf("%s %s  %s  %s", mark, styles.dim.Render(p.ID), p.FullName(), describeAge(p, now)))
	}
	return nil
}

// AddPatient prompts for the patient's details and creates the patient.
func (a *App) AddPatient(ctx context.Context) error {
	var in models.PatientInput
	prompts := []struct {
		label string
		dst   *string
	}{
		{"First name", &in.FirstName},
		{"Last name", &in.LastName},
		{"Date of birth (YYYY-MM-DD)", &in.DateOfBirth},
		{"Gender (optional)", &in.Gender},
		{"Blood type (optional)", &in.BloodType},
	}
	for _, p := range prompts {
		v, err := getSimpleText(a.reader, p.label, a.out)
		if err != nil {
			return err
		}
		*p.dst = v
	}

	allergies, err := getSimpleText(a.reader, "Allergies, comma separated (optional)", a.out)
	if err != nil {
		return err
	}
	in.Allergies = splitList(allergies)

	p, err := a.patientService.Create(ctx, in)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Patient %s created with id %s. Use 'use %s' to select.", p.FullName(), p.ID, p.ID))
	return nil
}

// Use selects the patient the log commands work on.
func (a *App) Use(ctx context.Context, id string) error {
	p, err := a.patientService.Select(ctx, id)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.patient = p
	a.mu.Unlock()

	printlnFn(fmt.Sprintf("Now working on %s.", p.FullName()))
	if a.mode() == ModeOnline {
		if err := a.controller.Refresh(ctx, p.ID); err != nil {
			a.logger.Warn(ctx, "refresh after patient switch", "patient_id", p.ID, "error", err)
		}
	}
	return nil
}

func (a *App) requirePatient() (*models.Patient, error) {
	p := a.currentPatient()
	if p == nil {
		return nil, errNoPatient
	}
	return p, nil
}

func describeAge(p models.Patient, now time.Time) string {
	if age := p.Age(now); age >= 0 {
		return fmt.Sprintf("%d y", age)
	}
	return ""
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
