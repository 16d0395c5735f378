package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medscribe/internal/common"
)

type PatientService interface {
	List(ctx context.Context) ([]models.Patient, error)
	Get(ctx context.Context, id string) (*models.Patient, error)
	Create(ctx context.Context, in models.PatientInput) (*models.Patient, error)
	// Select makes id the patient the CLI works on and remembers it.
	Select(ctx context.Context, id string) (*models.Patient, error)
	// Current returns the remembered patient, or nil.
	Current(ctx context.Context) (*models.Patient, error)
}

type patientService struct {
	client       client.Client
	metadataRepo metadata.Repository
}

func NewPatientService(client client.Client, metadataRepo metadata.Repository) PatientService {
	return &patientService{client: client, metadataRepo: metadataRepo}
}

func (s *patientService) List(ctx context.Context) ([]models.Patient, error) {
	list, err := s.client.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing patients: %w", err)
	}
	return list, nil
}

func (s *patientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	p, err := s.client.GetPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error retrieving patient: %w", err)
	}
	return p, nil
}

func (s *patientService) Create(ctx context.Context, in models.PatientInput) (*models.Patient, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)

	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", common.ErrInvalidInput)
	}
	if _, err := time.Parse(time.DateOnly, in.DateOfBirth); err != nil {
		return nil, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	if in.Allergies == nil {
		in.Allergies = []string{}
	}
	if in.ChronicConditions == nil {
		in.ChronicConditions = []string{}
	}

	p, err := s.client.CreatePatient(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("error creating patient: %w", err)
	}
	return p, nil
}

func (s *patientService) Select(ctx context.Context, id string) (*models.Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := metadata.SetJSON(ctx, s.metadataRepo, metadata.KeyPatient, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *patientService) Current(ctx context.Context) (*models.Patient, error) {
	var p models.Patient
	found, err := metadata.GetJSON(ctx, s.metadataRepo, metadata.KeyPatient, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}
