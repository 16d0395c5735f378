package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type PatientService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewPatientService(db *sql.DB, m repomanager.RepositoryManager) *PatientService {
	return &PatientService{db: db, repomanager: m, now: time.Now}
}

// Create stores a patient of doctorID. Names and a past date of birth in
// YYYY-MM-DD form are required.
func (s *PatientService) Create(ctx context.Context, doctorID string, in models.Patient) (*models.Patient, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", common.ErrInvalidInput)
	}
	dob, err := time.Parse(dateLayout, strings.TrimSpace(in.DateOfBirth))
	if err != nil {
		return nil, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	if dob.After(s.now()) {
		return nil, fmt.Errorf("%w: date of birth is in the future", common.ErrInvalidInput)
	}

	in.ID = uuid.NewString()
	in.PrimaryDoctorID = doctorID
	in.DateOfBirth = dob.Format(dateLayout)
	in.Allergies = trimList(in.Allergies)
	in.ChronicConditions = trimList(in.ChronicConditions)

	return s.repomanager.Patients(s.db).Create(ctx, &in)
}

func (s *PatientService) Get(ctx context.Context, doctorID, id string) (*models.Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrNotFound
	}
	return s.repomanager.Patients(s.db).Get(ctx, doctorID, id)
}

func (s *PatientService) List(ctx context.Context, doctorID string) ([]models.Patient, error) {
	return s.repomanager.Patients(s.db).List(ctx, doctorID)
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
