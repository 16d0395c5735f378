package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/dmitrijs2005/medscribe/internal/server/llm"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	maxContextLogs  = 20
	maxContextQA    = 5
	maxContextChars = 24_000
)

var ErrAssistantUnavailable = errors.New("assistant unavailable")

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.+?)\\s*```")

// QAService answers questions about a patient from the patient's record and
// logs.
type QAService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	llm         llm.Generator
	logger      logging.Logger
	now         func() time.Time
}

func NewQAService(db *sql.DB, m repomanager.RepositoryManager, g llm.Generator, logger logging.Logger) *QAService {
	return &QAService{db: db, repomanager: m, llm: g, logger: logger, now: time.Now}
}

func (s *QAService) Ask(ctx context.Context, doctorID, patientID, query, clientRef string) (*models.QAExchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty question", common.ErrInvalidInput)
	}
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, common.ErrNotFound
	}
	p, err := s.repomanager.Patients(s.db).Get(ctx, doctorID, patientID)
	if err != nil {
		return nil, err
	}

	convRepo := s.repomanager.Conversations(s.db)
	texts, err := convRepo.ListByPatient(ctx, doctorID, patientID, models.InputText)
	if err != nil {
		return nil, err
	}
	voices, err := convRepo.ListByPatient(ctx, doctorID, patientID, models.InputVoice)
	if err != nil {
		return nil, err
	}
	past, err := s.repomanager.QA(s.db).ListByPatient(ctx, doctorID, patientID)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(p, append(texts, voices...), past, query, s.now())
	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error(ctx, "llm call failed", "model", s.llm.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	thought, answer := splitReply(raw)

	e := &models.QAExchange{
		ID:        uuid.NewString(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Query:     query,
		Thought:   thought,
		Answer:    answer,
		ClientRef: clientRef,
	}
	return s.repomanager.QA(s.db).Create(ctx, e)
}

func (s *QAService) History(ctx context.Context, doctorID, patientID string) ([]models.QAExchange, error) {
	if _, err := uuid.Parse(patientID); err != nil {
		return nil, common.ErrNotFound
	}
	if _, err := s.repomanager.Patients(s.db).Get(ctx, doctorID, patientID); err != nil {
		return nil, err
	}
	return s.repomanager.QA(s.db).ListByPatient(ctx, doctorID, patientID)
}

// Transcript renders an exchange the way history is returned to clients.
func Transcript(e models.QAExchange) string {
	return "Doctor: " + e.Query + "\nAI: " + e.Answer
}

func buildPrompt(p *models.Patient, logs []models.Conversation, past []models.QAExchange, query string, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are a clinical assistant helping a doctor. Answer only from the patient record and notes below. ")
	b.WriteString("If the notes do not contain the answer, say so. ")
	b.WriteString("Reply with a ```json block holding {\"thought\": <your reasoning>, \"answer\": <the answer for the doctor>}.\n\n")

	fmt.Fprintf(&b, "Patient: %s %s\n", p.FirstName, p.LastName)
	if age := ageAt(p.DateOfBirth, now); age >= 0 {
		fmt.Fprintf(&b, "Age: %d\n", age)
	}
	if p.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s\n", p.Gender)
	}
	if p.BloodType != "" {
		fmt.Fprintf(&b, "Blood type: %s\n", p.BloodType)
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(p.Allergies, ", "))
	}
	if len(p.ChronicConditions) > 0 {
		fmt.Fprintf(&b, "Chronic conditions: %s\n", strings.Join(p.ChronicConditions, ", "))
	}
	if p.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", p.Notes)
	}

	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })
	if len(logs) > maxContextLogs {
		logs = logs[len(logs)-maxContextLogs:]
	}
	var notes strings.Builder
	for _, c := range logs {
		if c.Status == models.StatusFailed || strings.TrimSpace(c.FullTranscript) == "" {
			continue
		}
		fmt.Fprintf(&notes, "[%s, %s] %s\n", c.Timestamp.Format("2006-01-02 15:04"), c.InputMode, c.FullTranscript)
	}
	if notes.Len() > 0 {
		text := notes.String()
		if len(text) > maxContextChars {
			text = text[len(text)-maxContextChars:]
		}
		b.WriteString("\nClinical notes:\n")
		b.WriteString(text)
	}

	if len(past) > maxContextQA {
		past = past[len(past)-maxContextQA:]
	}
	if len(past) > 0 {
		b.WriteString("\nEarlier questions:\n")
		for _, e := range past {
			b.WriteString(Transcript(e))
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	return b.String()
}

func ageAt(dob string, now time.Time) int {
	d, err := time.Parse(dateLayout, dob)
	if err != nil || d.After(now) {
		return -1
	}
	age := now.Year() - d.Year()
	if now.Month() < d.Month() || (now.Month() == d.Month() && now.Day() < d.Day()) {
		age--
	}
	return age
}

// splitReply extracts thought and answer from a ```json block or a bare JSON
// object. Anything else is the answer as is.
func splitReply(raw string) (string, string) {
	candidate := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var parsed struct {
		Thought string `json:"thought"`
		Answer  string `json:"answer"`
	}
	if strings.HasPrefix(candidate, "{") && json.Unmarshal([]byte(candidate), &parsed) == nil && parsed.Answer != "" {
		return strings.TrimSpace(parsed.Thought), strings.TrimSpace(parsed.Answer)
	}
	return "", strings.TrimSpace(raw)
}
