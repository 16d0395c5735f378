package store

import (
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

// Submission is one outstanding create call.
type Submission struct {
	ID        string
	PatientID string
	Kind      models.Kind
	Status    models.Status
	ErrorCode string
	StartedAt time.Time
	Attempts  int
}

// Tracker maps a patient id to its unconfirmed submissions.
type Tracker struct {
	mu   sync.RWMutex
	subs map[string][]Submission
}

func NewTracker() *Tracker {
	return &Tracker{subs: make(map[string][]Submission)}
}

// Add marks s as pending. A known failed entry with the same id is moved back
// to pending and its attempt count is increased. Add reports false when s.ID
// is already pending.
func (t *Tracker) Add(s Submission) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.subs[s.PatientID]
	i := slices.IndexFunc(list, func(x Submission) bool { return x.ID == s.ID })
	next := slices.Clone(list)

	s.Status = models.StatusPending
	s.ErrorCode = ""
	switch {
	case i < 0:
		s.Attempts = 1
		next = append(next, s)
	case list[i].Status == models.StatusPending:
		return false
	default:
		s.Attempts = list[i].Attempts + 1
		next[i] = s
	}
	t.subs[s.PatientID] = next
	return true
}

// Remove forgets id. Used once the server confirmed it.
func (t *Tracker) Remove(patientID, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.subs[patientID]
	next := slices.DeleteFunc(slices.Clone(list), func(x Submission) bool { return x.ID == id })
	if len(next) == 0 {
		delete(t.subs, patientID)
		return
	}
	t.subs[patientID] = next
}

// UpdateStatus patches status and errorCode of id; false when unknown.
func (t *Tracker) UpdateStatus(patientID, id string, status models.Status, errorCode string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.subs[patientID]
	i := slices.IndexFunc(list, func(x Submission) bool { return x.ID == id })
	if i < 0 {
		return false
	}
	next := slices.Clone(list)
	next[i].Status = status
	next[i].ErrorCode = errorCode
	t.subs[patientID] = next
	return true
}

func (t *Tracker) List(patientID string) []Submission {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.subs[patientID])
}

// InFlight reports whether id is pending for any patient.
func (t *Tracker) InFlight(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, list := range t.subs {
		for _, s := range list {
			if s.ID == id && s.Status == models.StatusPending {
				return true
			}
		}
	}
	return false
}

// Busy reports whether a submission of kind is pending for patientID.
func (t *Tracker) Busy(patientID string, kind models.Kind) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.ContainsFunc(t.subs[patientID], func(s Submission) bool {
		return s.Kind == kind && s.Status == models.StatusPending
	})
}

// Len counts tracked submissions across patients.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, list := range t.subs {
		n += len(list)
	}
	return n
}
