package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/logging"
)

const persistTimeout = 5 * time.Second

// Store is the session-scoped record store. Construct it once per session and
// pass it to whatever needs it.
type Store struct {
	Messages   *Collection[models.Message]
	Recordings *Collection[models.Recording]
	AI         *Collection[models.AIExchange]

	repo   snapshots.Repository
	name   string
	logger logging.Logger

	persistMu sync.Mutex

	subMu   sync.RWMutex
	subs    map[int]func(Change)
	nextSub int
}

// New returns an empty store. repo may be nil for a memory-only store.
func New(repo snapshots.Repository, logger logging.Logger) *Store {
	s := &Store{
		repo:   repo,
		name:   common.StoreName,
		logger: logger,
		subs:   make(map[int]func(Change)),
	}
	s.Messages = newCollection[models.Message](models.KindMessages, s.changed)
	s.Recordings = newCollection[models.Recording](models.KindRecordings, s.changed)
	s.AI = newCollection[models.AIExchange](models.KindAI, s.changed)
	return s
}

// Subscribe registers fn for every change. fn runs on the goroutine that made
// the change, after the change is visible. The returned func unregisters it.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) changed(ch Change) {
	s.persist(ch)

	s.subMu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// persist writes the current list, not the one that triggered ch, so saves
// that race each other still leave the newest state on disk.
func (s *Store) persist(ch Change) {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	payload, err := s.encode(ch.Kind, ch.PatientID)
	if err != nil {
		s.logger.Error(ctx, "encode snapshot", "kind", ch.Kind, "patient_id", ch.PatientID, "error", err)
		return
	}
	err = s.repo.Save(ctx, snapshots.Snapshot{
		Store:     s.name,
		Kind:      string(ch.Kind),
		PatientID: ch.PatientID,
		Payload:   payload,
	})
	if err != nil {
		s.logger.Error(ctx, "save snapshot", "kind", ch.Kind, "patient_id", ch.PatientID, "error", err)
	}
}

func (s *Store) encode(kind models.Kind, patientID string) ([]byte, error) {
	switch kind {
	case models.KindMessages:
		return json.Marshal(s.Messages.Get(patientID))
	case models.KindRecordings:
		return json.Marshal(s.Recordings.Get(patientID))
	case models.KindAI:
		return json.Marshal(s.AI.Get(patientID))
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

// Rehydrate loads the persisted lists and fails pending records that are at
// least staleAfter old at now. It returns how many records were failed.
// Snapshots that cannot be decoded are skipped and logged.
func (s *Store) Rehydrate(ctx context.Context, now time.Time, staleAfter time.Duration) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	snaps, err := s.repo.List(ctx, s.name)
	if err != nil {
		return 0, fmt.Errorf("load snapshots: %w", err)
	}

	for _, snap := range snaps {
		if err := s.restore(snap); err != nil {
			s.logger.Warn(ctx, "skip snapshot", "kind", snap.Kind, "patient_id", snap.PatientID, "error", err)
		}
	}

	n := s.ExpirePending(now, staleAfter, nil)
	if n > 0 {
		s.logger.Info(ctx, "stale pending records failed", "count", n)
	}
	return n, nil
}

func (s *Store) restore(snap snapshots.Snapshot) error {
	switch models.Kind(snap.Kind) {
	case models.KindMessages:
		return restoreInto(s.Messages, snap)
	case models.KindRecordings:
		return restoreInto(s.Recordings, snap)
	case models.KindAI:
		return restoreInto(s.AI, snap)
	}
	return fmt.Errorf("unknown kind %q", snap.Kind)
}

func restoreInto[T models.Record[T]](c *Collection[T], snap snapshots.Snapshot) error {
	var records []T
	if err := json.Unmarshal(snap.Payload, &records); err != nil {
		return err
	}
	c.restore(snap.PatientID, records)
	return nil
}

// ExpirePending fails every pending record that is at least staleAfter old
// at now, skipping ids for which live returns true.
func (s *Store) ExpirePending(now time.Time, staleAfter time.Duration, live func(id string) bool) int {
	return s.Messages.expire(now, staleAfter, live) +
		s.Recordings.expire(now, staleAfter, live) +
		s.AI.expire(now, staleAfter, live)
}

// Reset clears every collection and the persisted copy.
func (s *Store) Reset(ctx context.Context) error {
	s.Messages.Reset()
	s.Recordings.Reset()
	s.AI.Reset()
	if s.repo == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.repo.Clear(ctx, s.name)
}
