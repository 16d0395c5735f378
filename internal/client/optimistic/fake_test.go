package optimistic

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/media"
	"github.com/dmitrijs2005/medscribe/internal/client/migrations"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/spool"
	"github.com/dmitrijs2005/medscribe/internal/client/store"
	"github.com/dmitrijs2005/medscribe/internal/cryptox"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type result struct {
	msg *models.Message
	rec *models.Recording
	err error
}

// fakeAPI blocks each create call on the gate registered for its client
// reference, if any, and otherwise answers immediately with the default.
type fakeAPI struct {
	mu        sync.Mutex
	gates     map[string]chan result
	msgInputs []client.MessageInput
	recInputs []client.RecordingInput
	ctxErrs   []error

	messages   []models.Message
	recordings []models.Recording
	listCalls  int
	listErr    error

	defaultErr error
	serverSeq  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{gates: make(map[string]chan result)}
}

func (f *fakeAPI) gate(ref string) chan result {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan result, 1)
	f.gates[ref] = ch
	return ch
}

func (f *fakeAPI) take(ref string) (chan result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[ref]
	delete(f.gates, ref)
	return ch, ok
}

func (f *fakeAPI) CreateMessage(ctx context.Context, in client.MessageInput) (*models.Message, error) {
	f.mu.Lock()
	f.msgInputs = append(f.msgInputs, in)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.serverSeq++
	seq := f.serverSeq
	derr := f.defaultErr
	f.mu.Unlock()

	if ch, ok := f.take(in.ClientRef); ok {
		r := <-ch
		return r.msg, r.err
	}
	if derr != nil {
		return nil, derr
	}
	return &models.Message{
		ID: fmt.Sprintf("srv-%d", seq), PatientID: in.PatientID, Body: in.Body,
		Timestamp: in.Timestamp, ClientRef: in.ClientRef,
	}, nil
}

func (f *fakeAPI) CreateRecording(ctx context.Context, in client.RecordingInput) (*models.Recording, error) {
	f.mu.Lock()
	f.recInputs = append(f.recInputs, in)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.serverSeq++
	seq := f.serverSeq
	derr := f.defaultErr
	f.mu.Unlock()

	if ch, ok := f.take(in.ClientRef); ok {
		r := <-ch
		return r.rec, r.err
	}
	if derr != nil {
		return nil, derr
	}
	return &models.Recording{
		ID: fmt.Sprintf("srv-%d", seq), PatientID: in.PatientID, URL: "https://api/media/x.webm",
		Timestamp: in.Timestamp, Duration: in.Duration, ClientRef: in.ClientRef,
	}, nil
}

func (f *fakeAPI) ListMessages(ctx context.Context, patientID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Message(nil), f.messages...), nil
}

func (f *fakeAPI) ListRecordings(ctx context.Context, patientID string) ([]models.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Recording(nil), f.recordings...), nil
}

func (f *fakeAPI) setServer(msgs []models.Message, recs []models.Recording) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = msgs
	f.recordings = recs
}

type env struct {
	api     *fakeAPI
	store   *store.Store
	tracker *store.Tracker
	handles *media.Registry
	spool   *media.Spool
	ctrl    *Controller

	mu     sync.Mutex
	now    time.Time
	events chan Event
}

func (e *env) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *env) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// next waits for the next settled submission.
func (e *env) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func newSpool(t *testing.T) *media.Spool {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, dbx.Migrate(context.Background(), db, goose.DialectSQLite3, migrations.FS))

	sp := media.NewSpool(spool.NewSQLiteRepository(db))
	sp.Unlock(cryptox.DeriveKey([]byte("pw"), cryptox.NewSalt()))
	return sp
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	e := &env{
		api:     newFakeAPI(),
		store:   store.New(nil, logging.Discard()),
		tracker: store.NewTracker(),
		handles: media.NewRegistry(),
		spool:   newSpool(t),
		now:     t0,
		events:  make(chan Event, 16),
	}
	opts = append([]Option{
		WithClock(e.clock),
		WithSpool(e.spool),
		WithEvents(func(ev Event) { e.events <- ev }),
		WithStaleAfter(time.Minute),
	}, opts...)
	e.ctrl = New(e.api, e.store, e.tracker, e.handles, opts...)
	t.Cleanup(e.ctrl.Wait)
	return e
}
