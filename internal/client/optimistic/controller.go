package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/media"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/reconcile"
	"github.com/dmitrijs2005/medscribe/internal/client/store"
	"github.com/dmitrijs2005/medscribe/internal/logging"
)

// IDPrefix starts every placeholder id.
const IDPrefix = "optimistic-"

var (
	// ErrRejected is returned when a submission is refused before any state
	// changes. The wrapped error says why.
	ErrRejected = errors.New("submission rejected")

	errInFlight = errors.New("already in flight")
)

// API is the part of the server client the controller needs.
type API interface {
	CreateMessage(ctx context.Context, in client.MessageInput) (*models.Message, error)
	ListMessages(ctx context.Context, patientID string) ([]models.Message, error)
	CreateRecording(ctx context.Context, in client.RecordingInput) (*models.Recording, error)
	ListRecordings(ctx context.Context, patientID string) ([]models.Recording, error)
}

// Event reports how a submission ended.
type Event struct {
	Kind      models.Kind
	PatientID string
	// ID is the placeholder id; ServerID is set on success.
	ID        string
	ServerID  string
	Status    models.Status
	ErrorCode string
	Message   string
	Err       error
}

type Controller struct {
	api     API
	store   *store.Store
	tracker *store.Tracker
	handles *media.Registry
	spool   *media.Spool
	logger  logging.Logger

	now        func() time.Time
	onEvent    func(Event)
	staleAfter time.Duration
	mergeOpts  []reconcile.Option

	wg  sync.WaitGroup
	ids *IDs
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithEvents sets the callback invoked after each submission settles. It
// runs on the submission goroutine.
func WithEvents(fn func(Event)) Option {
	return func(c *Controller) { c.onEvent = fn }
}

// WithSpool keeps the audio of unconfirmed recordings in s.
func WithSpool(s *media.Spool) Option {
	return func(c *Controller) { c.spool = s }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithStaleAfter sets the age at which Sweep fails pending records.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Controller) { c.staleAfter = d }
}

// WithMergeOptions passes opts to every reconcile.Merge call made by Refresh.
func WithMergeOptions(opts ...reconcile.Option) Option {
	return func(c *Controller) { c.mergeOpts = opts }
}

func New(api API, st *store.Store, tr *store.Tracker, handles *media.Registry, opts ...Option) *Controller {
	c := &Controller{
		api:        api,
		store:      st,
		tracker:    tr,
		handles:    handles,
		logger:     logging.Discard(),
		now:        time.Now,
		staleAfter: 2 * time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	c.ids = NewIDs(IDPrefix, func() time.Time { return c.now() })
	return c
}

// Wait blocks until every submission started so far has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// InFlight reports whether a create call for id is still running.
func (c *Controller) InFlight(id string) bool {
	return c.tracker.InFlight(id)
}

// Sweep fails pending records older than the stale-after age whose create
// call is not running in this process.
func (c *Controller) Sweep() int {
	return c.store.ExpirePending(c.now(), c.staleAfter, c.tracker.InFlight)
}

func (c *Controller) newID() string {
	return c.ids.Next()
}

func (c *Controller) track(patientID, id string, kind models.Kind) error {
	ok := c.tracker.Add(store.Submission{
		ID:        id,
		PatientID: patientID,
		Kind:      kind,
		StartedAt: c.now(),
	})
	if !ok {
		return fmt.Errorf("%w: %s %w", ErrRejected, id, errInFlight)
	}
	return nil
}

func (c *Controller) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// goSubmit runs fn detached from the caller's cancellation.
func (c *Controller) goSubmit(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(ctx)
	}()
}

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// upsert puts rec in place of the record with the same id, or appends it.
func upsert[T models.Record[T]](col *store.Collection[T], patientID string, rec T) {
	col.Update(patientID, func(prev []T) []T {
		for i, r := range prev {
			if r.RecordID() == rec.RecordID() {
				prev[i] = rec
				return prev
			}
		}
		return append(prev, rec)
	})
}

// settle replaces the placeholder id with saved. Any other local copy of
// saved, already brought in by a refresh, is dropped so the server record
// appears once. keep, when set, may carry fields of the dropped copy over
// to saved. It returns the replaced records and false when neither the
// placeholder nor saved was present.
func settle[T models.Record[T]](col *store.Collection[T], patientID, id string, saved T, keep func(saved, old T) T) ([]T, bool) {
	var replaced []T
	found := col.Modify(patientID, func(prev []T) ([]T, bool) {
		replaced = nil
		next := prev[:0]
		at := -1
		for _, r := range prev {
			if r.RecordID() == id || r.RecordID() == saved.RecordID() || (r.CorrelationID() != "" && r.CorrelationID() == saved.CorrelationID()) {
				if keep != nil {
					saved = keep(saved, r)
				}
				replaced = append(replaced, r)
				if at < 0 {
					at = len(next)
					next = append(next, r)
				}
				continue
			}
			next = append(next, r)
		}
		if at < 0 {
			return nil, false
		}
		next[at] = saved
		return next, true
	})
	return replaced, found
}
