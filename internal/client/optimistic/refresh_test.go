package optimistic

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	ID     string
	Status models.Status
	Body   string
}

func messageView(list []models.Message) []view {
	out := make([]view, 0, len(list))
	for _, m := range list {
		out = append(out, view{m.ID, m.RecordStatus(), m.Body})
	}
	return out
}

// converge runs one submission and one refresh in the given order and
// returns the final list.
func converge(t *testing.T, refreshFirst bool, echoRef bool, opts ...Option) []view {
	e := newEnv(t, opts...)
	e.store.Messages.SetAll("P1", []models.Message{{ID: "old", Body: "earlier", Timestamp: t0.Add(-time.Hour)}})
	gate := e.api.gate("m1")

	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "new", OptimisticID: "m1"})
	require.NoError(t, err)

	saved := models.Message{ID: "srv-1", PatientID: "P1", Body: "new", Timestamp: t0}
	if echoRef {
		saved.ClientRef = "m1"
	}
	e.api.setServer([]models.Message{
		{ID: "old", Body: "earlier", Timestamp: t0.Add(-time.Hour)},
		saved,
	}, nil)

	if refreshFirst {
		require.NoError(t, e.ctrl.Refresh(context.Background(), "P1"))
		gate <- result{msg: &saved}
		e.next(t)
	} else {
		gate <- result{msg: &saved}
		e.next(t)
		require.NoError(t, e.ctrl.Refresh(context.Background(), "P1"))
	}
	return messageView(e.store.Messages.Get("P1"))
}

func TestRefreshAndSuccess_Commute(t *testing.T) {
	want := []view{
		{"old", models.StatusSent, "earlier"},
		{"srv-1", models.StatusSent, "new"},
	}
	for _, echo := range []bool{true, false} {
		a := converge(t, true, echo)
		b := converge(t, false, echo)
		assert.ElementsMatch(t, want, a, "refresh first, echo=%v", echo)
		assert.ElementsMatch(t, want, b, "success first, echo=%v", echo)
	}
}

func TestRefresh_KeepsLocalOnlyRecords(t *testing.T) {
	e := newEnv(t)
	e.api.defaultErr = client.ErrUnavailable

	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "unsent", OptimisticID: "m1"})
	require.NoError(t, err)
	e.next(t)

	e.api.setServer([]models.Message{{ID: "srv-1", Body: "x", Timestamp: t0.Add(-time.Minute)}}, nil)
	require.NoError(t, e.ctrl.Refresh(context.Background(), "P1"))

	got := messageView(e.store.Messages.Get("P1"))
	assert.Equal(t, []view{
		{"srv-1", models.StatusSent, "x"},
		{"m1", models.StatusFailed, "unsent"},
	}, got)
	assert.Equal(t, 1, e.tracker.Len(), "failed submission stays tracked")
}

func TestRefresh_ErrorLeavesStoreUntouched(t *testing.T) {
	e := newEnv(t)
	e.store.Messages.SetAll("P1", []models.Message{{ID: "a", Timestamp: t0}})
	v := e.store.Messages.Version("P1")
	e.api.listErr = client.ErrUnavailable

	err := e.ctrl.Refresh(context.Background(), "P1")
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, v, e.store.Messages.Version("P1"))
}

func TestRefresh_RevokesSupersededHandles(t *testing.T) {
	e := newEnv(t)
	e.api.defaultErr = client.ErrUnavailable

	_, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: 1, OptimisticID: "r1"})
	require.NoError(t, err)
	e.next(t)
	require.Equal(t, 1, e.handles.Len())

	// An earlier attempt reached the server after all.
	e.api.setServer(nil, []models.Recording{{ID: "srv-1", URL: "https://api/a", Timestamp: t0, ClientRef: "r1"}})
	require.NoError(t, e.ctrl.Refresh(context.Background(), "P1"))

	list := e.store.Recordings.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, "srv-1", list[0].ID)
	assert.Zero(t, e.handles.Len())
	assert.False(t, e.spool.Has(context.Background(), "r1"))
	assert.Zero(t, e.tracker.Len())
}

func TestRefresh_TimestampFallback(t *testing.T) {
	e := newEnv(t, WithMergeOptions(reconcile.ByTimestamp()))
	e.api.defaultErr = client.ErrUnavailable

	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "x", OptimisticID: "m1"})
	require.NoError(t, err)
	e.next(t)

	e.api.setServer([]models.Message{{ID: "srv-1", Body: "x", Timestamp: t0}}, nil)
	require.NoError(t, e.ctrl.Refresh(context.Background(), "P1"))

	assert.Equal(t, []view{{"srv-1", models.StatusSent, "x"}}, messageView(e.store.Messages.Get("P1")))
}
