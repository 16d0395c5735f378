package optimistic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_PendingThenSent(t *testing.T) {
	e := newEnv(t)
	gate := e.api.gate("optimistic-1704103200000")

	id, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "BP 120/80"})
	require.NoError(t, err)
	assert.Equal(t, "optimistic-1704103200000", id)

	list := e.store.Messages.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusPending, list[0].Status)
	assert.Equal(t, "BP 120/80", list[0].Body)
	assert.Equal(t, id, list[0].ClientRef)
	assert.True(t, e.ctrl.InFlight(id))

	gate <- result{msg: &models.Message{ID: "srv-1", PatientID: "P1", Body: "BP 120/80", Timestamp: t0, ClientRef: id}}
	ev := e.next(t)
	assert.Equal(t, models.StatusSent, ev.Status)
	assert.Equal(t, "srv-1", ev.ServerID)
	assert.Equal(t, id, ev.ID)

	list = e.store.Messages.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, "srv-1", list[0].ID)
	assert.Equal(t, models.StatusSent, list[0].Status)
	assert.False(t, e.ctrl.InFlight(id))
	assert.Zero(t, e.tracker.Len())
}

func TestSendMessage_RejectedLeavesNoState(t *testing.T) {
	e := newEnv(t)

	for _, req := range []MessageRequest{
		{PatientID: "P1", DoctorID: "D1", Body: "   "},
		{DoctorID: "D1", Body: "hello"},
		{PatientID: "P1", Body: "x"},
	} {
		_, err := e.ctrl.SendMessage(context.Background(), req)
		require.ErrorIs(t, err, ErrRejected)
	}
	assert.Empty(t, e.store.Messages.Get("P1"))
	assert.Zero(t, e.tracker.Len())
	assert.Empty(t, e.api.msgInputs)
}

func TestSendMessage_DetachedFromCallerContext(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	gate := e.api.gate("m1")

	_, err := e.ctrl.SendMessage(ctx, MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "x", OptimisticID: "m1"})
	require.NoError(t, err)
	cancel()

	gate <- result{msg: &models.Message{ID: "srv-1", ClientRef: "m1", Timestamp: t0}}
	e.next(t)

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	require.Len(t, e.api.ctxErrs, 1)
	assert.NoError(t, e.api.ctxErrs[0])
}

func TestSendMessage_SameIDWhileInFlightRejected(t *testing.T) {
	e := newEnv(t)
	gate := e.api.gate("m1")

	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "x", OptimisticID: "m1"})
	require.NoError(t, err)

	_, err = e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "x", OptimisticID: "m1"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Len(t, e.store.Messages.Get("P1"), 1)

	gate <- result{err: client.ErrUnavailable}
	e.next(t)
}

func TestSendMessage_InterleavedCompletionsDoNotCrossContaminate(t *testing.T) {
	e := newEnv(t)
	ga := e.api.gate("a1")
	gb := e.api.gate("b1")

	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "A", OptimisticID: "a1"})
	require.NoError(t, err)
	e.advance(time.Second)
	_, err = e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "B", OptimisticID: "b1"})
	require.NoError(t, err)

	gb <- result{msg: &models.Message{ID: "srv-b", PatientID: "P1", Body: "B", Timestamp: t0.Add(time.Second), ClientRef: "b1"}}
	assert.Equal(t, "b1", e.next(t).ID)

	ga <- result{err: errors.New("connection reset")}
	ev := e.next(t)
	assert.Equal(t, "a1", ev.ID)
	assert.Equal(t, models.StatusFailed, ev.Status)

	list := e.store.Messages.Get("P1")
	require.Len(t, list, 2)
	byRef := map[string]models.Message{}
	for _, m := range list {
		byRef[m.ClientRef] = m
	}
	assert.Equal(t, models.StatusFailed, byRef["a1"].Status)
	assert.Equal(t, "a1", byRef["a1"].ID)
	assert.Equal(t, "A", byRef["a1"].Body)
	assert.Equal(t, models.StatusSent, byRef["b1"].Status)
	assert.Equal(t, "srv-b", byRef["b1"].ID)
}

func TestRetryMessage_ReusesIdentity(t *testing.T) {
	e := newEnv(t)
	e.api.defaultErr = client.ErrUnavailable

	id, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "BP 120/80"})
	require.NoError(t, err)
	ev := e.next(t)
	assert.Equal(t, models.StatusFailed, ev.Status)
	assert.Equal(t, "Server is unreachable.", ev.Message)

	failed, ok := e.store.Messages.Find("P1", id)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "BP 120/80", failed.Body)
	assert.True(t, e.ctrl.CanRetry(context.Background(), models.KindMessages, "P1", id))

	e.advance(time.Hour)
	e.api.defaultErr = nil
	gate := e.api.gate(id)
	require.NoError(t, e.ctrl.RetryMessage(context.Background(), "P1", id))

	list := e.store.Messages.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, models.StatusPending, list[0].Status)
	assert.Equal(t, 2, e.tracker.List("P1")[0].Attempts)

	gate <- result{msg: &models.Message{ID: "srv-9", PatientID: "P1", Body: "BP 120/80", Timestamp: t0, ClientRef: id}}
	e.next(t)

	list = e.store.Messages.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusSent, list[0].Status)
	assert.Equal(t, "srv-9", list[0].ID, "the server record takes the placeholder's slot")
	assert.Equal(t, id, list[0].ClientRef)
	_, ok = e.store.Messages.Find("P1", id)
	assert.False(t, ok)

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	require.Len(t, e.api.msgInputs, 2)
	assert.Equal(t, e.api.msgInputs[0], e.api.msgInputs[1])
	assert.True(t, e.api.msgInputs[1].Timestamp.Equal(t0))
}

func TestRetryMessage_OnlyFailed(t *testing.T) {
	e := newEnv(t)
	e.store.Messages.SetAll("P1", []models.Message{{ID: "srv-1", Body: "x", Timestamp: t0}})

	require.ErrorIs(t, e.ctrl.RetryMessage(context.Background(), "P1", "srv-1"), ErrRejected)
	require.ErrorIs(t, e.ctrl.RetryMessage(context.Background(), "P1", "missing"), ErrRejected)
	assert.False(t, e.ctrl.CanRetry(context.Background(), models.KindMessages, "P1", "srv-1"))
}

func TestSendMessage_IdentityMissRefetches(t *testing.T) {
	e := newEnv(t)
	gate := e.api.gate("m1")

	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "x", OptimisticID: "m1"})
	require.NoError(t, err)

	e.store.Messages.SetAll("P1", nil)
	srv := models.Message{ID: "srv-1", PatientID: "P1", Body: "x", Timestamp: t0, ClientRef: "m1"}
	e.api.setServer([]models.Message{srv}, nil)

	gate <- result{msg: &srv}
	e.next(t)

	list := e.store.Messages.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, "srv-1", list[0].ID)
	assert.Equal(t, models.StatusSent, list[0].Status)
	e.api.mu.Lock()
	assert.Equal(t, 1, e.api.listCalls)
	e.api.mu.Unlock()
}

func TestSettle_MissPublishesNothing(t *testing.T) {
	e := newEnv(t)
	e.store.Messages.SetAll("P1", []models.Message{{ID: "other", PatientID: "P1", Body: "y", Timestamp: t0, Status: models.StatusSent}})
	v := e.store.Messages.Version("P1")

	replaced, found := settle(e.store.Messages, "P1", "m1",
		models.Message{ID: "srv-1", PatientID: "P1", Body: "x", Timestamp: t0, ClientRef: "m1"}, nil)
	assert.False(t, found)
	assert.Empty(t, replaced)
	assert.Equal(t, v, e.store.Messages.Version("P1"))
	assert.Equal(t, []string{"other"}, []string{e.store.Messages.Get("P1")[0].ID})
}

func TestNewID_SuffixesWithinSameMillisecond(t *testing.T) {
	e := newEnv(t)
	a := e.ctrl.newID()
	b := e.ctrl.newID()
	e.advance(time.Millisecond)
	c := e.ctrl.newID()

	assert.Equal(t, "optimistic-1704103200000", a)
	assert.Equal(t, "optimistic-1704103200000-1", b)
	assert.Equal(t, "optimistic-1704103200001", c)
}

func TestSweep_FailsStalePendingNotInFlight(t *testing.T) {
	e := newEnv(t)
	e.store.Messages.SetAll("P1", []models.Message{
		{ID: "old", Body: "x", Timestamp: t0.Add(-time.Hour), Status: models.StatusPending},
	})
	gate := e.api.gate("live")
	_, err := e.ctrl.SendMessage(context.Background(), MessageRequest{PatientID: "P1", DoctorID: "D1", Body: "y", OptimisticID: "live", Timestamp: t0.Add(-time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, 1, e.ctrl.Sweep())

	old, _ := e.store.Messages.Find("P1", "old")
	assert.Equal(t, models.StatusFailed, old.Status)
	live, _ := e.store.Messages.Find("P1", "live")
	assert.Equal(t, models.StatusPending, live.Status)

	gate <- result{err: client.ErrUnavailable}
	e.next(t)
}
