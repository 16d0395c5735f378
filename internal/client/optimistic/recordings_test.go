package optimistic

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audio() *models.Media {
	return &models.Media{Data: []byte{0x1a, 0x45, 0xdf, 0xa3, 1, 2, 3}, ContentType: "audio/webm", FileName: "recording.webm"}
}

func noSpeech() error {
	return client.ParseErrorBody(422, []byte(`{"detail":{"code":"no_speech_detected","message":"No speech was detected."}}`))
}

func TestSendRecording_PlaceholderIsPlayable(t *testing.T) {
	e := newEnv(t)
	gate := e.api.gate("r1")

	id, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: 4, OptimisticID: "r1"})
	require.NoError(t, err)

	r, ok := e.store.Recordings.Find("P1", id)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.True(t, r.Ephemeral())
	m, ok := e.handles.Resolve(r.URL)
	require.True(t, ok)
	assert.Equal(t, audio().Data, m.Data)
	assert.Equal(t, "r1", r.SourceRef)
	assert.True(t, e.spool.Has(context.Background(), "r1"))

	gate <- result{rec: &models.Recording{ID: "srv-1", URL: "https://api/media/srv-1.webm", Timestamp: t0, ClientRef: "r1", Transcript: "hello"}}
	e.next(t)

	list := e.store.Recordings.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, "srv-1", list[0].ID)
	assert.Equal(t, models.StatusSent, list[0].Status)
	assert.Nil(t, list[0].Source)
	assert.Equal(t, 4.0, list[0].Duration)
	assert.Zero(t, e.handles.Len(), "handle revoked on success")
	assert.False(t, e.spool.Has(context.Background(), "r1"), "spooled audio dropped on success")
}

func TestSendRecording_Rejected(t *testing.T) {
	e := newEnv(t)
	for _, req := range []RecordingRequest{
		{PatientID: "P1", DoctorID: "D1"},
		{PatientID: "P1", DoctorID: "D1", Audio: &models.Media{}},
		{DoctorID: "D1", Audio: audio()},
		{PatientID: "P1", Audio: audio()},
		{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: -1},
	} {
		_, err := e.ctrl.SendRecording(context.Background(), req)
		require.ErrorIs(t, err, ErrRejected)
	}
	assert.Zero(t, e.handles.Len())
	assert.Empty(t, e.store.Recordings.Get("P1"))
}

func TestSendRecording_NoSpeechIsTerminal(t *testing.T) {
	e := newEnv(t)
	e.api.defaultErr = noSpeech()

	id, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: 2})
	require.NoError(t, err)
	ev := e.next(t)
	assert.Equal(t, common.ErrorCodeNoSpeech, ev.ErrorCode)

	r, ok := e.store.Recordings.Find("P1", id)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, r.Status)
	assert.Equal(t, common.ErrorCodeNoSpeech, r.ErrorCode)
	assert.Equal(t, "No speech was detected.", r.Error)
	assert.True(t, r.Terminal())

	assert.False(t, e.ctrl.CanRetry(context.Background(), models.KindRecordings, "P1", id))
	require.ErrorIs(t, e.ctrl.RetryRecording(context.Background(), "P1", id), ErrRejected)

	e.advance(time.Hour)
	e.ctrl.Sweep()
	e.ctrl.Wait()

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	assert.Len(t, e.api.recInputs, 1)
}

func TestSendRecording_GenericFailureKeepsSource(t *testing.T) {
	e := newEnv(t)
	e.api.defaultErr = client.ParseErrorBody(500, []byte("<html>oops</html>"))

	id, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: 3})
	require.NoError(t, err)
	ev := e.next(t)
	assert.Empty(t, ev.ErrorCode)
	assert.Equal(t, client.GenericMessage, ev.Message)

	r, _ := e.store.Recordings.Find("P1", id)
	assert.Equal(t, models.StatusFailed, r.Status)
	assert.False(t, r.Terminal())
	assert.Equal(t, audio().Data, r.Source.Data)
	assert.Equal(t, 1, e.handles.Len(), "failed placeholder stays playable")
	assert.True(t, e.ctrl.CanRetry(context.Background(), models.KindRecordings, "P1", id))
}

func TestRetryRecording_ResubmitsIdenticalContent(t *testing.T) {
	e := newEnv(t)
	e.api.defaultErr = client.ErrUnavailable

	id, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: 7.5})
	require.NoError(t, err)
	e.next(t)

	e.advance(10 * time.Minute)
	e.api.defaultErr = nil
	gate := e.api.gate(id)
	require.NoError(t, e.ctrl.RetryRecording(context.Background(), "P1", id))

	list := e.store.Recordings.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusPending, list[0].Status)
	assert.Equal(t, 1, e.handles.Len(), "handle reused on retry")

	gate <- result{rec: &models.Recording{ID: "srv-7", URL: "https://api/x", Timestamp: t0, ClientRef: id}}
	e.next(t)

	list = e.store.Recordings.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusSent, list[0].Status)
	assert.Zero(t, e.handles.Len())

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	require.Len(t, e.api.recInputs, 2)
	first, second := e.api.recInputs[0], e.api.recInputs[1]
	assert.Equal(t, first.Audio.Data, second.Audio.Data)
	assert.Equal(t, first.Duration, second.Duration)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))
	assert.Equal(t, id, second.ClientRef)
}

func TestRetryRecording_AfterRestartUsesSpool(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.spool.Put(ctx, "r1", audio()))
	e.store.Recordings.SetAll("P1", []models.Recording{{
		ID: "r1", PatientID: "P1", DoctorID: "D1", URL: "blob:dead", Timestamp: t0, Duration: 5,
		Status: models.StatusFailed, ClientRef: "r1", SourceRef: "r1",
	}})
	require.NoError(t, e.spool.Put(ctx, "orphan", audio()))

	n, err := e.ctrl.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, e.spool.Has(ctx, "orphan"))

	r, _ := e.store.Recordings.Find("P1", "r1")
	assert.True(t, r.Ephemeral())
	_, live := e.handles.Resolve(r.URL)
	assert.True(t, live)

	require.NoError(t, e.ctrl.RetryRecording(ctx, "P1", "r1"))
	e.next(t)

	e.api.mu.Lock()
	require.Len(t, e.api.recInputs, 1)
	assert.Equal(t, audio().Data, e.api.recInputs[0].Audio.Data)
	assert.Equal(t, 5.0, e.api.recInputs[0].Duration)
	e.api.mu.Unlock()
	assert.Zero(t, e.handles.Len())
}

func TestRetryRecording_WithoutAudioRejected(t *testing.T) {
	e := newEnv(t)
	e.store.Recordings.SetAll("P1", []models.Recording{{ID: "r1", Timestamp: t0, Status: models.StatusFailed}})

	assert.False(t, e.ctrl.CanRetry(context.Background(), models.KindRecordings, "P1", "r1"))
	require.ErrorIs(t, e.ctrl.RetryRecording(context.Background(), "P1", "r1"), ErrRejected)
}

func TestSendRecording_KeepsTranscriptFromRefresh(t *testing.T) {
	e := newEnv(t)
	gate := e.api.gate("r1")

	_, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: audio(), Duration: 1, OptimisticID: "r1"})
	require.NoError(t, err)

	transcribed := models.Recording{ID: "srv-1", URL: "https://api/a", Timestamp: t0, ClientRef: "r1", Transcript: "patient reports headache"}
	e.api.setServer(nil, []models.Recording{transcribed})
	require.NoError(t, e.ctrl.Refresh(context.Background(), "P1"))

	bare := transcribed
	bare.Transcript = ""
	gate <- result{rec: &bare}
	e.next(t)

	list := e.store.Recordings.Get("P1")
	require.Len(t, list, 1)
	assert.Equal(t, "patient reports headache", list[0].Transcript)
	assert.Zero(t, e.handles.Len())
}

func TestSendRecording_DurationReadFromWAV(t *testing.T) {
	e := newEnv(t)
	wav := &models.Media{Data: wavBytes(16000, 32000), ContentType: "audio/wav"}

	id, err := e.ctrl.SendRecording(context.Background(), RecordingRequest{PatientID: "P1", DoctorID: "D1", Audio: wav})
	require.NoError(t, err)
	e.next(t)

	e.api.mu.Lock()
	defer e.api.mu.Unlock()
	require.Len(t, e.api.recInputs, 1)
	assert.InDelta(t, 1.0, e.api.recInputs[0].Duration, 0.001)
	assert.Equal(t, id, e.api.recInputs[0].ClientRef)
}

// wavBytes is a mono 16-bit PCM WAV header followed by dataBytes of silence.
func wavBytes(sampleRate, dataBytes int) []byte {
	b := make([]byte, 44+dataBytes)
	copy(b[0:], "RIFF")
	binary.LittleEndian.PutUint32(b[4:], uint32(36+dataBytes))
	copy(b[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(b[16:], 16)
	binary.LittleEndian.PutUint16(b[20:], 1)
	binary.LittleEndian.PutUint16(b[22:], 1)
	binary.LittleEndian.PutUint32(b[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(b[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(b[32:], 2)
	binary.LittleEndian.PutUint16(b[34:], 16)
	copy(b[36:], "data")
	binary.LittleEndian.PutUint32(b[40:], uint32(dataBytes))
	return b
}
