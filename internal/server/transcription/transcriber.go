// Package transcription turns voice logs into diarised transcripts by
// calling an external speech-to-text service.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/netx"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/sethvargo/go-retry"
)

const maxErrorBody = 16 << 10

var errUpstream = errors.New("transcriber unavailable")

// Audio is one recording to transcribe.
type Audio struct {
	Data        []byte
	ContentType string
	FileName    string
}

type Result struct {
	Text     string
	Segments []models.TranscriptSegment
}

type Transcriber interface {
	// Transcribe returns common.ErrNoSpeech when the audio holds no speech.
	Transcribe(ctx context.Context, a Audio) (*Result, error)
}

// HTTPTranscriber posts audio as multipart form data to
// {baseURL}/transcribe and expects {"text": ..., "segments": [...]}.
type HTTPTranscriber struct {
	baseURL string
	client  *http.Client
	retries uint64
	backoff time.Duration
}

func NewHTTPTranscriber(baseURL string, client *http.Client) *HTTPTranscriber {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPTranscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		retries: 2,
		backoff: 250 * time.Millisecond,
	}
}

type response struct {
	Text     string                     `json:"text"`
	Segments []models.TranscriptSegment `json:"segments"`
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, a Audio) (*Result, error) {
	body, ct, err := netx.Multipart(nil, netx.File{
		Field: "file", FileName: a.FileName, ContentType: a.ContentType, Data: a.Data,
	})
	if err != nil {
		return nil, err
	}
	payload := body.Bytes()

	var out response
	b := retry.WithMaxRetries(t.retries, retry.NewExponential(t.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		err := t.post(ctx, payload, ct, &out)
		if errors.Is(err, errUpstream) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Text: strings.TrimSpace(out.Text), Segments: out.Segments}
	if res.Text == "" {
		res.Text = joinSegments(out.Segments)
	}
	if res.Text == "" {
		return nil, common.ErrNoSpeech
	}
	return res, nil
}

func (t *HTTPTranscriber) post(ctx context.Context, payload []byte, contentType string, out *response) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcribe", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return common.ErrNoSpeech
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s (%s)", errUpstream, resp.Status, netx.ReadBody(resp.Body, maxErrorBody))
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("transcriber error: %s (%s)", resp.Status, netx.ReadBody(resp.Body, maxErrorBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode transcript: %w", err)
	}
	return nil
}

func joinSegments(segs []models.TranscriptSegment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// Disabled is used when no transcriber is configured. Recordings are kept
// without a transcript.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, Audio) (*Result, error) {
	return &Result{}, nil
}
