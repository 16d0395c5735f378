package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/dmitrijs2005/medscribe/internal/netx"
	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const maxErrorBody = 64 << 10

// HTTPClient talks to the REST API. Access tokens are refreshed once on
// expiry. Idempotent GETs are retried with exponential backoff while the
// server is unavailable; creates are never retried here, retrying them is
// the user's decision.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger

	retries uint64
	backoff time.Duration

	healthConn *grpc.ClientConn
	health     healthpb.HealthClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onTokens     func(access, refresh string)

	refreshMu sync.Mutex
}

type Option func(*HTTPClient)

func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func WithRetry(max uint64, base time.Duration) Option {
	return func(c *HTTPClient) {
		c.retries = max
		c.backoff = base
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// WithTokenListener is called after tokens rotate so they can be persisted.
func WithTokenListener(fn func(access, refresh string)) Option {
	return func(c *HTTPClient) { c.onTokens = fn }
}

// NewHTTPClient builds a client for the API at baseURL. healthAddr is the
// gRPC health endpoint used by Ping; grpc.NewClient does not dial eagerly.
func NewHTTPClient(baseURL, healthAddr string, opts ...Option) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logging.Discard(),
		retries: 3,
		backoff: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}

	conn, err := grpc.NewClient(healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("health client: %w", err)
	}
	c.healthConn = conn
	c.health = healthpb.NewHealthClient(conn)
	return c, nil
}

func (c *HTTPClient) Close() error {
	return c.healthConn.Close()
}

// Ping asks the gRPC health service whether the API is serving.
func (c *HTTPClient) Ping(ctx context.Context) error {
	b := retry.WithMaxRetries(1, retry.NewConstant(100*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("%w: %s", ErrUnavailable, resp.GetStatus())
		}
		return nil
	})
}

func (c *HTTPClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	c.mu.Unlock()
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	anonymous   bool
}

func jsonRequest(method, path string, v any) (request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return request{}, err
	}
	return request{method: method, path: path, body: b, contentType: "application/json"}, nil
}

// send performs req, refreshing the access token once if the server reports
// it expired.
func (c *HTTPClient) send(ctx context.Context, req request, out any) error {
	access, _ := c.tokens()
	err := c.once(ctx, req, access, out)
	if !errors.Is(err, common.ErrTokenExpired) || req.anonymous {
		return err
	}
	if rerr := c.refresh(ctx, access); rerr != nil {
		c.logger.Warn(ctx, "token refresh failed", "error", rerr)
		return err
	}
	access, _ = c.tokens()
	return c.once(ctx, req, access, out)
}

func (c *HTTPClient) once(ctx context.Context, req request, access string, out any) error {
	hr, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bytes.NewReader(req.body))
	if err != nil {
		return err
	}
	if req.contentType != "" {
		hr.Header.Set("Content-Type", req.contentType)
	}
	hr.Header.Set("Accept", "application/json")
	if access != "" && !req.anonymous {
		hr.Header.Set(common.AuthorizationHeader, common.BearerPrefix+access)
	}

	resp, err := c.http.Do(hr)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return mapError(resp.StatusCode, netx.ReadBody(resp.Body, maxErrorBody))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.send(ctx, request{method: http.MethodGet, path: path}, out)
		if errors.Is(err, ErrUnavailable) {
			c.logger.Debug(ctx, "retrying", "path", path, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refresh rotates the token pair unless another caller already replaced the
// access token that failed.
func (c *HTTPClient) refresh(ctx context.Context, failed string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	access, rt := c.tokens()
	if access != failed {
		return nil
	}
	if rt == "" {
		return common.ErrUnauthorized
	}

	req, err := jsonRequest(http.MethodPost, "/api/auth/refresh", tokenPair{RefreshToken: rt})
	if err != nil {
		return err
	}
	req.anonymous = true

	var out tokenPair
	if err := c.once(ctx, req, "", &out); err != nil {
		return err
	}
	c.SetTokens(out.AccessToken, out.RefreshToken)
	if c.onTokens != nil {
		c.onTokens(out.AccessToken, out.RefreshToken)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, name, email string, password []byte) error {
	req, err := jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": string(password),
	})
	if err != nil {
		return err
	}
	req.anonymous = true
	return c.send(ctx, req, nil)
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	req, err := jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": string(password),
	})
	if err != nil {
		return nil, err
	}
	req.anonymous = true

	var s models.Session
	if err := c.send(ctx, req, &s); err != nil {
		return nil, err
	}
	c.SetTokens(s.AccessToken, s.RefreshToken)
	return &s, nil
}

func (c *HTTPClient) ListPatients(ctx context.Context) ([]models.Patient, error) {
	var out []models.Patient
	if err := c.get(ctx, "/api/patients", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	var out models.Patient
	if err := c.get(ctx, "/api/patients/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreatePatient(ctx context.Context, in models.PatientInput) (*models.Patient, error) {
	req, err := jsonRequest(http.MethodPost, "/api/patients", in)
	if err != nil {
		return nil, err
	}
	var out models.Patient
	if err := c.send(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func timestampField(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (c *HTTPClient) CreateMessage(ctx context.Context, in MessageInput) (*models.Message, error) {
	body, ct, err := netx.Multipart([]netx.Field{
		{Name: "patientId", Value: in.PatientID},
		{Name: "doctorId", Value: in.DoctorID},
		{Name: "inputMode", Value: "text"},
		{Name: "conversationType", Value: in.ConversationType},
		{Name: "fullTranscript", Value: in.Body},
		{Name: "clientRef", Value: in.ClientRef},
		{Name: "timestamp", Value: timestampField(in.Timestamp)},
	})
	if err != nil {
		return nil, err
	}

	var out models.Message
	err = c.send(ctx, request{method: http.MethodPost, path: "/api/conversation/", body: body.Bytes(), contentType: ct}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateRecording(ctx context.Context, in RecordingInput) (*models.Recording, error) {
	if in.Audio.Empty() {
		return nil, fmt.Errorf("%w: empty audio", common.ErrInvalidInput)
	}
	name := in.Audio.FileName
	if name == "" {
		name = "recording.webm"
	}

	body, ct, err := netx.Multipart([]netx.Field{
		{Name: "patientId", Value: in.PatientID},
		{Name: "doctorId", Value: in.DoctorID},
		{Name: "inputMode", Value: "voice"},
		{Name: "conversationType", Value: in.ConversationType},
		{Name: "clientRef", Value: in.ClientRef},
		{Name: "timestamp", Value: timestampField(in.Timestamp)},
		{Name: "duration", Value: strconv.FormatFloat(in.Duration, 'f', -1, 64)},
	}, netx.File{Field: "file", FileName: name, ContentType: in.Audio.ContentType, Data: in.Audio.Data})
	if err != nil {
		return nil, err
	}

	var out models.Recording
	err = c.send(ctx, request{method: http.MethodPost, path: "/api/conversation/", body: body.Bytes(), contentType: ct}, &out)
	if err != nil {
		return nil, err
	}
	out.URL = netx.ResolveURL(c.baseURL, out.URL)
	return &out, nil
}

func (c *HTTPClient) ListMessages(ctx context.Context, patientID string) ([]models.Message, error) {
	var out []models.Message
	if err := c.get(ctx, "/api/conversation/"+url.PathEscape(patientID)+"/messages", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) ListRecordings(ctx context.Context, patientID string) ([]models.Recording, error) {
	var out []models.Recording
	if err := c.get(ctx, "/api/conversation/"+url.PathEscape(patientID)+"/recordings", &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].URL = netx.ResolveURL(c.baseURL, out[i].URL)
	}
	return out, nil
}

func (c *HTTPClient) AskAI(ctx context.Context, q AIQuery) (*AIReply, error) {
	req, err := jsonRequest(http.MethodPost, "/api/qa/semantic-query", q)
	if err != nil {
		return nil, err
	}
	var out AIReply
	if err := c.send(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AIHistory(ctx context.Context, patientID string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := c.get(ctx, "/api/qa/history/"+url.PathEscape(patientID), &out); err != nil {
		return nil, err
	}
	return out, nil
}
