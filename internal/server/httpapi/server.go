// Package httpapi is the REST API used by the medscribe client.
//
// Errors are returned as {"detail": {"code": ..., "message": ...}}. An
// expired access token gives 401 with code token_expired, which tells the
// client to refresh its tokens and retry once.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/dmitrijs2005/medscribe/internal/server/metrics"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/services"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 50 << 20
	shutdownGrace = 10 * time.Second
)

type AuthService interface {
	Register(ctx context.Context, name, email string, password []byte) (*models.Doctor, error)
	Login(ctx context.Context, email string, password []byte) (*models.Doctor, *services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(accessToken string) (string, error)
}

type PatientService interface {
	Create(ctx context.Context, doctorID string, in models.Patient) (*models.Patient, error)
	Get(ctx context.Context, doctorID, id string) (*models.Patient, error)
	List(ctx context.Context, doctorID string) ([]models.Patient, error)
}

type ConversationService interface {
	CreateText(ctx context.Context, in services.TextInput) (*models.Conversation, error)
	CreateVoice(ctx context.Context, in services.VoiceInput) (*services.Recording, error)
	ListMessages(ctx context.Context, doctorID, patientID string) ([]models.Conversation, error)
	ListRecordings(ctx context.Context, doctorID, patientID string) ([]services.Recording, error)
	OpenMedia(ctx context.Context, doctorID, key string) (io.ReadCloser, string, error)
}

type QAService interface {
	Ask(ctx context.Context, doctorID, patientID, query, clientRef string) (*models.QAExchange, error)
	History(ctx context.Context, doctorID, patientID string) ([]models.QAExchange, error)
}

type Server struct {
	address       string
	logger        logging.Logger
	metrics       *metrics.Metrics
	auth          AuthService
	patients      PatientService
	conversations ConversationService
	qa            QAService
}

func NewServer(address string, l logging.Logger, m *metrics.Metrics,
	a AuthService, p PatientService, c ConversationService, q QAService) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "http_server"),
		metrics:       m,
		auth:          a,
		patients:      p,
		conversations: c,
		qa:            q,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /api/auth/register", s.handleRegister)
	s.route(mux, "POST /api/auth/login", s.handleLogin)
	s.route(mux, "POST /api/auth/refresh", s.handleRefresh)

	s.route(mux, "GET /api/patients", s.authenticated(s.handleListPatients))
	s.route(mux, "POST /api/patients", s.authenticated(s.handleCreatePatient))
	s.route(mux, "GET /api/patients/{id}", s.authenticated(s.handleGetPatient))

	s.route(mux, "POST /api/conversation/{$}", s.authenticated(s.handleCreateConversation))
	s.route(mux, "GET /api/conversation/{patientId}/messages", s.authenticated(s.handleListMessages))
	s.route(mux, "GET /api/conversation/{patientId}/recordings", s.authenticated(s.handleListRecordings))

	s.route(mux, "POST /api/qa/semantic-query", s.authenticated(s.handleAsk))
	s.route(mux, "GET /api/qa/history/{patientId}", s.authenticated(s.handleHistory))

	s.route(mux, "GET /api/media/{key...}", s.authenticated(s.handleMedia))

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
