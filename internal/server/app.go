// Package server wires the medscribe backend: the Postgres repositories, the
// audio store, transcription, the assistant, the REST API and the gRPC health
// service.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/logging"
	"github.com/dmitrijs2005/medscribe/internal/server/config"
	"github.com/dmitrijs2005/medscribe/internal/server/httpapi"
	"github.com/dmitrijs2005/medscribe/internal/server/llm"
	"github.com/dmitrijs2005/medscribe/internal/server/metrics"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medscribe/internal/server/services"
	"github.com/dmitrijs2005/medscribe/internal/server/storage"
	"github.com/dmitrijs2005/medscribe/internal/server/transcription"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/medscribe/internal/server/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	transcriberTimeout = 5 * time.Minute
	llmTimeout         = 2 * time.Minute
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	conversations *services.ConversationService
	httpServer    *httpapi.Server
	grpcServer    *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, true)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := newStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	m := metrics.New()
	auth := services.NewAuthService(db, rm, c)
	patients := services.NewPatientService(db, rm)
	conversations := services.NewConversationService(db, rm, store, newTranscriber(c),
		c.TranscriptionWait, m, logger)
	qa := services.NewQAService(db, rm,
		llm.NewOllamaClient(c.LLMURL, c.LLMModel, &http.Client{Timeout: llmTimeout}), logger)

	app := &App{
		config:        c,
		logger:        logger,
		db:            db,
		conversations: conversations,
		httpServer:    httpapi.NewServer(c.EndpointAddrHTTP, logger, m, auth, patients, conversations, qa),
		grpcServer:    gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db.PingContext),
	}
	return app, nil
}

// newStore keeps audio in S3 when a bucket is configured and in memory
// otherwise.
func newStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	if c.S3Bucket == "" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewS3Store(ctx, storage.S3Config{
		Region:     c.S3Region,
		Endpoint:   c.S3BaseEndpoint,
		AccessKey:  c.S3RootUser,
		SecretKey:  c.S3RootPassword,
		Bucket:     c.S3Bucket,
		PresignTTL: c.PresignTTL,
	})
}

func newTranscriber(c *config.Config) transcription.Transcriber {
	if c.TranscriberURL == "" {
		return transcription.Disabled{}
	}
	return transcription.NewHTTPTranscriber(c.TranscriberURL, &http.Client{Timeout: transcriberTimeout})
}

// Run serves the REST API and the health service until ctx is cancelled or
// one of them fails, then waits for pending transcriptions and closes the
// database.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.httpServer.Run(gctx) })
	g.Go(func() error { return app.grpcServer.Run(gctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
	}

	app.conversations.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
