package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/aichat"
	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/config"
	"github.com/dmitrijs2005/medscribe/internal/client/media"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/optimistic"
	"github.com/dmitrijs2005/medscribe/internal/client/services"
	"github.com/dmitrijs2005/medscribe/internal/client/store"
	"github.com/dmitrijs2005/medscribe/internal/filex"
	"github.com/dmitrijs2005/medscribe/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	authService    services.AuthService
	patientService services.PatientService
	controller     *optimistic.Controller
	assistant      *aichat.Assistant
	store          *store.Store
	tracker        *store.Tracker
	spool          *media.Spool
	reader         *bufio.Reader
	out            io.Writer
	now            func() time.Time
	closers        []func() error

	mu      sync.RWMutex
	session *models.Session
	patient *models.Patient
	Mode    Mode
}

// NewApp opens the local database, restores the persisted record store and
// wires the services of the CLI.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logFile, err := openLog(c.LogPath())
	if err != nil {
		return nil, err
	}
	logger := logging.New(logFile, c.LogLevel, false)

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	repos := client.NewRepositories(db)

	a := &App{
		config:  c,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		now:     time.Now,
		closers: []func() error{db.Close, logFile.Close},
	}

	apiClient, err := client.NewHTTPClient(c.ServerURL, c.HealthAddr,
		client.WithHTTPClient(&http.Client{Timeout: c.RequestTimeout}),
		client.WithLogger(logger),
		client.WithTokenListener(a.saveTokens),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	a.authService = services.NewAuthService(apiClient, db)
	a.patientService = services.NewPatientService(apiClient, repos.Metadata)
	a.store = store.New(repos.Snapshots, logger)
	a.tracker = store.NewTracker()
	a.spool = media.NewSpool(repos.Spool)
	a.assistant = aichat.NewAssistant(apiClient, a.store, logger)
	a.controller = optimistic.New(apiClient, a.store, a.tracker, media.NewRegistry(),
		optimistic.WithSpool(a.spool),
		optimistic.WithLogger(logger),
		optimistic.WithStaleAfter(c.StaleAfter),
		optimistic.WithEvents(a.printEvent),
	)

	n, err := a.store.Rehydrate(ctx, a.now(), c.StaleAfter)
	if err != nil {
		a.close()
		return nil, err
	}
	if n > 0 {
		logger.Info(ctx, "pending records from a previous run marked failed", "count", n)
	}
	return a, nil
}

func openLog(path string) (*os.File, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(abs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func (a *App) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.Mode != mode
	a.Mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "mode switched", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Mode
}

// Run blocks in the REPL until the user exits, then waits for in-flight
// submissions and releases resources.
func (a *App) Run(ctx context.Context) {
	defer a.close()
	defer a.authService.Close(ctx)
	defer a.controller.Wait()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session != nil
}

func (a *App) currentSession() *models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// doctorID is empty when nobody is signed in.
func (a *App) doctorID() string {
	if s := a.currentSession(); s != nil {
		return s.DoctorID
	}
	return ""
}

func (a *App) currentPatient() *models.Patient {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.patient
}

func (a *App) saveTokens(access, refresh string) {
	if err := a.authService.SaveTokens(context.Background(), access, refresh); err != nil {
		a.logger.Warn(context.Background(), "save rotated tokens", "error", err)
	}
}

// StartOnlineStatusWatcher checks the server every interval and fails
// pending records that have been waiting too long.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pctx)
	cancel()

	switch {
	case err != nil && a.mode() == ModeOnline:
		a.setMode(ModeOffline)
	case err == nil && a.mode() != ModeOnline && a.isLoggedIn():
		a.setMode(ModeOnline)
	}

	if n := a.controller.Sweep(); n > 0 {
		printlnFn(styles.failed.Render(fmt.Sprintf("%d pending record(s) timed out; use 'retry <id>'.", n)))
	}
}
