package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/flagx"
)

// Config holds runtime settings for the medscribe CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API, e.g. http://127.0.0.1:8080.
//   - HealthAddr: host:port of the gRPC health service.
//   - DBPath: local SQLite database (record snapshots, session, audio spool).
//   - StaleAfter: age at which a pending record is considered lost.
//   - OnlineCheckInterval: how often the client checks server reachability
//     and sweeps stale pending records.
//   - RequestTimeout: per-request HTTP timeout.
//   - WrapWidth: column at which the timeline wraps message bodies.
type Config struct {
	ServerURL           string
	HealthAddr          string
	DBPath              string
	StaleAfter          time.Duration
	OnlineCheckInterval time.Duration
	LogLevel            string
	RequestTimeout      time.Duration
	WrapWidth           int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.DBPath = defaultDBPath()
	c.StaleAfter = 2 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "info"
	c.RequestTimeout = 60 * time.Second
	c.WrapWidth = 80
}

// LogPath is the CLI log file, kept next to the database.
func (c *Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.DBPath), "medscribe.log")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".medscribe", "client.db")
	}
	return filepath.Join(home, ".medscribe", "client.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, flagx.StripArgs(args)); err != nil {
		return nil, err
	}
	return cfg, nil
}
