package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    base URL of the REST API
//	-g string    address of the gRPC health service
//	-d string    path of the local database
//	-s duration  age after which pending records fail
//	-i int       online check interval in seconds
//	-l string    log level (debug, info, warn, error)
//	-t duration  HTTP request timeout
//	-w int       timeline wrap width
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("medscribe", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "address and port of the gRPC health service")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the local database")
	fs.DurationVar(&cfg.StaleAfter, "s", cfg.StaleAfter, "age after which pending records are failed")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "HTTP request timeout")
	fs.IntVar(&cfg.WrapWidth, "w", cfg.WrapWidth, "timeline wrap width")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
