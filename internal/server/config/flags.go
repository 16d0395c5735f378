package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g., ":8080")
//	-g string    gRPC health bind address (e.g., ":50051")
//	-d string    PostgreSQL DSN
//	-k string    JWT HMAC secret key
//	-t int       access token validity, minutes
//	-r int       refresh token validity, minutes
//	-u string    S3 root user
//	-p string    S3 root password
//	-b string    S3 bucket name (empty keeps audio in memory)
//	-e string    S3 region
//	-s string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-x string    transcriber URL
//	-w duration  transcription wait
//	-m string    LLM URL
//	-n string    LLM model
//	-l string    log level
//
// Duration flags -t and -r are accepted as integers in minutes and then
// converted to time.Duration values.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("medscribe-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port of the health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "k", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "e", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "s", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.TranscriberURL, "x", config.TranscriberURL, "transcriber URL")
	fs.DurationVar(&config.TranscriptionWait, "w", config.TranscriptionWait, "how long uploads wait for a transcript")
	fs.StringVar(&config.LLMURL, "m", config.LLMURL, "LLM URL")
	fs.StringVar(&config.LLMModel, "n", config.LLMModel, "LLM model")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	return nil
}
