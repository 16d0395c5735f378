// Package config loads runtime configuration for the medscribe CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string    base URL of the REST API
//	-g string    address of the gRPC health service
//	-d string    local database path
//	-s duration  stale-after age for pending records
//	-i int       online status check interval (seconds)
//	-l string    log level
//	-t duration  HTTP request timeout
//	-w int       timeline wrap width
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "db_path": "/home/doc/.medscribe/client.db",
//	  "stale_after": "2m",
//	  "online_check_interval": "3s"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
