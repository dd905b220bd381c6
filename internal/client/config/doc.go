// Package config loads runtime configuration for the loansync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and LOANSYNC_* environment
//     variables (see parseEnv).
//  3. Optional JSON file (see parseJSON) selected via -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-l string   local store path
//	-r string   remote store DSN (postgres://...)
//	-i int      online status check interval (seconds)
//	-e string   gRPC health endpoint probed next to the remote store
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "local_dsn": "data/loansync.db",
//	  "remote_dsn": "postgres://loans@db/loans",
//	  "online_check_interval": "3s",
//	  "health_endpoint": "db-proxy:50051",
//	  "log_file": "logs/loansync.log",
//	  "log_format": "json",
//	  "log_level": "info"
//	}
package config
