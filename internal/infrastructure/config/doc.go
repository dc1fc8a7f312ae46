// Package config provides layered configuration for the backend.
//
// Configuration is built from three layers, later layers winning:
//  1. Compiled defaults (Default)
//  2. An optional TOML file passed via the -config flag
//  3. Environment variables
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, CORS origins)
//   - Terminal: reap interval, shutdown timeout, transcript recording
//   - Storage: session record data directory
//   - Webhook: optional session-event delivery endpoint
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault("")
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - REAP_INTERVAL, SHUTDOWN_TIMEOUT, RECORD_TRANSCRIPTS
//   - DATA_DIR, WEBHOOK_URL, WEBHOOK_TIMEOUT, WEBHOOK_MAX_RETRIES
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
