/*
Package webhook delivers terminal lifecycle events to an external endpoint.

# Overview

When a webhook URL is configured, the backend posts a JSON event for every
session start and end. Delivery is asynchronous and best-effort: events are
queued, posted with retries, and guarded by a circuit breaker so a dead
endpoint never slows down the terminal pipeline.

# Payload

	{
	  "type": "session_ended",
	  "sessionId": "3E4B6A7C-...",
	  "outcome": "graceful",
	  "timestamp": "2025-06-01T12:00:00Z"
	}

# Usage

	notifier := webhook.New(cfg.Webhook, logger, metrics)
	notifier.SessionStarted(id, "ClaudeCode", pid)
	notifier.SessionEnded(id, "graceful")
	notifier.Close()

A nil notifier (no URL configured) is valid; all methods are no-ops.
*/
package webhook
