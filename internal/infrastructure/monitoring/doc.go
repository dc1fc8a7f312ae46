/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the backend
service, tracking HTTP requests, terminal session lifecycle, session store
operations, WebSocket traffic, and webhook deliveries.

# Features

- HTTP request metrics (latency, throughput, size)
- Terminal metrics (active sessions, spawns, output flushes, terminations)
- Session store metrics (operation counts, durations)
- WebSocket connection and message metrics
- Webhook delivery metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.SessionStarted()
	metrics.RecordSpawn("ClaudeCode", true)

	// Time store operations
	timer := monitoring.NewStoreTimer(metrics, "save")
	// ... perform operation ...
	timer.Stop(err)

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
