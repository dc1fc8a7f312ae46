/*
Package session persists agent session records and computes usage statistics.

# Overview

A session is the durable record of one agent run: conversation messages, tool
calls, token metrics, and optionally the captured terminal output. Records are
stored as one JSON document per session under the platform data directory
(AgentsMonitor/Sessions/<ID>.json), named by uppercase UUID so they remain
interchangeable with records written by the desktop apps.

# Features

- Atomic single-file persistence (write-then-rename)
- Summary decoding that skips transcripts for cheap listings
- Corrupt-record tolerance: bad files are logged and skipped
- Aggregate statistics (durations, tokens, per-agent breakdowns)

# Layout

	Sessions/
	  3E4B6A7C-90AD-4070-A2E5-6D7D03BBBF95.json
	  A0A80BD1-52C8-44F4-BC7B-1E9B3A5D9D9A.json

# Usage

	store, err := session.NewStore(dir, logger, metrics)
	sess := session.New("refactor auth", agent.ClaudeCode)
	err = store.Save(sess)
	all, err := store.LoadAllSummaries()
	stats := session.ComputeStats(all)
*/
package session
