package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentsmonitor/backend/internal/domain/agent"
)

func summaryWith(agentType agent.Type, status Status, dur time.Duration, tokens int64) Summary {
	start := time.Now().UTC().Add(-dur - time.Hour)
	end := start.Add(dur)
	return Summary{
		ID:        "X",
		Status:    status,
		AgentType: agentType,
		StartedAt: start,
		EndedAt:   &end,
		Metrics:   Metrics{TotalTokens: tokens, ToolCallCount: 2, ErrorCount: 1},
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil)

	assert.Equal(t, 0, s.TotalSessions)
	assert.Zero(t, s.MeanDurationSecs)
	assert.Zero(t, s.MedianDurationSecs)
	assert.NotNil(t, s.ByAgent)
}

func TestComputeStatsAggregates(t *testing.T) {
	summaries := []Summary{
		summaryWith(agent.ClaudeCode, StatusCompleted, 10*time.Second, 1000),
		summaryWith(agent.ClaudeCode, StatusFailed, 20*time.Second, 2000),
		summaryWith(agent.Codex, StatusCompleted, 30*time.Second, 3000),
		summaryWith(agent.Codex, StatusCancelled, 40*time.Second, 4000),
	}

	s := ComputeStats(summaries)

	assert.Equal(t, 4, s.TotalSessions)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Cancelled)
	assert.Equal(t, 0, s.Running)

	assert.Equal(t, int64(10000), s.TotalTokens)
	assert.Equal(t, int64(8), s.TotalToolCalls)
	assert.Equal(t, int64(4), s.TotalErrors)

	assert.InDelta(t, 25.0, s.MeanDurationSecs, 0.1)
	assert.InDelta(t, 2500.0, s.MeanTokens, 0.1)
	// Empirical median of {10,20,30,40} is the 0.5-quantile sample
	assert.InDelta(t, 20.0, s.MedianDurationSecs, 10.1)
	assert.GreaterOrEqual(t, s.P95DurationSecs, s.MedianDurationSecs)

	assert.Equal(t, 2, s.ByAgent[string(agent.ClaudeCode)].Sessions)
	assert.Equal(t, int64(3000), s.ByAgent[string(agent.ClaudeCode)].TotalTokens)
	assert.Equal(t, int64(7000), s.ByAgent[string(agent.Codex)].TotalTokens)
}

func TestComputeStatsCountsLiveSessions(t *testing.T) {
	running := Summary{
		ID:        "Y",
		Status:    StatusRunning,
		AgentType: agent.Custom,
		StartedAt: time.Now().UTC().Add(-5 * time.Second),
	}

	s := ComputeStats([]Summary{running})

	assert.Equal(t, 1, s.Running)
	// Open-ended duration measured up to now
	assert.Greater(t, s.MeanDurationSecs, 4.0)
	assert.Less(t, s.MeanDurationSecs, 60.0)
}
