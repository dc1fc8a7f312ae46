package session

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats aggregates usage across stored sessions
type Stats struct {
	TotalSessions int `json:"totalSessions"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`

	TotalTokens    int64 `json:"totalTokens"`
	TotalToolCalls int64 `json:"totalToolCalls"`
	TotalErrors    int64 `json:"totalErrors"`

	MeanDurationSecs   float64 `json:"meanDurationSecs"`
	MedianDurationSecs float64 `json:"medianDurationSecs"`
	P95DurationSecs    float64 `json:"p95DurationSecs"`
	MeanTokens         float64 `json:"meanTokens"`

	ByAgent map[string]AgentStats `json:"byAgent"`
}

// AgentStats is the per-agent slice of the aggregate
type AgentStats struct {
	Sessions    int   `json:"sessions"`
	TotalTokens int64 `json:"totalTokens"`
}

// ComputeStats builds aggregate statistics from session summaries. Durations
// of still-running sessions are measured up to now.
func ComputeStats(summaries []Summary) Stats {
	s := Stats{
		TotalSessions: len(summaries),
		ByAgent:       make(map[string]AgentStats),
	}

	durations := make([]float64, 0, len(summaries))
	tokens := make([]float64, 0, len(summaries))

	for i := range summaries {
		sum := &summaries[i]

		switch sum.Status {
		case StatusRunning, StatusWaiting, StatusPaused:
			s.Running++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}

		s.TotalTokens += sum.Metrics.TotalTokens
		s.TotalToolCalls += int64(sum.Metrics.ToolCallCount)
		s.TotalErrors += int64(sum.Metrics.ErrorCount)

		sess := Session{StartedAt: sum.StartedAt, EndedAt: sum.EndedAt}
		durations = append(durations, sess.Duration().Seconds())
		tokens = append(tokens, float64(sum.Metrics.TotalTokens))

		agg := s.ByAgent[string(sum.AgentType)]
		agg.Sessions++
		agg.TotalTokens += sum.Metrics.TotalTokens
		s.ByAgent[string(sum.AgentType)] = agg
	}

	if len(durations) > 0 {
		s.MeanDurationSecs = stat.Mean(durations, nil)
		s.MeanTokens = stat.Mean(tokens, nil)

		sorted := make([]float64, len(durations))
		copy(sorted, durations)
		sort.Float64s(sorted)

		s.MedianDurationSecs = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		s.P95DurationSecs = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}

	return s
}
