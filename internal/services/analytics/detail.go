package analytics

import (
	"sort"

	"prismatics/internal/domain/event"
)

// PhaseTime is the average processing time of one pipeline stage.
type PhaseTime struct {
	Name string  `json:"name"`
	Time float64 `json:"time"`
}

// TokenSplit is one half of the prompt-vs-completion breakdown.
type TokenSplit struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// LatencyPercentiles holds nearest-rank latency percentiles in ms.
type LatencyPercentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// ErrorTrend counts occurrences of one distinct error text.
type ErrorTrend struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RequestTypeMetric summarizes latency and reliability per request type.
type RequestTypeMetric struct {
	Name            string  `json:"name"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	SuccessRate     float64 `json:"successRate"`
}

// StageUtilization aggregates token spend for one pipeline stage.
// AvgTokensPerQuery is nil when the stage never reported a total,
// which is different from averaging to zero.
type StageUtilization struct {
	Name              string   `json:"name"`
	TotalTokens       float64  `json:"totalTokens"`
	AvgTokensPerQuery *float64 `json:"avgTokensPerQuery"`
}

// AnalyticsReport is the payload for the analytics-detail view.
type AnalyticsReport struct {
	PhaseBreakdown      []PhaseTime         `json:"phaseBreakdown"`
	TokenBreakdown      []TokenSplit        `json:"tokenBreakdown"`
	RequestTypeMetrics  []RequestTypeMetric `json:"requestTypeMetrics"`
	LatencyPercentiles  LatencyPercentiles  `json:"latencyPercentiles"`
	ErrorTrends         []ErrorTrend        `json:"errorTrends"`
	ResourceUtilization []StageUtilization  `json:"resourceUtilization"`
}

func computePhaseBreakdown(events []event.Event) []PhaseTime {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, e := range events {
		for stage, ms := range e.StageLatencies {
			sums[stage] += ms
			counts[stage]++
		}
	}

	out := make([]PhaseTime, 0, len(sums))
	for stage, sum := range sums {
		out = append(out, PhaseTime{
			Name: stage,
			Time: Round(sum/float64(counts[stage]), 2),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func computeTokenBreakdown(events []event.Event) []TokenSplit {
	var prompt, completion float64
	for _, e := range events {
		for _, st := range e.TokenUsage {
			if st.Prompt != nil {
				prompt += *st.Prompt
			}
			if st.Completion != nil {
				completion += *st.Completion
			}
		}
	}
	return []TokenSplit{
		{Name: "Prompt Tokens", Value: prompt},
		{Name: "Completion Tokens", Value: completion},
	}
}

func computeLatencyPercentiles(events []event.Event) LatencyPercentiles {
	values := make([]float64, 0, len(events))
	for _, e := range events {
		if e.LatencyMs != nil {
			values = append(values, *e.LatencyMs)
		}
	}
	sort.Float64s(values)

	return LatencyPercentiles{
		P50: Percentile(values, 0.5),
		P95: Percentile(values, 0.95),
		P99: Percentile(values, 0.99),
	}
}

func computeErrorTrends(events []event.Event) []ErrorTrend {
	counts := make(map[string]int)
	for _, e := range events {
		if e.Succeeded || e.ErrorText == "" {
			continue
		}
		counts[e.ErrorText]++
	}

	out := make([]ErrorTrend, 0, len(counts))
	for text, count := range counts {
		out = append(out, ErrorTrend{Name: text, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func computeRequestTypeMetrics(events []event.Event) []RequestTypeMetric {
	type bucket struct {
		total        int
		successCount int
		latencySum   float64
		latencyCount int
	}
	byType := make(map[string]*bucket)

	for _, e := range events {
		name := e.RequestType
		if name == "" {
			name = "Unknown"
		}
		b := byType[name]
		if b == nil {
			b = &bucket{}
			byType[name] = b
		}
		b.total++
		if e.Succeeded {
			b.successCount++
		}
		if e.LatencyMs != nil {
			b.latencySum += *e.LatencyMs
			b.latencyCount++
		}
	}

	out := make([]RequestTypeMetric, 0, len(byType))
	for name, b := range byType {
		m := RequestTypeMetric{
			Name:        name,
			SuccessRate: SuccessRate(b.successCount, b.total),
		}
		if b.latencyCount > 0 {
			m.AvgResponseTime = Round(b.latencySum/float64(b.latencyCount), 0)
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgResponseTime != out[j].AvgResponseTime {
			return out[i].AvgResponseTime > out[j].AvgResponseTime
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// computeResourceUtilization flattens per-stage token usage across all
// events. The average denominator counts only events where the stage
// reported a total; events without the field are excluded, not zeroed.
func computeResourceUtilization(events []event.Event) []StageUtilization {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	seen := make(map[string]struct{})

	for _, e := range events {
		for stage, st := range e.TokenUsage {
			seen[stage] = struct{}{}
			if st.Total != nil {
				sums[stage] += *st.Total
				counts[stage]++
			}
		}
	}

	out := make([]StageUtilization, 0, len(seen))
	for stage := range seen {
		u := StageUtilization{
			Name:        stage,
			TotalTokens: sums[stage],
		}
		if counts[stage] > 0 {
			avg := Round(sums[stage]/float64(counts[stage]), 1)
			u.AvgTokensPerQuery = &avg
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTokens != out[j].TotalTokens {
			return out[i].TotalTokens > out[j].TotalTokens
		}
		return out[i].Name < out[j].Name
	})
	return out
}
