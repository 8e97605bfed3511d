package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismatics/internal/domain/event"
)

func TestComputePhaseBreakdown(t *testing.T) {
	events := []event.Event{
		{StageLatencies: map[string]float64{"retrieval": 100, "llm": 900}},
		{StageLatencies: map[string]float64{"retrieval": 200}},
		{},
	}

	phases := computePhaseBreakdown(events)

	require.Len(t, phases, 2)
	assert.Equal(t, PhaseTime{Name: "llm", Time: 900}, phases[0], "slowest stage first")
	assert.Equal(t, PhaseTime{Name: "retrieval", Time: 150}, phases[1])
}

func TestComputePhaseBreakdown_Empty(t *testing.T) {
	assert.Empty(t, computePhaseBreakdown(nil))
}

func TestComputeTokenBreakdown(t *testing.T) {
	events := []event.Event{
		{TokenUsage: map[string]event.StageTokens{
			"llm":       {Prompt: ms(100), Completion: ms(50)},
			"retrieval": {Prompt: ms(20)},
		}},
		{TokenUsage: map[string]event.StageTokens{
			"llm": {Completion: ms(30)},
		}},
	}

	split := computeTokenBreakdown(events)

	require.Len(t, split, 2)
	assert.Equal(t, TokenSplit{Name: "Prompt Tokens", Value: 120}, split[0])
	assert.Equal(t, TokenSplit{Name: "Completion Tokens", Value: 80}, split[1])
}

func TestComputeTokenBreakdown_EmptyStillTwoSlices(t *testing.T) {
	split := computeTokenBreakdown(nil)
	require.Len(t, split, 2)
	assert.Zero(t, split[0].Value)
	assert.Zero(t, split[1].Value)
}

func TestComputeLatencyPercentiles(t *testing.T) {
	var events []event.Event
	for _, v := range []float64{50, 10, 40, 20, 30} {
		events = append(events, event.Event{LatencyMs: ms(v)})
	}
	// Events without latency are excluded from the population.
	events = append(events, event.Event{})

	p := computeLatencyPercentiles(events)

	assert.Equal(t, 30.0, p.P50)
	assert.Equal(t, 50.0, p.P95)
	assert.Equal(t, 50.0, p.P99)
}

func TestComputeLatencyPercentiles_Empty(t *testing.T) {
	p := computeLatencyPercentiles(nil)
	assert.Zero(t, p.P50)
	assert.Zero(t, p.P95)
	assert.Zero(t, p.P99)
}

func TestComputeErrorTrends(t *testing.T) {
	events := []event.Event{
		{Succeeded: false, ErrorText: "timeout"},
		{Succeeded: false, ErrorText: "timeout"},
		{Succeeded: false, ErrorText: "bad gateway"},
		{Succeeded: true, ErrorText: "ignored on success"},
		{Succeeded: false},
	}

	trends := computeErrorTrends(events)

	require.Len(t, trends, 2)
	assert.Equal(t, ErrorTrend{Name: "timeout", Count: 2}, trends[0])
	assert.Equal(t, ErrorTrend{Name: "bad gateway", Count: 1}, trends[1])
}

func TestComputeErrorTrends_CapsAtFive(t *testing.T) {
	var events []event.Event
	for _, text := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		events = append(events, event.Event{Succeeded: false, ErrorText: text})
	}
	assert.Len(t, computeErrorTrends(events), 5)
}

func TestComputeRequestTypeMetrics(t *testing.T) {
	events := []event.Event{
		{RequestType: "menu", Succeeded: true, LatencyMs: ms(100)},
		{RequestType: "menu", Succeeded: false, LatencyMs: ms(300)},
		{Succeeded: true},
	}

	metrics := computeRequestTypeMetrics(events)

	require.Len(t, metrics, 2)
	assert.Equal(t, "menu", metrics[0].Name, "higher avg latency sorts first")
	assert.Equal(t, 200.0, metrics[0].AvgResponseTime)
	assert.Equal(t, 50.0, metrics[0].SuccessRate)

	assert.Equal(t, "Unknown", metrics[1].Name)
	assert.Equal(t, 100.0, metrics[1].SuccessRate)
}

func TestComputeResourceUtilization(t *testing.T) {
	// Five events; the stage reports a total on three of them. The
	// average must divide by 3, not 5.
	events := []event.Event{
		{TokenUsage: map[string]event.StageTokens{"llm": {Total: ms(10)}}},
		{TokenUsage: map[string]event.StageTokens{"llm": {}}},
		{TokenUsage: map[string]event.StageTokens{"llm": {Total: ms(20)}}},
		{TokenUsage: map[string]event.StageTokens{"llm": {}}},
		{TokenUsage: map[string]event.StageTokens{"llm": {Total: ms(30)}}},
	}

	util := computeResourceUtilization(events)

	require.Len(t, util, 1)
	assert.Equal(t, "llm", util[0].Name)
	assert.Equal(t, 60.0, util[0].TotalTokens)
	require.NotNil(t, util[0].AvgTokensPerQuery)
	assert.Equal(t, 20.0, *util[0].AvgTokensPerQuery)
}

func TestComputeResourceUtilization_StageNeverReportsTotal(t *testing.T) {
	events := []event.Event{
		{TokenUsage: map[string]event.StageTokens{"retrieval": {Prompt: ms(5)}}},
	}

	util := computeResourceUtilization(events)

	require.Len(t, util, 1)
	assert.Equal(t, "retrieval", util[0].Name)
	assert.Zero(t, util[0].TotalTokens)
	assert.Nil(t, util[0].AvgTokensPerQuery, "no totals means no average, not zero")
}
