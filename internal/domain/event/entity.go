package event

import (
	"time"
)

// Category classifies who asked: a first-time user or a returning one.
// Anything that is not the new-user sentinel counts as returning.
type Category string

const (
	CategoryNew       Category = "New"
	CategoryReturning Category = "Returning"
)

// StageTokens holds token usage reported by one pipeline stage.
// Fields are pointers so "absent" stays distinguishable from 0,
// which matters for per-stage averages.
type StageTokens struct {
	Prompt     *float64
	Completion *float64
	Total      *float64
}

// Event is one logged agent-query interaction in canonical form.
// Raw payloads are heterogeneous (fields missing, array-wrapped, or the
// wrong type); Normalize is the only place that deals with that.
type Event struct {
	ID         string
	OccurredAt *time.Time // nil when the raw timestamp did not parse
	UserID     string
	SessionID  string
	EntityID   string
	Category   Category
	Question   string
	Succeeded  bool
	ErrorText  string
	LatencyMs  *float64

	// TokenUsage maps pipeline-stage name to that stage's token counts.
	TokenUsage map[string]StageTokens

	// StageLatencies maps pipeline-stage name to processing time in ms.
	StageLatencies map[string]float64

	// RequestType is the categorical request label, "" when absent.
	RequestType string
}

// HasTimestamp reports whether the event carries a parseable instant.
// Events without one are excluded from time-windowed aggregates but
// still count toward lifetime totals.
func (e Event) HasTimestamp() bool {
	return e.OccurredAt != nil
}

// In reports whether the event falls in [from, to).
func (e Event) In(from, to time.Time) bool {
	if e.OccurredAt == nil {
		return false
	}
	t := *e.OccurredAt
	return !t.Before(from) && t.Before(to)
}

// TotalTokens sums total_tokens across all pipeline stages.
// A stage with the field absent contributes 0.
func (e Event) TotalTokens() float64 {
	var sum float64
	for _, st := range e.TokenUsage {
		if st.Total != nil {
			sum += *st.Total
		}
	}
	return sum
}
