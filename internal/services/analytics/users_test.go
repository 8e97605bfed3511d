package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismatics/internal/domain/event"
)

func TestComputeUserTypes(t *testing.T) {
	events := []event.Event{
		{Category: event.CategoryNew},
		{Category: event.CategoryReturning},
		{Category: event.CategoryReturning},
	}

	types := computeUserTypes(events)

	require.Len(t, types, 2)
	assert.Equal(t, UserTypeCount{Type: "First-time", Count: 1}, types[0])
	assert.Equal(t, UserTypeCount{Type: "Returning", Count: 2}, types[1])
}

func TestComputeUserActivity_CaseInsensitiveEmails(t *testing.T) {
	early := time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)

	events := []event.Event{
		{UserID: "Alice@X.com", OccurredAt: at(early)},
		{UserID: "alice@x.com", OccurredAt: at(late)},
		{UserID: "bob@x.com", OccurredAt: at(early)},
		{OccurredAt: at(late)},
	}

	activity := computeUserActivity(events)

	require.Len(t, activity, 2)
	assert.Equal(t, "alice@x.com", activity[0].Email, "capitalization variants collapse")
	assert.Equal(t, 2, activity[0].QueryCount)
	require.NotNil(t, activity[0].LastActivity)
	assert.True(t, activity[0].LastActivity.Equal(late))

	assert.Equal(t, "bob@x.com", activity[1].Email)
	assert.Equal(t, 1, activity[1].QueryCount)
}

func TestComputeSessionStats(t *testing.T) {
	start := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)

	events := []event.Event{
		{SessionID: "s1", OccurredAt: at(start)},
		{SessionID: "s1", OccurredAt: at(start.Add(90 * time.Second))},
		{SessionID: "s2", OccurredAt: at(start)},
		// Session with no parseable timestamps.
		{SessionID: "s3"},
		{SessionID: "s3"},
		// Session-less events do not form a phantom session.
		{OccurredAt: at(start)},
	}

	counts, durations := computeSessionStats(events)

	assert.Equal(t, []int{2, 1, 2}, counts, "first-seen session order")
	assert.Equal(t, []int{90, 0, 0}, durations)
}

func TestAvgQueriesPerSession(t *testing.T) {
	assert.Zero(t, avgQueriesPerSession(nil))
	assert.Equal(t, 2.5, avgQueriesPerSession([]int{2, 3}))
}

func TestComputeDuplicateQueries(t *testing.T) {
	events := []event.Event{
		{Question: "What are your hours?", UserID: "a@x.com"},
		{Question: "  what are your HOURS?  ", UserID: "b@x.com"},
		{Question: "Do you deliver?", UserID: "a@x.com"},
		{Question: ""},
	}

	dups := computeDuplicateQueries(events)

	require.Len(t, dups, 1, "only questions asked more than once surface")
	assert.Equal(t, "what are your hours?", dups[0].Query)
	assert.Equal(t, 2, dups[0].Count)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, dups[0].Users)
}

func TestComputeQueryComplexity(t *testing.T) {
	events := []event.Event{
		{Category: event.CategoryNew, Question: "hi"},
		{Category: event.CategoryNew, Question: "four word question here"},
		{Category: event.CategoryReturning, Question: "one"},
	}

	stats := computeQueryComplexity(events)

	require.Len(t, stats, 2)
	assert.Equal(t, "First-time", stats[0].UserType)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 12.5, stats[0].AvgLength, "(2 + 23) / 2 characters")
	assert.Equal(t, 2.5, stats[0].AvgTokens, "(1 + 4) / 2 words")

	assert.Equal(t, "Returning", stats[1].UserType)
	assert.Equal(t, 1, stats[1].Count)
}

func TestComputeRetentionWeekly(t *testing.T) {
	week1 := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 14)

	events := []event.Event{
		{UserID: "a@x.com", OccurredAt: at(week1)},
		{UserID: "A@X.COM", OccurredAt: at(week1.Add(time.Hour))},
		{UserID: "b@x.com", OccurredAt: at(week1)},
		{UserID: "a@x.com", OccurredAt: at(week2)},
		// No timestamp or no user: excluded from cohorts.
		{UserID: "c@x.com"},
		{OccurredAt: at(week1)},
	}

	cohorts := computeRetentionWeekly(events)

	require.Len(t, cohorts, 2)
	assert.Equal(t, 2, cohorts[0].Users, "same user in two capitalizations is one user")
	assert.Equal(t, 1, cohorts[1].Users)
	assert.Less(t, cohorts[0].Week, cohorts[1].Week, "sorted by week key")
	assert.Equal(t, WeekKey(week1), cohorts[0].Week)
}

func TestComputeJourneyTransitions(t *testing.T) {
	start := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)

	events := []event.Event{
		// Out of order on purpose; transitions follow timestamps.
		{SessionID: "s1", OccurredAt: at(start.Add(time.Minute)), Question: "Do you deliver?"},
		{SessionID: "s1", OccurredAt: at(start), Question: "What are your hours?"},
		{SessionID: "s2", OccurredAt: at(start), Question: "What are your hours?"},
		{SessionID: "s2", OccurredAt: at(start.Add(time.Minute)), Question: "Do you deliver?"},
	}

	transitions := computeJourneyTransitions(events)

	require.Len(t, transitions, 1)
	assert.Equal(t, "What are your hours?", transitions[0].From)
	assert.Equal(t, "Do you deliver?", transitions[0].To)
	assert.Equal(t, 2, transitions[0].Count)
}

func TestComputeJourneyTransitions_TruncatesLongQuestions(t *testing.T) {
	start := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	long := strings.Repeat("x", 40)

	events := []event.Event{
		{SessionID: "s1", OccurredAt: at(start), Question: long},
		{SessionID: "s1", OccurredAt: at(start.Add(time.Minute)), Question: ""},
	}

	transitions := computeJourneyTransitions(events)

	require.Len(t, transitions, 1)
	assert.Equal(t, strings.Repeat("x", 30)+"...", transitions[0].From)
	assert.Equal(t, "Next", transitions[0].To, "empty follow-up question gets the placeholder")
}

func TestComputeEngagement(t *testing.T) {
	events := []event.Event{
		{UserID: "a@x.com", Succeeded: true},
		{UserID: "a@x.com", Succeeded: true},
		{UserID: "a@x.com", Succeeded: false},
		{UserID: "b@x.com", Succeeded: true},
	}

	entries := computeEngagement(events)

	require.Len(t, entries, 2)

	// b leads: one query but a perfect success rate outweighs volume
	// at these sizes.
	b := entries[0]
	assert.Equal(t, "b@x.com", b.Email)
	// round(1*0.7 + 100*0.3) = round(30.7) = 31
	assert.Equal(t, 31, b.Score)

	a := entries[1]
	assert.Equal(t, "a@x.com", a.Email)
	assert.Equal(t, 3, a.QueryCount)
	assert.Equal(t, 2, a.SuccessCount)
	assert.InDelta(t, 66.7, a.SuccessRate, 0.01)
	// round(3*0.7 + 66.7*0.3) = round(22.11) = 22
	assert.Equal(t, 22, a.Score)
}
