package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismatics/internal/domain/event"
	"prismatics/internal/repository/memory"
	"prismatics/internal/services/analytics"
	"prismatics/pkg/logger"
)

type failingStore struct{}

func (failingStore) Events(context.Context, event.Query) ([]event.Event, error) {
	return nil, fmt.Errorf("connection refused")
}

func newTestMux(store event.Store) *http.ServeMux {
	svc := analytics.NewService(store, logger.Get())
	h := NewHandler(svc, logger.Get())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func seededStore() *memory.EventStore {
	store := memory.NewEventStore()
	base := time.Now().UTC().Add(-2 * time.Hour)
	for i := 0; i < 5; i++ {
		store.Append(event.Raw{
			"id":            fmt.Sprintf("evt-%d", i),
			"query_time":    base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			"user_email":    "a@x.com",
			"session_id":    "sess-1",
			"restaurant_id": float64(7),
			"question":      "What are your hours?",
			"status":        true,
			"request_type":  "menu",
		})
	}
	return store
}

func getJSON(t *testing.T, mux *http.ServeMux, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHandleOverview(t *testing.T) {
	mux := newTestMux(seededStore())

	code, body := getJSON(t, mux, "/api/overview-data")

	assert.Equal(t, http.StatusOK, code)

	kpis, ok := body["kpis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), kpis["totalQueries"])
	assert.Equal(t, float64(1), kpis["totalUsers"])

	// Chart arrays are present and non-null even when sparse.
	assert.NotNil(t, body["queryVolume"])
	assert.NotNil(t, body["topRestaurants"])
	assert.NotNil(t, body["requestDistribution"])
	assert.Contains(t, body, "peakHour")
	assert.Contains(t, body, "weeklyGrowth")
	assert.Equal(t, "No recent errors", body["latestError"])
}

func TestHandleOverview_EmptyStore(t *testing.T) {
	mux := newTestMux(memory.NewEventStore())

	code, body := getJSON(t, mux, "/api/overview-data")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["queryVolume"], "empty array, not null")
	assert.Nil(t, body["peakHour"], "no data means null peak hour, not zero")
}

func TestHandleAnalytics(t *testing.T) {
	mux := newTestMux(seededStore())

	code, body := getJSON(t, mux, "/api/analytics-data")

	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, body["phaseBreakdown"])
	assert.NotNil(t, body["errorTrends"])
	assert.NotNil(t, body["resourceUtilization"])
	assert.Contains(t, body, "latencyPercentiles")

	split, ok := body["tokenBreakdown"].([]any)
	require.True(t, ok)
	assert.Len(t, split, 2)
}

func TestHandleUsers(t *testing.T) {
	mux := newTestMux(seededStore())

	code, body := getJSON(t, mux, "/api/users-data")

	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, body["userActivity"])
	assert.NotNil(t, body["duplicateQueries"])
	assert.NotNil(t, body["userJourneyTransitions"])

	types, ok := body["userTypes"].([]any)
	require.True(t, ok)
	assert.Len(t, types, 2)

	assert.Equal(t, float64(5), body["avgQueriesPerSession"], "five queries in one session")
}

func TestHandleLiveFeed(t *testing.T) {
	mux := newTestMux(seededStore())

	req := httptest.NewRequest(http.MethodGet, "/api/live-feed?limit=3", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var feed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	require.Len(t, feed, 3)
	assert.Equal(t, "evt-4", feed[0]["id"], "newest first")
}

func TestHandlers_StoreFailure(t *testing.T) {
	mux := newTestMux(failingStore{})

	for _, path := range []string{
		"/api/overview-data",
		"/api/analytics-data",
		"/api/users-data",
		"/api/live-feed",
	} {
		t.Run(path, func(t *testing.T) {
			code, body := getJSON(t, mux, path)
			assert.Equal(t, http.StatusInternalServerError, code)
			assert.Equal(t, "data unavailable", body["error"])
		})
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(memory.NewEventStore())

	req := httptest.NewRequest(http.MethodPost, "/api/overview-data", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
