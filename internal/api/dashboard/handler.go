package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"prismatics/internal/metrics"
	"prismatics/internal/services/analytics"
	"prismatics/pkg/errors"
	"prismatics/pkg/logger"
)

// Handler serves the four dashboard report endpoints. Reports are
// cheap, idempotent reads; a failed store fetch surfaces as a single
// "data unavailable" response, never a partial payload.
type Handler struct {
	svc *analytics.Service
	log *logger.Logger
}

// NewHandler creates a dashboard handler over the analytics service.
func NewHandler(svc *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With("component", "dashboard_api"),
	}
}

// Register mounts all report routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/overview-data", h.HandleOverview)
	mux.HandleFunc("GET /api/analytics-data", h.HandleAnalytics)
	mux.HandleFunc("GET /api/users-data", h.HandleUsers)
	mux.HandleFunc("GET /api/live-feed", h.HandleLiveFeed)
}

// HandleOverview serves the overview dashboard payload.
func (h *Handler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, "overview", func() (interface{}, error) {
		return h.svc.Overview(r.Context())
	})
}

// HandleAnalytics serves the analytics-detail payload.
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, "analytics", func() (interface{}, error) {
		return h.svc.AnalyticsDetail(r.Context())
	})
}

// HandleUsers serves the users-view payload.
func (h *Handler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, "users", func() (interface{}, error) {
		return h.svc.UsersDetail(r.Context())
	})
}

// HandleLiveFeed serves the newest events, most recent first.
// Accepts an optional ?limit= parameter.
func (h *Handler) HandleLiveFeed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	h.serveReport(w, r, "live_feed", func() (interface{}, error) {
		return h.svc.RecentEvents(r.Context(), limit)
	})
}

func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, name string, fetch func() (interface{}, error)) {
	start := time.Now()

	payload, err := fetch()
	elapsed := time.Since(start)
	metrics.ReportDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ReportRequests.WithLabelValues(name, "error").Inc()
		if errors.Is(err, errors.ErrStoreUnavailable) {
			h.log.Errorf("report %s failed, store unavailable: %v", name, err)
		} else {
			h.log.Errorf("report %s failed: %v", name, err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "data unavailable"})
		return
	}

	metrics.ReportRequests.WithLabelValues(name, "success").Inc()
	h.log.Debugf("report %s prepared in %v", name, elapsed)
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
