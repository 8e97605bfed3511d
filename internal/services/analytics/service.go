package analytics

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"prismatics/internal/domain/event"
	"prismatics/pkg/errors"
	"prismatics/pkg/logger"
)

// defaultRecentLimit caps the live feed when the caller does not ask
// for a specific size.
const defaultRecentLimit = 10

// Service assembles dashboard reports from the event store. Reports are
// recomputed from scratch on every call; there is no shared mutable
// state between requests, so concurrent calls are safe.
type Service struct {
	store event.Store
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates an analytics service over the given event store.
func NewService(store event.Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("component", "analytics"),
		now:   time.Now,
	}
}

// snapshot loads the full event population once per request. Every
// sub-aggregate of a report works off the same immutable slice.
func (s *Service) snapshot(ctx context.Context) ([]event.Event, error) {
	start := time.Now()
	events, err := s.store.Events(ctx, event.Query{})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreUnavailable, "load events: %v", err)
	}
	s.log.Debugf("snapshot loaded: %s events in %v",
		humanize.Comma(int64(len(events))), time.Since(start))
	return events, nil
}

// Overview builds the overview dashboard payload. Independent
// sub-aggregates run concurrently; each one fills a distinct field.
func (s *Service) Overview(ctx context.Context) (*OverviewReport, error) {
	events, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &OverviewReport{
		QueryVolume:         []VolumePoint{},
		TopRestaurants:      []EntityStats{},
		RequestDistribution: []DistributionSlice{},
		UserGrowth:          []UserGrowthPoint{},
		LatestError:         noRecentErrors,
		Timestamp:           now.UTC(),
		DataRange: DataRange{
			From: now.AddDate(0, 0, -30).UTC(),
			To:   now.UTC(),
		},
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { report.KPIs = computeKPIs(events); return nil })
	g.Go(func() error { report.WeeklyGrowth = computeWeeklyGrowth(events, now); return nil })
	g.Go(func() error { report.QueryVolume = computeQueryVolume(events, now); return nil })
	g.Go(func() error { report.TopRestaurants = computeTopRestaurants(events, now); return nil })
	g.Go(func() error { report.RequestDistribution = computeRequestDistribution(events); return nil })
	g.Go(func() error { report.UserGrowth = computeUserGrowth(events, now); return nil })
	g.Go(func() error { report.ActiveUsers = computeActiveUsers(events, now); return nil })
	g.Go(func() error { report.PeakHour = computePeakHour(events, now); return nil })
	g.Go(func() error {
		report.LatestError, report.ErrorTimestamp = computeLatestError(events)
		return nil
	})
	_ = g.Wait()

	return report, nil
}

// AnalyticsDetail builds the analytics-detail payload.
func (s *Service) AnalyticsDetail(ctx context.Context) (*AnalyticsReport, error) {
	events, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &AnalyticsReport{
		PhaseBreakdown:      []PhaseTime{},
		TokenBreakdown:      []TokenSplit{},
		RequestTypeMetrics:  []RequestTypeMetric{},
		ErrorTrends:         []ErrorTrend{},
		ResourceUtilization: []StageUtilization{},
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { report.PhaseBreakdown = computePhaseBreakdown(events); return nil })
	g.Go(func() error { report.TokenBreakdown = computeTokenBreakdown(events); return nil })
	g.Go(func() error { report.RequestTypeMetrics = computeRequestTypeMetrics(events); return nil })
	g.Go(func() error { report.LatencyPercentiles = computeLatencyPercentiles(events); return nil })
	g.Go(func() error { report.ErrorTrends = computeErrorTrends(events); return nil })
	g.Go(func() error { report.ResourceUtilization = computeResourceUtilization(events); return nil })
	_ = g.Wait()

	return report, nil
}

// UsersDetail builds the users-view payload.
func (s *Service) UsersDetail(ctx context.Context) (*UsersReport, error) {
	events, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &UsersReport{
		UserTypes:                 []UserTypeCount{},
		UserActivity:              []UserActivity{},
		QueriesPerSession:         []int{},
		Durations:                 []int{},
		DuplicateQueries:          []DuplicateQuestion{},
		RetentionWeekly:           []RetentionCohort{},
		QueryComplexityByUserType: []ComplexityStats{},
		UserJourneyTransitions:    []JourneyTransition{},
		Engagement:                []EngagementEntry{},
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { report.UserTypes = computeUserTypes(events); return nil })
	g.Go(func() error { report.UserActivity = computeUserActivity(events); return nil })
	g.Go(func() error {
		counts, durations := computeSessionStats(events)
		report.QueriesPerSession = counts
		report.Durations = durations
		report.AvgQueriesPerSession = avgQueriesPerSession(counts)
		return nil
	})
	g.Go(func() error { report.DuplicateQueries = computeDuplicateQueries(events); return nil })
	g.Go(func() error { report.RetentionWeekly = computeRetentionWeekly(events); return nil })
	g.Go(func() error { report.QueryComplexityByUserType = computeQueryComplexity(events); return nil })
	g.Go(func() error { report.UserJourneyTransitions = computeJourneyTransitions(events); return nil })
	g.Go(func() error { report.Engagement = computeEngagement(events); return nil })
	_ = g.Wait()

	return report, nil
}

// RecentEvent is one live-feed row.
type RecentEvent struct {
	ID          string     `json:"id"`
	OccurredAt  *time.Time `json:"occurredAt"`
	UserEmail   string     `json:"userEmail"`
	SessionID   string     `json:"sessionId"`
	Question    string     `json:"question"`
	Succeeded   bool       `json:"succeeded"`
	ErrorText   string     `json:"errorText,omitempty"`
	LatencyMs   *float64   `json:"latencyMs"`
	RequestType string     `json:"requestType,omitempty"`
}

// RecentEvents returns the newest events for the live feed, most
// recent first.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]RecentEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	events, err := s.store.Events(ctx, event.Query{SortDesc: true, Limit: limit})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreUnavailable, "load recent events: %v", err)
	}

	out := make([]RecentEvent, 0, len(events))
	for _, e := range events {
		out = append(out, RecentEvent{
			ID:          e.ID,
			OccurredAt:  e.OccurredAt,
			UserEmail:   e.UserID,
			SessionID:   e.SessionID,
			Question:    e.Question,
			Succeeded:   e.Succeeded,
			ErrorText:   e.ErrorText,
			LatencyMs:   e.LatencyMs,
			RequestType: e.RequestType,
		})
	}
	return out, nil
}
