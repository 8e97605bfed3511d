package analytics

import (
	"sort"
	"time"

	"prismatics/internal/domain/event"
)

// KPIs are the lifetime top-line metrics over the whole collection,
// including events whose timestamp never parsed.
type KPIs struct {
	TotalUsers       int     `json:"totalUsers"`
	TotalQueries     int     `json:"totalQueries"`
	SuccessCount     int     `json:"successCount"`
	SuccessRate      float64 `json:"successRate"`
	AvgResponseTime  float64 `json:"avgResponseTime"`
	TotalRestaurants int     `json:"totalRestaurants"`
	TotalTokens      float64 `json:"totalTokens"`
}

// WeekStats summarizes one 7-day partition.
type WeekStats struct {
	Queries         int     `json:"queries"`
	Users           int     `json:"users"`
	ReturningUsers  int     `json:"returningUsers"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	SuccessRate     float64 `json:"successRate"`
	TotalTokens     float64 `json:"totalTokens"`
}

// WeeklyGrowth carries field-by-field growth between the current and
// previous week. SuccessRate is a percentage-point difference, not a
// relative growth; the two semantics are intentionally different.
type WeeklyGrowth struct {
	Queries        float64   `json:"queries"`
	Users          float64   `json:"users"`
	ReturningUsers float64   `json:"returningUsers"`
	ResponseTime   float64   `json:"responseTime"`
	SuccessRate    float64   `json:"successRate"`
	Tokens         float64   `json:"tokens"`
	CurrentWeek    WeekStats `json:"currentWeek"`
	PreviousWeek   WeekStats `json:"previousWeek"`
}

// VolumePoint is one day of the 30-day query volume trend.
type VolumePoint struct {
	Date            string  `json:"date"`
	Queries         int     `json:"queries"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	SuccessRate     float64 `json:"successRate"`
}

// EntityStats ranks one restaurant over the trailing 30 days.
type EntityStats struct {
	Name            string  `json:"name"`
	RestaurantID    string  `json:"restaurantId"`
	Queries         int     `json:"queries"`
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	UniqueUsers     int     `json:"uniqueUsers"`
}

// DistributionSlice is one request-type bucket.
type DistributionSlice struct {
	Name            string  `json:"name"`
	Value           int     `json:"value"`
	AvgResponseTime float64 `json:"avgResponseTime"`
}

// UserGrowthPoint is one day of new-vs-returning activity.
type UserGrowthPoint struct {
	Date           string `json:"date"`
	NewUsers       int    `json:"newUsers"`
	ReturningUsers int    `json:"returningUsers"`
}

// DataRange documents the trailing window the overview charts cover.
type DataRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// OverviewReport is the full payload for the overview dashboard view.
// Every field has a usable zero default; slices are never nil.
type OverviewReport struct {
	KPIs                KPIs                `json:"kpis"`
	WeeklyGrowth        WeeklyGrowth        `json:"weeklyGrowth"`
	QueryVolume         []VolumePoint       `json:"queryVolume"`
	TopRestaurants      []EntityStats       `json:"topRestaurants"`
	RequestDistribution []DistributionSlice `json:"requestDistribution"`
	UserGrowth          []UserGrowthPoint   `json:"userGrowth"`
	ActiveUsers         int                 `json:"activeUsers"`
	PeakHour            *int                `json:"peakHour"`
	LatestError         string              `json:"latestError"`
	ErrorTimestamp      *time.Time          `json:"errorTimestamp"`
	Timestamp           time.Time           `json:"timestamp"`
	DataRange           DataRange           `json:"dataRange"`
}

const noRecentErrors = "No recent errors"

func computeKPIs(events []event.Event) KPIs {
	k := KPIs{TotalQueries: len(events)}

	users := make(map[string]struct{})
	restaurants := make(map[string]struct{})
	var latencySum float64
	latencyCount := 0

	for _, e := range events {
		if e.UserID != "" {
			users[e.UserID] = struct{}{}
		}
		if e.EntityID != "" {
			restaurants[e.EntityID] = struct{}{}
		}
		if e.Succeeded {
			k.SuccessCount++
		}
		if e.LatencyMs != nil {
			latencySum += *e.LatencyMs
			latencyCount++
		}
		k.TotalTokens += e.TotalTokens()
	}

	k.TotalUsers = len(users)
	k.TotalRestaurants = len(restaurants)
	k.SuccessRate = SuccessRate(k.SuccessCount, k.TotalQueries)
	if latencyCount > 0 {
		k.AvgResponseTime = Round(latencySum/float64(latencyCount), 0)
	}
	return k
}

func computeWeekStats(events []event.Event, from, to time.Time) WeekStats {
	var w WeekStats

	users := make(map[string]struct{})
	returning := make(map[string]struct{})
	var latencySum float64
	latencyCount := 0
	successCount := 0

	for _, e := range events {
		if !e.In(from, to) {
			continue
		}
		w.Queries++
		if e.UserID != "" {
			users[e.UserID] = struct{}{}
			if e.Category != event.CategoryNew {
				returning[e.UserID] = struct{}{}
			}
		}
		if e.Succeeded {
			successCount++
		}
		if e.LatencyMs != nil {
			latencySum += *e.LatencyMs
			latencyCount++
		}
		w.TotalTokens += e.TotalTokens()
	}

	w.Users = len(users)
	w.ReturningUsers = len(returning)
	w.SuccessRate = SuccessRate(successCount, w.Queries)
	if latencyCount > 0 {
		w.AvgResponseTime = Round(latencySum/float64(latencyCount), 0)
	}
	return w
}

func computeWeeklyGrowth(events []event.Event, now time.Time) WeeklyGrowth {
	current := computeWeekStats(events, now.AddDate(0, 0, -7), now)
	previous := computeWeekStats(events, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))

	return WeeklyGrowth{
		Queries:        SafeGrowthPercent(float64(current.Queries), float64(previous.Queries)),
		Users:          SafeGrowthPercent(float64(current.Users), float64(previous.Users)),
		ReturningUsers: SafeGrowthPercent(float64(current.ReturningUsers), float64(previous.ReturningUsers)),
		ResponseTime:   SafeGrowthPercent(current.AvgResponseTime, previous.AvgResponseTime),
		// Point difference: comparing two rates relatively would
		// overstate small baseline shifts.
		SuccessRate:  Round(current.SuccessRate-previous.SuccessRate, 1),
		Tokens:       SafeGrowthPercent(current.TotalTokens, previous.TotalTokens),
		CurrentWeek:  current,
		PreviousWeek: previous,
	}
}

func computeQueryVolume(events []event.Event, now time.Time) []VolumePoint {
	from := now.AddDate(0, 0, -30)

	type bucket struct {
		queries      int
		successCount int
		latencySum   float64
		latencyCount int
	}
	days := make(map[string]*bucket)

	for _, e := range events {
		if !e.In(from, now) {
			continue
		}
		day := e.OccurredAt.UTC().Format("2006-01-02")
		b := days[day]
		if b == nil {
			b = &bucket{}
			days[day] = b
		}
		b.queries++
		if e.Succeeded {
			b.successCount++
		}
		if e.LatencyMs != nil {
			b.latencySum += *e.LatencyMs
			b.latencyCount++
		}
	}

	out := make([]VolumePoint, 0, len(days))
	for day, b := range days {
		p := VolumePoint{
			Date:        day,
			Queries:     b.queries,
			SuccessRate: SuccessRate(b.successCount, b.queries),
		}
		if b.latencyCount > 0 {
			p.AvgResponseTime = Round(b.latencySum/float64(b.latencyCount), 0)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func computeTopRestaurants(events []event.Event, now time.Time) []EntityStats {
	from := now.AddDate(0, 0, -30)

	type bucket struct {
		queries      int
		successCount int
		latencySum   float64
		latencyCount int
		users        map[string]struct{}
	}
	byEntity := make(map[string]*bucket)

	for _, e := range events {
		if e.EntityID == "" || !e.In(from, now) {
			continue
		}
		b := byEntity[e.EntityID]
		if b == nil {
			b = &bucket{users: make(map[string]struct{})}
			byEntity[e.EntityID] = b
		}
		b.queries++
		if e.Succeeded {
			b.successCount++
		}
		if e.LatencyMs != nil {
			b.latencySum += *e.LatencyMs
			b.latencyCount++
		}
		if e.UserID != "" {
			b.users[e.UserID] = struct{}{}
		}
	}

	out := make([]EntityStats, 0, len(byEntity))
	for id, b := range byEntity {
		s := EntityStats{
			Name:         "Restaurant " + id,
			RestaurantID: id,
			Queries:      b.queries,
			SuccessRate:  SuccessRate(b.successCount, b.queries),
			UniqueUsers:  len(b.users),
		}
		if b.latencyCount > 0 {
			s.AvgResponseTime = Round(b.latencySum/float64(b.latencyCount), 0)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Queries != out[j].Queries {
			return out[i].Queries > out[j].Queries
		}
		return out[i].RestaurantID < out[j].RestaurantID
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

func computeRequestDistribution(events []event.Event) []DistributionSlice {
	type bucket struct {
		count        int
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
		b.count++
		if e.LatencyMs != nil {
			b.latencySum += *e.LatencyMs
			b.latencyCount++
		}
	}

	out := make([]DistributionSlice, 0, len(byType))
	for name, b := range byType {
		s := DistributionSlice{Name: name, Value: b.count}
		if b.latencyCount > 0 {
			s.AvgResponseTime = Round(b.latencySum/float64(b.latencyCount), 0)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func computeUserGrowth(events []event.Event, now time.Time) []UserGrowthPoint {
	from := now.AddDate(0, 0, -30)

	byDay := make(map[string]*UserGrowthPoint)
	for _, e := range events {
		if !e.In(from, now) {
			continue
		}
		day := e.OccurredAt.UTC().Format("2006-01-02")
		p := byDay[day]
		if p == nil {
			p = &UserGrowthPoint{Date: day}
			byDay[day] = p
		}
		if e.Category == event.CategoryNew {
			p.NewUsers++
		} else {
			p.ReturningUsers++
		}
	}

	out := make([]UserGrowthPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func computeActiveUsers(events []event.Event, now time.Time) int {
	from := now.Add(-5 * time.Minute)
	users := make(map[string]struct{})
	for _, e := range events {
		if e.UserID == "" || !e.In(from, now) {
			continue
		}
		users[e.UserID] = struct{}{}
	}
	return len(users)
}

// computePeakHour returns the busiest hour of day (0-23) over the
// trailing 30 days, or nil when no windowed events exist. A
// strictly-greater comparison walking hours 0..23 keeps ties stable.
func computePeakHour(events []event.Event, now time.Time) *int {
	from := now.AddDate(0, 0, -30)

	var counts [24]int
	total := 0
	for _, e := range events {
		if !e.In(from, now) {
			continue
		}
		counts[e.OccurredAt.UTC().Hour()]++
		total++
	}
	if total == 0 {
		return nil
	}

	peak := 0
	for hour := 1; hour < 24; hour++ {
		if counts[hour] > counts[peak] {
			peak = hour
		}
	}
	return &peak
}

// computeLatestError finds the most recent failed event that carries an
// error text. Events without a parseable timestamp sort oldest.
func computeLatestError(events []event.Event) (string, *time.Time) {
	var (
		found    bool
		bestText string
		bestAt   *time.Time
		bestTime time.Time
	)

	for _, e := range events {
		if e.Succeeded || e.ErrorText == "" {
			continue
		}
		var at time.Time
		if e.OccurredAt != nil {
			at = *e.OccurredAt
		}
		if !found || !at.Before(bestTime) {
			found = true
			bestText = e.ErrorText
			bestAt = e.OccurredAt
			bestTime = at
		}
	}

	if !found {
		return noRecentErrors, nil
	}
	return bestText, bestAt
}
