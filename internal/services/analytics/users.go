package analytics

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"prismatics/internal/domain/event"
)

// UserTypeCount counts events per user category.
type UserTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// UserActivity is one user's lifetime activity summary.
type UserActivity struct {
	Email        string     `json:"email"`
	QueryCount   int        `json:"queryCount"`
	LastActivity *time.Time `json:"lastActivity"`
}

// DuplicateQuestion is a question asked more than once (case-insensitive,
// whitespace-trimmed) with the distinct users who asked it.
type DuplicateQuestion struct {
	Query string   `json:"query"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ComplexityStats describes question complexity per user category.
type ComplexityStats struct {
	UserType  string  `json:"userType"`
	AvgLength float64 `json:"avgLength"`
	AvgTokens float64 `json:"avgTokens"`
	Count     int     `json:"count"`
}

// RetentionCohort is the distinct-user count for one calendar week.
type RetentionCohort struct {
	Week  string `json:"week"`
	Users int    `json:"users"`
}

// JourneyTransition is an observed adjacent question pair within a
// session, counted across all sessions.
type JourneyTransition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// EngagementEntry is one row of the per-user engagement leaderboard.
type EngagementEntry struct {
	Email        string  `json:"email"`
	QueryCount   int     `json:"queryCount"`
	SuccessCount int     `json:"successCount"`
	SuccessRate  float64 `json:"successRate"`
	Score        int     `json:"score"`
}

// UsersReport is the payload for the users dashboard view.
type UsersReport struct {
	UserTypes                 []UserTypeCount     `json:"userTypes"`
	UserActivity              []UserActivity      `json:"userActivity"`
	QueriesPerSession         []int               `json:"queriesPerSession"`
	Durations                 []int               `json:"durations"`
	AvgQueriesPerSession      float64             `json:"avgQueriesPerSession"`
	DuplicateQueries          []DuplicateQuestion `json:"duplicateQueries"`
	RetentionWeekly           []RetentionCohort   `json:"retentionWeekly"`
	QueryComplexityByUserType []ComplexityStats   `json:"queryComplexityByUserType"`
	UserJourneyTransitions    []JourneyTransition `json:"userJourneyTransitions"`
	Engagement                []EngagementEntry   `json:"engagement"`
}

const (
	journeyStart      = "Start"
	journeyNext       = "Next"
	journeyTruncateAt = 30
)

func computeUserTypes(events []event.Event) []UserTypeCount {
	firstTime, returning := 0, 0
	for _, e := range events {
		if e.Category == event.CategoryNew {
			firstTime++
		} else {
			returning++
		}
	}
	return []UserTypeCount{
		{Type: "First-time", Count: firstTime},
		{Type: "Returning", Count: returning},
	}
}

// User-scoped rollups key on the lowercased email so the same user with
// different capitalizations collapses to one row.
func userKey(e event.Event) string {
	return strings.ToLower(e.UserID)
}

func computeUserActivity(events []event.Event) []UserActivity {
	byUser := make(map[string]*UserActivity)
	for _, e := range events {
		email := userKey(e)
		if email == "" {
			continue
		}
		entry := byUser[email]
		if entry == nil {
			entry = &UserActivity{Email: email}
			byUser[email] = entry
		}
		entry.QueryCount++
		if e.OccurredAt != nil && (entry.LastActivity == nil || e.OccurredAt.After(*entry.LastActivity)) {
			entry.LastActivity = e.OccurredAt
		}
	}

	out := make([]UserActivity, 0, len(byUser))
	for _, entry := range byUser {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueryCount != out[j].QueryCount {
			return out[i].QueryCount > out[j].QueryCount
		}
		return out[i].Email < out[j].Email
	})
	return out
}

type sessionStats struct {
	count int
	start *time.Time
	end   *time.Time
}

// computeSessionStats yields event counts and whole-second durations
// per session, in first-seen session order. A single-event session or
// one without parseable timestamps has duration 0.
func computeSessionStats(events []event.Event) (counts []int, durations []int) {
	bySession := make(map[string]*sessionStats)
	var order []string

	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		s := bySession[e.SessionID]
		if s == nil {
			s = &sessionStats{}
			bySession[e.SessionID] = s
			order = append(order, e.SessionID)
		}
		s.count++
		if e.OccurredAt != nil {
			if s.start == nil || e.OccurredAt.Before(*s.start) {
				s.start = e.OccurredAt
			}
			if s.end == nil || e.OccurredAt.After(*s.end) {
				s.end = e.OccurredAt
			}
		}
	}

	counts = make([]int, 0, len(order))
	durations = make([]int, 0, len(order))
	for _, sid := range order {
		s := bySession[sid]
		counts = append(counts, s.count)
		if s.start == nil || s.end == nil {
			durations = append(durations, 0)
			continue
		}
		secs := int(s.end.Sub(*s.start).Round(time.Second) / time.Second)
		if secs < 0 {
			secs = 0
		}
		durations = append(durations, secs)
	}
	return counts, durations
}

func avgQueriesPerSession(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return float64(sum) / float64(len(counts))
}

func computeDuplicateQueries(events []event.Event) []DuplicateQuestion {
	type bucket struct {
		count int
		users map[string]struct{}
	}
	byQuestion := make(map[string]*bucket)

	for _, e := range events {
		if e.Question == "" {
			continue
		}
		norm := strings.TrimSpace(strings.ToLower(e.Question))
		if norm == "" {
			continue
		}
		b := byQuestion[norm]
		if b == nil {
			b = &bucket{users: make(map[string]struct{})}
			byQuestion[norm] = b
		}
		b.count++
		if e.UserID != "" {
			b.users[e.UserID] = struct{}{}
		}
	}

	out := make([]DuplicateQuestion, 0)
	for q, b := range byQuestion {
		if b.count <= 1 {
			continue
		}
		users := make([]string, 0, len(b.users))
		for u := range b.users {
			users = append(users, u)
		}
		sort.Strings(users)
		out = append(out, DuplicateQuestion{Query: q, Count: b.count, Users: users})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	return out
}

func computeQueryComplexity(events []event.Event) []ComplexityStats {
	type bucket struct {
		sumLen    int
		sumTokens int
		count     int
	}
	byType := make(map[event.Category]*bucket)

	for _, e := range events {
		b := byType[e.Category]
		if b == nil {
			b = &bucket{}
			byType[e.Category] = b
		}
		b.sumLen += utf8.RuneCountInString(e.Question)
		b.sumTokens += len(strings.Fields(e.Question))
		b.count++
	}

	out := make([]ComplexityStats, 0, len(byType))
	for cat, b := range byType {
		label := "Returning"
		if cat == event.CategoryNew {
			label = "First-time"
		}
		out = append(out, ComplexityStats{
			UserType:  label,
			AvgLength: float64(b.sumLen) / float64(b.count),
			AvgTokens: float64(b.sumTokens) / float64(b.count),
			Count:     b.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserType < out[j].UserType
	})
	return out
}

func computeRetentionWeekly(events []event.Event) []RetentionCohort {
	byWeek := make(map[string]map[string]struct{})
	for _, e := range events {
		email := userKey(e)
		if email == "" || e.OccurredAt == nil {
			continue
		}
		week := WeekKey(*e.OccurredAt)
		if byWeek[week] == nil {
			byWeek[week] = make(map[string]struct{})
		}
		byWeek[week][email] = struct{}{}
	}

	out := make([]RetentionCohort, 0, len(byWeek))
	for week, users := range byWeek {
		out = append(out, RetentionCohort{Week: week, Users: len(users)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}

func truncateQuestion(q, placeholder string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return placeholder
	}
	runes := []rune(q)
	if len(runes) > journeyTruncateAt {
		return string(runes[:journeyTruncateAt]) + "..."
	}
	return q
}

func computeJourneyTransitions(events []event.Event) []JourneyTransition {
	bySession := make(map[string][]event.Event)
	var order []string
	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		if _, ok := bySession[e.SessionID]; !ok {
			order = append(order, e.SessionID)
		}
		bySession[e.SessionID] = append(bySession[e.SessionID], e)
	}

	type key struct{ from, to string }
	counts := make(map[key]int)

	for _, sid := range order {
		session := bySession[sid]
		sort.SliceStable(session, func(i, j int) bool {
			var ti, tj time.Time
			if session[i].OccurredAt != nil {
				ti = *session[i].OccurredAt
			}
			if session[j].OccurredAt != nil {
				tj = *session[j].OccurredAt
			}
			return ti.Before(tj)
		})
		for i := 0; i+1 < len(session); i++ {
			counts[key{
				from: truncateQuestion(session[i].Question, journeyStart),
				to:   truncateQuestion(session[i+1].Question, journeyNext),
			}]++
		}
	}

	out := make([]JourneyTransition, 0, len(counts))
	for k, count := range counts {
		out = append(out, JourneyTransition{From: k.from, To: k.to, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func computeEngagement(events []event.Event) []EngagementEntry {
	byUser := make(map[string]*EngagementEntry)
	for _, e := range events {
		email := userKey(e)
		if email == "" {
			continue
		}
		entry := byUser[email]
		if entry == nil {
			entry = &EngagementEntry{Email: email}
			byUser[email] = entry
		}
		entry.QueryCount++
		if e.Succeeded {
			entry.SuccessCount++
		}
	}

	out := make([]EngagementEntry, 0, len(byUser))
	for _, entry := range byUser {
		entry.SuccessRate = SuccessRate(entry.SuccessCount, entry.QueryCount)
		entry.Score = EngagementScore(entry.QueryCount, entry.SuccessRate)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Email < out[j].Email
	})
	return out
}
