package event

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Raw is one event document as stored by the upstream agent system.
type Raw = map[string]any

// Normalize converts a raw agent-log document into the canonical Event.
// Every "field may be missing, array-wrapped, or the wrong type" case is
// handled here so aggregations can work with plain typed fields.
func Normalize(raw Raw) Event {
	e := Event{
		ID:          asString(raw["id"]),
		UserID:      asString(raw["user_email"]),
		SessionID:   asString(raw["session_id"]),
		EntityID:    entityID(raw["restaurant_id"]),
		Category:    category(raw["user_type"]),
		Question:    asString(raw["question"]),
		Succeeded:   succeeded(raw["status"]),
		OccurredAt:  ParseTime(raw["query_time"]),
		RequestType: asString(unwrap(raw["request_type"])),
	}

	if e.ID == "" {
		e.ID = asString(raw["_id"])
	}

	if msg := asString(raw["error_message"]); msg != "" {
		e.ErrorText = msg
	} else {
		e.ErrorText = asString(raw["message"])
	}

	if tm, ok := asMap(raw["time"]); ok {
		if v, ok := asFloat(unwrap(tm["total_time"])); ok {
			e.LatencyMs = &v
		}
		if stages, ok := asMap(tm["stages"]); ok {
			e.StageLatencies = make(map[string]float64, len(stages))
			for name, val := range stages {
				if v, ok := asFloat(unwrap(val)); ok {
					e.StageLatencies[name] = v
				}
			}
		}
	}

	if tu, ok := asMap(raw["token_usage"]); ok {
		e.TokenUsage = stageTokens(tu)
	}

	return e
}

// ParseTime derives a comparable instant from whatever the raw
// timestamp field holds. Returns nil when nothing parses; callers
// exclude such events from windowed views, never fail.
func ParseTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil {
			return nil
		}
		u := t.UTC()
		return &u
	case string:
		return parseTimeString(t)
	case float64, int, int64, uint64, json.Number:
		if ms, ok := asFloat(v); ok && ms > 0 {
			u := time.UnixMilli(int64(ms)).UTC()
			return &u
		}
	}
	return nil
}

func parseTimeString(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}

	// Space-separated datetimes with fractional seconds or offsets:
	// retry with the first space promoted to a 'T'.
	if i := strings.IndexAny(s, " "); i > 0 {
		alt := strings.Replace(s, " ", "T", 1)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, alt); err == nil {
				u := t.UTC()
				return &u
			}
		}
	}

	return nil
}

// stageTokens flattens the token-usage mapping. The upstream writer
// sometimes nests stages under a product-namespace wrapper; one such
// level is tolerated and descended through.
func stageTokens(m map[string]any) map[string]StageTokens {
	out := make(map[string]StageTokens)
	for name, val := range m {
		sm, ok := asMap(unwrap(val))
		if !ok {
			continue
		}
		if st, ok := tokensFrom(sm); ok {
			out[name] = st
			continue
		}
		// Namespace wrapper: stages live one level down.
		for inner, innerVal := range sm {
			ism, ok := asMap(unwrap(innerVal))
			if !ok {
				continue
			}
			if st, ok := tokensFrom(ism); ok {
				out[inner] = st
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func tokensFrom(m map[string]any) (StageTokens, bool) {
	var st StageTokens
	found := false
	if v, ok := asFloat(unwrap(m["prompt_tokens"])); ok {
		st.Prompt = &v
		found = true
	}
	if v, ok := asFloat(unwrap(m["completion_tokens"])); ok {
		st.Completion = &v
		found = true
	}
	if v, ok := asFloat(unwrap(m["total_tokens"])); ok {
		st.Total = &v
		found = true
	}
	_, hasPrompt := m["prompt_tokens"]
	_, hasCompletion := m["completion_tokens"]
	_, hasTotal := m["total_tokens"]
	return st, found || hasPrompt || hasCompletion || hasTotal
}

func category(v any) Category {
	if f, ok := asFloat(unwrap(v)); ok && f == 1 {
		return CategoryNew
	}
	return CategoryReturning
}

func succeeded(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "success" || s == "true"
	}
	return false
}

func entityID(v any) string {
	v = unwrap(v)
	if f, ok := asFloat(v); ok {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return asString(v)
}

// unwrap unpacks the one-element-array form some fields arrive in.
func unwrap(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
