package migrate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JohanDevl/Exams-Viewer/internal/domain/session"
)

// Stored documents went through several writers, so scalar fields can
// arrive as numbers, numeric strings or ISO dates. These helpers accept
// every shape seen in the wild and report whether the value was usable.

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(math.Round(t)), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return toInt64(f)
		}
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return toInt64(f)
		}
	}
	return 0, false
}

func toInt(v any) int {
	i, _ := toInt64(v)
	return int(i)
}

// toMillis reads a timestamp given as epoch milliseconds or as a date string.
func toMillis(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return ts.UnixMilli(), true
			}
		}
	}
	return toInt64(v)
}

// truthy follows the loose boolean reading of the old writers.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "false" && t != "0"
	default:
		i, ok := toInt64(v)
		return !ok || i != 0
	}
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch s := e.(type) {
			case string:
				out = append(out, s)
			case nil:
			default:
				if i, ok := toInt64(s); ok {
					out = append(out, strconv.FormatInt(i, 10))
				}
			}
		}
		return out
	case []string:
		return append([]string{}, t...)
	case string:
		if t == "" {
			return []string{}
		}
		return []string{t}
	}
	return []string{}
}

func toQuestionNumbers(v any) []int {
	list, _ := v.([]any)
	out := make([]int, 0, len(list))
	seen := make(map[int]bool, len(list))
	for _, e := range list {
		n, err := session.ParseQuestionNumber(e)
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func toObjects(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// firstOf returns the first present, non-nil value among keys.
func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func deleteKeys(m map[string]any, keys ...string) {
	for _, k := range keys {
		delete(m, k)
	}
}

// firstAction maps both the textual and the single-letter spellings.
func firstAction(v any) session.FirstAction {
	s, _ := v.(string)
	switch s {
	case "correct", "c":
		return session.FirstActionCorrect
	case "incorrect", "i":
		return session.FirstActionIncorrect
	case "preview", "p":
		return session.FirstActionPreview
	}
	return session.FirstActionNone
}
