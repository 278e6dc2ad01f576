// Package codec implements the compact storage encoding: long field names
// are replaced by short aliases and booleans/null by sentinel tokens, so
// the statistics document fits comfortably in a quota-limited store.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode is returned when a payload is not valid JSON.
var ErrDecode = errors.New("codec: payload is not valid JSON")

const (
	tokenTrue  = "_T"
	tokenFalse = "_F"
	tokenNull  = "_N"

	// keyEscape prefixes unknown keys that would otherwise be read back as an alias.
	keyEscape = "~"
	// stringEscape is doubled at the start of strings so they never read back as a token.
	stringEscape = "_"
)

// keyAliases maps long field names to their stored alias.
var keyAliases = map[string]string{
	"sessions":              "s",
	"currentSession":        "cs",
	"totalStats":            "ts",
	"examCode":              "ec",
	"examName":              "en",
	"startTime":             "st",
	"endTime":               "et",
	"questions":             "q",
	"visitedQuestions":      "vq",
	"totalQuestions":        "tq",
	"correctAnswers":        "ca",
	"incorrectAnswers":      "ia",
	"previewAnswers":        "pa",
	"totalTime":             "tt",
	"completed":             "c",
	"questionNumber":        "qn",
	"userAnswers":           "ua",
	"attempts":              "att",
	"timeSpent":             "tsp",
	"isCorrect":             "ic",
	"finalScore":            "fs",
	"resetCount":            "rc",
	"highlightButtonClicks": "hbc",
	"highlightViewCount":    "hvc",
	"firstActionType":       "fat",
	"firstActionRecorded":   "far",
	"selectedAnswers":       "a",
	"timestamp":             "tms",
	"wasHighlightEnabled":   "whe",
	"totalCorrect":          "tc",
	"totalIncorrect":        "ti",
	"totalPreview":          "tp",
	"examStats":             "es",
}

var keyNames = reverse(keyAliases)

func reverse(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Alias returns the stored alias of a long field name.
func Alias(name string) (string, bool) {
	a, ok := keyAliases[name]
	return a, ok
}

// Encode marshals v to JSON and rewrites it in the compact form.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec: marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("codec: normalize: %w", err)
	}

	out, err := json.Marshal(compress(generic))
	if err != nil {
		return "", fmt.Errorf("codec: marshal compact: %w", err)
	}
	return string(out), nil
}

// Decode parses a compact payload and restores long field names and
// boolean/null values. Numbers come back as float64, as with encoding/json.
func Decode(text string) (any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return expand(parsed), nil
}

// DecodeObject is Decode for payloads that must hold a JSON object.
func DecodeObject(text string) (map[string]any, error) {
	v, err := Decode(text)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %T, not an object", ErrDecode, v)
	}
	return obj, nil
}

func compress(v any) any {
	switch t := v.(type) {
	case nil:
		return tokenNull
	case bool:
		if t {
			return tokenTrue
		}
		return tokenFalse
	case string:
		if strings.HasPrefix(t, stringEscape) {
			return stringEscape + t
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = compress(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[compressKey(k)] = compress(e)
		}
		return out
	default:
		// Numbers are never aliased so they cannot collide with tokens.
		return t
	}
}

func compressKey(k string) string {
	if a, ok := keyAliases[k]; ok {
		return a
	}
	if _, isAlias := keyNames[k]; isAlias || strings.HasPrefix(k, keyEscape) {
		return keyEscape + k
	}
	return k
}

func expand(v any) any {
	switch t := v.(type) {
	case string:
		switch t {
		case tokenTrue:
			return true
		case tokenFalse:
			return false
		case tokenNull:
			return nil
		}
		if strings.HasPrefix(t, stringEscape+stringEscape) {
			return t[len(stringEscape):]
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = expand(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[expandKey(k)] = expand(e)
		}
		return out
	default:
		return t
	}
}

func expandKey(k string) string {
	if strings.HasPrefix(k, keyEscape) {
		return k[len(keyEscape):]
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return k
}
