package ai

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// cleanJSONBlock strips a surrounding markdown code fence, if any.
func cleanJSONBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// extractJSON returns the JSON value embedded in s. Each opener is paired
// with the last matching closer; the longest candidate that parses wins, so
// bracketed prose before the value is skipped. Only objects are considered
// unless allowArray is set. When nothing parses the first candidate is
// returned and the caller reports it as invalid.
func extractJSON(s string, allowArray bool) (string, error) {
	s = cleanJSONBlock(s)
	if s == "" {
		return "", errors.New("empty response")
	}

	openers := "{"
	if allowArray {
		openers = "{["
	}
	var first, best string
	found := map[byte]bool{}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !strings.ContainsRune(openers, rune(c)) || found[c] {
			continue
		}
		closer := "}"
		if c == '[' {
			closer = "]"
		}
		last := strings.LastIndex(s, closer)
		if last < i {
			continue
		}
		candidate := s[i : last+1]
		if first == "" {
			first = candidate
		}
		if json.Valid([]byte(candidate)) {
			// Later openers of the same kind only yield shorter values.
			found[c] = true
			if len(candidate) > len(best) {
				best = candidate
			}
		}
	}
	switch {
	case best != "":
		return best, nil
	case first != "":
		return first, nil
	}
	return "", errors.New("no JSON value found in response")
}

// score converts an optional model-supplied number into a 0-100 integer.
func score(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	r := math.Round(*v)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	}
	return int(r)
}

// number reads a model-supplied number. Numeric strings are accepted; any
// other value yields nil.
func number(raw json.RawMessage) *float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}

// text reads a model-supplied string; any other value yields "".
func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringList reads a model-supplied list of strings. Non-arrays yield an
// empty list; non-string and blank items are dropped. Never returns nil.
func stringList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
