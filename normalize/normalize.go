// Package normalize converts raw field values pulled out of care documents
// into typed canonical forms. Every converter fails soft: malformed or empty
// input yields an absent result, never an error. The output formats (ISO
// dates, tri-state booleans, list slices) are a contract with the reporting
// layer and must stay stable.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	wsRun    = regexp.MustCompile(`\s+`)
	digitRun = regexp.MustCompile(`\d+`)
	listSep  = regexp.MustCompile(`[\n,]+`)
)

// Whitespace collapses all whitespace runs to single spaces and trims.
func Whitespace(s string) string {
	return strings.TrimSpace(wsRun.ReplaceAllString(s, " "))
}

// Bool recognises yes/no style answers. The second return reports whether
// the input was recognised at all; "maybe" and friends are indeterminate.
func Bool(s string) (val, ok bool) {
	lowered := strings.ToLower(strings.TrimSpace(s))
	switch lowered {
	case "yes", "y", "true", "1":
		return true, true
	case "no", "n", "false", "0":
		return false, true
	}
	if strings.HasPrefix(lowered, "yes") {
		return true, true
	}
	if strings.HasPrefix(lowered, "no") {
		return false, true
	}
	return false, false
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006"}

// Date parses a date in one of the accepted layouts (ISO first, then the
// slash variants used by the upstream forms) and returns it as YYYY-MM-DD.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var datetimeLayouts = []string{
	"2006-01-02 3:04 PM",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
}

// DateTime parses a timestamp and returns it in ISO form without an offset
// (the source forms carry no timezone information).
func DateTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04:05"), true
		}
	}
	return "", false
}

var timeLayouts = []string{"15:04", "3:04 PM"}

// Time parses a clock time, truncated to minute precision, as HH:MM.
func Time(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

// Int extracts the first run of digits after removing thousands separators.
func Int(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	match := digitRun.FindString(strings.ReplaceAll(s, ",", ""))
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SplitList tokenises a delimited multi-value answer. Semicolons are treated
// as line breaks, then the value is split on newlines and commas. Each token
// is trimmed of surrounding whitespace and dash bullets; empty tokens are
// dropped. Returns nil when nothing survives.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	candidate := strings.ReplaceAll(s, ";", "\n")
	var tokens []string
	for _, chunk := range listSep.Split(candidate, -1) {
		text := strings.Trim(chunk, " -\t\r")
		if text != "" {
			tokens = append(tokens, text)
		}
	}
	return tokens
}

// JSONList parses a strict JSON array, stringifying and trimming every
// element. Returns nil when the input is not a JSON array; callers fall back
// to SplitList in that case.
func JSONList(s string) []string {
	if s == "" {
		return nil
	}
	var data []any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil
	}
	var items []string
	for _, item := range data {
		text := strings.TrimSpace(fmt.Sprint(item))
		if text != "" {
			items = append(items, text)
		}
	}
	return items
}

// BulletList splits a value on lines, stripping a leading dash used as a
// bullet marker. All non-empty lines are retained in order.
func BulletList(s string) []string {
	if s == "" {
		return nil
	}
	var items []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			cleaned := strings.TrimSpace(strings.TrimLeft(line, "- "))
			if cleaned != "" {
				items = append(items, cleaned)
			}
			continue
		}
		items = append(items, line)
	}
	return items
}
