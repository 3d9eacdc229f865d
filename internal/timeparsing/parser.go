// Package timeparsing turns user-supplied due dates into calendar dates.
//
// Parsing is layered:
//  1. Absolute dates (2006-01-02, RFC3339)
//  2. Compact offsets (+10d, 3w, 2m, 1y)
//  3. Natural language (tomorrow, next friday, in 3 weeks)
package timeparsing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateLayout is the canonical calendar-date format used across the module.
const DateLayout = "2006-01-02"

var ErrUnrecognized = errors.New("unrecognized date")

// compactOffsetRe matches [+]?(\d+)([dwmy]). Past offsets are not accepted.
var compactOffsetRe = regexp.MustCompile(`^\+?(\d+)([dwmy])$`)

// isoShapeRe matches anything written like a calendar date. Such input never
// falls through to natural language, where "02-30" would read as a time of day.
var isoShapeRe = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)

var nlp = newNLP()

func newNLP() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDueDate resolves s relative to now and returns midnight UTC of the
// resulting calendar day.
func ParseDueDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrUnrecognized)
	}

	if t, err := time.Parse(DateLayout, s); err == nil {
		return Day(t), nil
	} else if isoShapeRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognized, s, err)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	if t, err := ParseCompactOffset(s, now); err == nil {
		return Day(t), nil
	}

	r, err := nlp.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognized, s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, s)
	}
	// The whole input must be the phrase; "banana tomorrow" is not a date.
	if r.Index != 0 || len(r.Text) != len(s) {
		return time.Time{}, fmt.Errorf("%w: %q: only %q looks like a date", ErrUnrecognized, s, r.Text)
	}
	return Day(r.Time), nil
}

// ParseCompactOffset parses "+10d", "3w", "2m" or "1y" as an offset from now.
func ParseCompactOffset(s string, now time.Time) (time.Time, error) {
	m := compactOffsetRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a compact offset: %q", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid offset amount: %q", m[1])
	}
	switch m[2] {
	case "d":
		return now.AddDate(0, 0, n), nil
	case "w":
		return now.AddDate(0, 0, 7*n), nil
	case "m":
		return now.AddDate(0, n, 0), nil
	default:
		return now.AddDate(n, 0, 0), nil
	}
}

// Day truncates t to midnight UTC of its own calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
