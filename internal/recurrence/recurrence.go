// Package recurrence computes the next due date of a repeating task.
//
// A Rule describes how to step from one due date to the next; it never
// materializes future occurrences. All calculations are relative to the
// task's own due date, never to the current time.
package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the repeat period of a Rule.
type Kind string

const (
	Daily   Kind = "daily"
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Yearly  Kind = "yearly"
)

var (
	// ErrUnknownKind is returned when decoding a rule with an unrecognized kind.
	ErrUnknownKind = errors.New("unknown recurrence kind")
	// ErrInvalidRule is returned for rules or repeat text that cannot be used.
	ErrInvalidRule = errors.New("invalid recurrence rule")
)

// Rule is a recurrence rule attached to a task with a due date.
type Rule struct {
	Kind Kind
	// Days restricts a weekly rule to these weekdays. Empty means the
	// weekday of the current due date.
	Days []time.Weekday
	// Day is the day-of-month anchor of a monthly rule. Zero anchors on the
	// day of the current due date.
	Day int
}

// Validate reports whether the rule can be used to compute occurrences.
func (r Rule) Validate() error {
	switch r.Kind {
	case Daily, Yearly:
	case Weekly:
		for _, d := range r.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, d)
			}
		}
	case Monthly:
		if r.Day < 0 || r.Day > 31 {
			return fmt.Errorf("%w: day of month %d out of range", ErrInvalidRule, r.Day)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	return nil
}

// Next returns the first occurrence of rule strictly after current.
// The time of day and location of current are preserved. Rules that fail
// Validate step by one day.
func Next(current time.Time, rule Rule) time.Time {
	switch rule.Kind {
	case Weekly:
		return nextWeekly(current, rule.Days)
	case Monthly:
		day := rule.Day
		if day == 0 {
			day = current.Day()
		}
		y, m, _ := current.Date()
		return clampedDate(current, y, m+1, day)
	case Yearly:
		y, m, d := current.Date()
		return clampedDate(current, y+1, m, d)
	default:
		return current.AddDate(0, 0, 1)
	}
}

// Anchored returns a copy of the rule with an unset monthly day pinned to the
// day of current. Stepping an unpinned rule from a clamped date would keep
// the clamped day from then on.
func (r Rule) Anchored(current time.Time) Rule {
	out := r
	out.Days = slices.Clone(r.Days)
	if out.Kind == Monthly && out.Day == 0 {
		out.Day = current.Day()
	}
	return out
}

func nextWeekly(current time.Time, days []time.Weekday) time.Time {
	if len(days) == 0 {
		return current.AddDate(0, 0, 7)
	}
	for i := 1; i <= 7; i++ {
		next := current.AddDate(0, 0, i)
		if slices.Contains(days, next.Weekday()) {
			return next
		}
	}
	return current.AddDate(0, 0, 7)
}

// clampedDate builds the date year/month/day at current's time of day,
// clamping day to the last day of the (normalized) month.
func clampedDate(current time.Time, year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()
	if last := daysIn(year, month); day > last {
		day = last
	}
	h, mi, s := current.Clock()
	return time.Date(year, month, day, h, mi, s, current.Nanosecond(), current.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range weekdayNames {
		full := strings.ToLower(time.Weekday(i).String())
		if s == name || s == full {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

func normalizeDays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}

// Parse reads the repeat text used by the task form and the command line:
// "never" (or empty), "daily", "weekly", "monthly", "monthly 15", "yearly",
// or a comma separated weekday list such as "Mon,Wed,Fri".
// It returns nil for tasks that do not repeat.
func Parse(text string) (*Rule, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	switch s {
	case "", "never", "none":
		return nil, nil
	case string(Daily):
		return &Rule{Kind: Daily}, nil
	case string(Weekly):
		return &Rule{Kind: Weekly}, nil
	case string(Monthly):
		return &Rule{Kind: Monthly}, nil
	case string(Yearly):
		return &Rule{Kind: Yearly}, nil
	}

	if rest, ok := strings.CutPrefix(s, string(Monthly)); ok {
		day, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || day < 1 || day > 31 {
			return nil, fmt.Errorf("%w: %q (day of month must be 1-31)", ErrInvalidRule, text)
		}
		return &Rule{Kind: Monthly, Day: day}, nil
	}

	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		d, ok := parseWeekday(part)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRule, text)
		}
		days = append(days, d)
	}
	return &Rule{Kind: Weekly, Days: normalizeDays(days)}, nil
}

// String renders the rule in the syntax accepted by Parse.
func (r Rule) String() string {
	switch r.Kind {
	case Daily:
		return "Daily"
	case Weekly:
		if len(r.Days) == 0 {
			return "Weekly"
		}
		names := make([]string, 0, len(r.Days))
		for _, d := range r.Days {
			names = append(names, d.String()[:3])
		}
		return strings.Join(names, ",")
	case Monthly:
		if r.Day == 0 {
			return "Monthly"
		}
		return fmt.Sprintf("Monthly %d", r.Day)
	case Yearly:
		return "Yearly"
	default:
		return string(r.Kind)
	}
}

// ruleJSON is the tagged-variant wire form of a Rule.
type ruleJSON struct {
	Kind Kind     `json:"kind"`
	Days []string `json:"days,omitempty"`
	Day  int      `json:"day,omitempty"`
}

// MarshalJSON encodes the rule as {"kind": ..., "days": [...], "day": N}.
func (r Rule) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := ruleJSON{Kind: r.Kind}
	switch r.Kind {
	case Weekly:
		for _, d := range r.Days {
			out.Days = append(out.Days, weekdayNames[d])
		}
	case Monthly:
		out.Day = r.Day
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the tagged variant. Unknown kinds are an error so
// that a rule is never silently dropped.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	rule := Rule{Kind: in.Kind}
	switch in.Kind {
	case Daily, Yearly:
	case Weekly:
		for _, name := range in.Days {
			d, ok := parseWeekday(name)
			if !ok {
				return fmt.Errorf("%w: weekday %q", ErrInvalidRule, name)
			}
			rule.Days = append(rule.Days, d)
		}
		rule.Days = normalizeDays(rule.Days)
	case Monthly:
		rule.Day = in.Day
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}

	if err := rule.Validate(); err != nil {
		return err
	}
	*r = rule
	return nil
}
