// Package taskform converts between the text fields a user edits and a task
// draft.
package taskform

import (
	"strings"
	"time"

	"todotui/backend"
	"todotui/internal/recurrence"
	"todotui/internal/utils"
)

// Field identifies one editable text field.
type Field int

const (
	FieldName Field = iota
	FieldDate
	FieldRepeats
	FieldGroup
	FieldDescription
	FieldURL
	NumFields
)

var fieldLabels = [NumFields]string{"Name", "Date", "Repeats", "Group", "Description", "URL"}

// Label returns the field's display name.
func (f Field) Label() string {
	if f < 0 || f >= NumFields {
		return ""
	}
	return fieldLabels[f]
}

// Layouts are the time layouts used to show and parse the date field.
type Layouts struct {
	Date     string
	DateTime string
}

// DefaultLayouts matches utils.ParseDateFlag.
var DefaultLayouts = Layouts{Date: utils.DefaultDateLayout, DateTime: utils.DefaultDateTimeLayout}

// Hint returns an example of accepted date input.
func (l Layouts) Hint() string {
	return l.Date + " or " + l.DateTime
}

// Form holds the raw text of every field.
type Form [NumFields]string

// FromDraft renders a draft into form text. A due date at midnight is shown
// without its time.
func FromDraft(d backend.Draft, layouts Layouts) Form {
	var f Form
	f[FieldName] = d.Name
	if d.Due != nil {
		f[FieldDate] = FormatDue(*d.Due, layouts)
	}
	if d.Recurrence != nil {
		f[FieldRepeats] = d.Recurrence.String()
	}
	f[FieldGroup] = deref(d.Group)
	f[FieldDescription] = deref(d.Description)
	f[FieldURL] = deref(d.URL)
	return f
}

// FormatDue renders a due date with the date layout when it falls on
// midnight and with the date-time layout otherwise.
func FormatDue(due time.Time, layouts Layouts) string {
	h, m, s := due.Clock()
	if h == 0 && m == 0 && s == 0 {
		return due.Format(layouts.Date)
	}
	return due.Format(layouts.DateTime)
}

// ToDraft parses the form. Completion state comes from base, and an optional
// field that base holds as present-but-empty stays so while its text is
// still empty. Blank text otherwise means absent.
//
// Field parse errors are *backend.ValidationError naming the field. The
// returned draft has not been checked against the task invariants; the store
// does that.
func (f Form) ToDraft(base backend.Draft, layouts Layouts) (backend.Draft, error) {
	d := backend.Draft{
		Name:     strings.TrimSpace(f[FieldName]),
		Complete: base.Complete,
	}

	due, err := utils.ParseDateInput(f[FieldDate], layouts.DateTime, layouts.Date)
	if err != nil {
		return backend.Draft{}, &backend.ValidationError{
			Field:  "date",
			Reason: "cannot parse " + quote(f[FieldDate]) + ", use " + layouts.Hint(),
		}
	}
	d.Due = due

	rule, err := recurrence.Parse(f[FieldRepeats])
	if err != nil {
		return backend.Draft{}, &backend.ValidationError{
			Field:  "repeats",
			Reason: "cannot parse " + quote(f[FieldRepeats]) + ", use Never, Daily, Weekly, Monthly, Yearly or Mon,Thu",
		}
	}
	// A bare "Monthly" anchors on the day the task is due.
	if rule != nil && rule.Kind == recurrence.Monthly && rule.Day == 0 && due != nil {
		rule.Day = due.Day()
	}
	d.Recurrence = rule

	d.Group = optional(f[FieldGroup], base.Group)
	d.Description = optional(f[FieldDescription], base.Description)
	d.URL = optional(f[FieldURL], base.URL)
	return d, nil
}

func optional(text string, base *string) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		if base != nil && *base == "" {
			return backend.StringPtr("")
		}
		return nil
	}
	return &text
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func quote(s string) string {
	return `"` + strings.TrimSpace(s) + `"`
}
