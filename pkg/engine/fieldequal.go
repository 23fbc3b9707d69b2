package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/taskmesh/tasksync/pkg/types"
)

// fieldValue extracts one field's current value off a CanonicalTask, typed
// as `any` so fieldEqual can apply the field's own equivalence policy.
func fieldValue(f types.FieldName, t types.CanonicalTask) any {
	switch f {
	case types.FieldTitle:
		return t.Title
	case types.FieldNotes:
		return t.Notes
	case types.FieldDueAt:
		return t.DueAt
	case types.FieldDueTime:
		return t.DueTime
	case types.FieldStatus:
		return t.Status
	case types.FieldReminder:
		return t.Reminder
	case types.FieldRecurrence:
		return t.Recurrence
	case types.FieldCategories:
		return t.Categories
	case types.FieldImportance:
		return t.Importance
	case types.FieldSteps:
		return t.Steps
	case types.FieldStartAt:
		return t.StartAt
	}
	return nil
}

// applyField writes a resolved field value back onto a CanonicalTask.
func applyField(f types.FieldName, dst *types.CanonicalTask, value any) {
	switch f {
	case types.FieldTitle:
		dst.Title = value.(string)
	case types.FieldNotes:
		dst.Notes = value.(string)
	case types.FieldDueAt:
		dst.DueAt = value.(*time.Time)
	case types.FieldDueTime:
		dst.DueTime = value.(string)
	case types.FieldStatus:
		dst.Status = value.(types.TaskStatus)
	case types.FieldReminder:
		dst.Reminder = value.(*time.Time)
	case types.FieldRecurrence:
		dst.Recurrence = value.(string)
	case types.FieldCategories:
		dst.Categories = value.([]string)
	case types.FieldImportance:
		dst.Importance = value.(types.Importance)
	case types.FieldSteps:
		dst.Steps = value.([]types.Step)
	case types.FieldStartAt:
		dst.StartAt = value.(*time.Time)
	}
}

// fieldEqual implements one per-field equivalence rule per field so
// provider round-trip noise (empty string vs. nil, whitespace, date
// precision) never looks like a real edit.
func fieldEqual(f types.FieldName, a, b any) bool {
	switch f {
	case types.FieldNotes, types.FieldTitle, types.FieldDueTime, types.FieldRecurrence:
		return nullishCollapse(a) == nullishCollapse(b)
	case types.FieldDueAt, types.FieldStartAt, types.FieldReminder:
		return datePrefixEqual(a, b, f)
	case types.FieldCategories:
		return sortedStringsEqual(a.([]string), b.([]string))
	case types.FieldSteps:
		return stepsEqual(a.([]types.Step), b.([]types.Step))
	case types.FieldStatus:
		return a.(types.TaskStatus) == b.(types.TaskStatus)
	case types.FieldImportance:
		return a.(types.Importance) == b.(types.Importance)
	}
	return a == b
}

// nullishCollapse treats nil/empty-string optional string fields as one
// equivalence class, so a provider that round-trips "" vs never sending
// the field at all never produces a spurious update.
func nullishCollapse(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

const dateOnlyLayout = "2006-01-02"

// datePrefixEqual compares two *time.Time-valued fields by their
// YYYY-MM-DD prefix only for dueAt/startAt (date-only fields), ignoring
// time-of-day and sub-day precision noise. reminder is an instant, not a
// date-only field, so it compares as an exact instant (time.Time.Equal).
func datePrefixEqual(a, b any, f types.FieldName) bool {
	ta, _ := a.(*time.Time)
	tb, _ := b.(*time.Time)
	if ta == nil && tb == nil {
		return true
	}
	if ta == nil || tb == nil {
		return false
	}
	if f == types.FieldReminder {
		return ta.Equal(*tb)
	}
	return ta.Format(dateOnlyLayout) == tb.Format(dateOnlyLayout)
}

// sortedStringsEqual compares categories as a set: order never matters,
// duplicates are not deduplicated since the provider API itself doesn't
// allow them.
func sortedStringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// stepsEqual compares steps positionally: steps are an ordered sequence,
// so a reorder is a real edit, not round-trip noise.
func stepsEqual(a, b []types.Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Text != b[i].Text || a[i].Checked != b[i].Checked {
			return false
		}
	}
	return true
}
