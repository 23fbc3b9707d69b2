package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskmesh/tasksync/pkg/types"
)

func TestNullishCollapse(t *testing.T) {
	assert.Equal(t, "", nullishCollapse(nil))
	assert.Equal(t, "", nullishCollapse(""))
	assert.Equal(t, "", nullishCollapse("   "))
	assert.Equal(t, "hello", nullishCollapse("  hello  "))
}

func TestDatePrefixEqual(t *testing.T) {
	morning := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC)
	otherDay := time.Date(2026, 3, 6, 8, 0, 0, 0, time.UTC)

	assert.True(t, datePrefixEqual(&morning, &evening, types.FieldDueAt), "same day, different time of day must be equal for dueAt")
	assert.False(t, datePrefixEqual(&morning, &otherDay, types.FieldDueAt))
	assert.True(t, datePrefixEqual((*time.Time)(nil), (*time.Time)(nil), types.FieldDueAt))
	assert.False(t, datePrefixEqual(&morning, (*time.Time)(nil), types.FieldDueAt))

	assert.False(t, datePrefixEqual(&morning, &evening, types.FieldReminder), "reminder is an instant, not date-only")
	assert.True(t, datePrefixEqual(&morning, &morning, types.FieldReminder))
}

func TestSortedStringsEqual(t *testing.T) {
	assert.True(t, sortedStringsEqual([]string{"a", "b"}, []string{"b", "a"}), "categories compare as a set")
	assert.False(t, sortedStringsEqual([]string{"a", "b"}, []string{"a"}))
	assert.True(t, sortedStringsEqual(nil, nil))
}

func TestStepsEqual(t *testing.T) {
	a := []types.Step{{Text: "one", Checked: false}, {Text: "two", Checked: true}}
	reordered := []types.Step{{Text: "two", Checked: true}, {Text: "one", Checked: false}}
	same := []types.Step{{Text: "one", Checked: false}, {Text: "two", Checked: true}}

	assert.True(t, stepsEqual(a, same))
	assert.False(t, stepsEqual(a, reordered), "steps are ordered, a reorder is a real edit")
}

func TestFieldEqualDispatch(t *testing.T) {
	assert.True(t, fieldEqual(types.FieldTitle, "Same", "Same"))
	assert.True(t, fieldEqual(types.FieldStatus, types.StatusActive, types.StatusActive))
	assert.False(t, fieldEqual(types.FieldImportance, types.ImportanceLow, types.ImportanceHigh))
}
