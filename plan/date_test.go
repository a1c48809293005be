package plan_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/plan"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseDate_Strict(t *testing.T) {
	d, err := plan.ParseDate("2025-04-20")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
	assert.Equal(t, time.April, d.Month())
	assert.Equal(t, 20, d.Day())
	assert.Equal(t, "2025-04-20", d.String())

	for _, raw := range []string{"", "2025-4-20", "20.04.2025", "2025-13-01", "2025-02-30", "garbage"} {
		_, err := plan.ParseDate(raw)
		assert.Error(t, err, "should reject %q", raw)
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := plan.NewDate(2025, time.January, 31)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-31"`, string(raw))

	var back plan.Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))
}

func TestDate_UnmarshalTolerant(t *testing.T) {
	// Malformed input must not fail the decode of a whole state blob;
	// it yields the zero date for validation to flag.
	var d plan.Date
	require.NoError(t, json.Unmarshal([]byte(`"not-a-date"`), &d))
	assert.True(t, d.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
}

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, plan.DaysInMonth(2025, time.January))
	assert.Equal(t, 28, plan.DaysInMonth(2025, time.February))
	assert.Equal(t, 29, plan.DaysInMonth(2024, time.February))
	assert.Equal(t, 30, plan.DaysInMonth(2025, time.April))
	assert.Equal(t, 31, plan.DaysInMonth(2025, time.December))
}

// =============================================================================
// MONTH SELECTOR
// =============================================================================

func TestParseMonth(t *testing.T) {
	year, month, err := plan.ParseMonth("2025-04")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.April, month)

	for _, raw := range []string{"", "2025", "2025-4", "2025/04", "2025-00", "2025-13", "25-04-01"} {
		_, _, err := plan.ParseMonth(raw)
		assert.ErrorIs(t, err, plan.ErrInvalidMonth, "should reject %q", raw)
	}
}

func TestMonthRange(t *testing.T) {
	start, end, err := plan.MonthRange("2025-12")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", start.String())
	assert.Equal(t, "2026-01-01", end.String())
}
