package ProgressSync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyForSameDayDifferentTimes(t *testing.T) {
	morning := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	night := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, KeyFor("42", morning), KeyFor("42", night))
	assert.Equal(t, CompletionKey("42|2024-03-01"), KeyFor("42", morning))
}

func TestKeyForDistinguishesTasksAndDays(t *testing.T) {
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.NotEqual(t, KeyFor("1", day), KeyFor("2", day))
	assert.NotEqual(t, KeyFor("1", day), KeyFor("1", day.AddDate(0, 0, 1)))
}

func TestParseWireDate(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"date only", "2024-06-10"},
		{"full timestamp", "2024-06-10T15:30:00Z"},
		{"timestamp with millis", "2024-06-10T00:00:00.000Z"},
		{"timestamp with offset", "2024-06-10T22:30:00-03:00"},
	}
	want := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseWireDate(tc.value)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %v", got)
		})
	}
}

func TestParseWireDateOffsetCrossingMidnight(t *testing.T) {
	// 23:30 UTC-3 is already the next day in UTC; keys are UTC days.
	got, err := ParseWireDate("2024-06-10T23:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), got)
}

func TestParseWireDateMalformed(t *testing.T) {
	for _, value := range []string{"", "not-a-date", "10/06/2024"} {
		_, err := ParseWireDate(value)
		assert.Error(t, err, "value %q", value)
	}
}

func TestBuildIndexLastWriteWins(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	stale := &CompletionRecord{ID: OptimisticIDPrefix + "x", TaskID: "7", Date: day.Add(8 * time.Hour), IsCompleted: false, IsOptimistic: true}
	fresh := &CompletionRecord{ID: "srv-1", TaskID: "7", Date: day, IsCompleted: true}

	index := BuildIndex([]*CompletionRecord{stale, fresh})

	require.Len(t, index, 1)
	assert.Same(t, fresh, index[KeyFor("7", day)])
}

func TestHasServerIdentity(t *testing.T) {
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	placeholder := NewOptimisticRecord("7", day, true, "p1")
	assert.False(t, placeholder.HasServerIdentity())
	assert.True(t, placeholder.IsOptimistic)

	confirmed := &CompletionRecord{ID: "srv-1", TaskID: "7", Date: day}
	assert.True(t, confirmed.HasServerIdentity())
}
