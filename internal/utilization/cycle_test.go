package utilization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEstimateCloseDateFromLastStatement(t *testing.T) {
	now := date(2025, time.January, 20)

	last := date(2025, time.January, 15)
	assert.Equal(t, date(2025, time.February, 15), EstimateCloseDate(&last, now))

	last = date(2025, time.January, 31)
	assert.Equal(t, date(2025, time.February, 28), EstimateCloseDate(&last, now), "clamped to short month")

	last = date(2024, time.January, 31)
	assert.Equal(t, date(2024, time.February, 29), EstimateCloseDate(&last, now), "leap year")

	last = date(2024, time.December, 10)
	assert.Equal(t, date(2025, time.January, 10), EstimateCloseDate(&last, now), "year rollover")
}

func TestEstimateCloseDateFallback(t *testing.T) {
	assert.Equal(t, date(2025, time.March, 15), EstimateCloseDate(nil, date(2025, time.March, 3)))
	assert.Equal(t, date(2025, time.March, 15), EstimateCloseDate(nil, time.Date(2025, time.March, 15, 18, 0, 0, 0, time.UTC)), "same day is not passed")
	assert.Equal(t, date(2025, time.April, 15), EstimateCloseDate(nil, date(2025, time.March, 16)))
	assert.Equal(t, date(2026, time.January, 15), EstimateCloseDate(nil, date(2025, time.December, 20)))
}

func TestEstimateCloseDateCustomFallbackDay(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 28), estimateCloseDate(nil, date(2025, time.February, 1), 31))
	assert.Equal(t, date(2025, time.March, 31), estimateCloseDate(nil, date(2025, time.March, 1), 31))
}

func TestDaysUntilClose(t *testing.T) {
	now := time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 8, DaysUntilClose(now.Add(10*24*time.Hour), now, 2))
	assert.Equal(t, 0, DaysUntilClose(now.Add(24*time.Hour), now, 2))
	assert.Equal(t, 0, DaysUntilClose(now.Add(-72*time.Hour), now, 2), "past close floors at zero")
	assert.Equal(t, 2, DaysUntilClose(now.Add(36*time.Hour), now, 0), "partial days round up")
}
