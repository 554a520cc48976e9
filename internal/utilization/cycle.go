package utilization

import (
	"math"
	"time"
)

const (
	// DefaultFallbackDay is the assumed statement close day when the provider reports none.
	DefaultFallbackDay = 15
	// DefaultBufferDays is subtracted from the days left so payments settle before the close.
	DefaultBufferDays = 2
)

// EstimateCloseDate returns the next statement close date.
// A known last statement date rolls forward one calendar month, clamped to the
// last day of shorter months. Otherwise day 15 of the current month is used,
// or of next month once that date has passed.
func EstimateCloseDate(last *time.Time, now time.Time) time.Time {
	return estimateCloseDate(last, now, DefaultFallbackDay)
}

func estimateCloseDate(last *time.Time, now time.Time, fallbackDay int) time.Time {
	if last != nil && !last.IsZero() {
		return addMonthClamped(*last, 1)
	}

	loc := now.Location()
	day := clampDay(now.Year(), now.Month(), fallbackDay)
	closeDate := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, loc)
	if closeDate.Before(startOfDay(now)) {
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, loc)
		closeDate = time.Date(next.Year(), next.Month(), clampDay(next.Year(), next.Month(), fallbackDay), 0, 0, 0, 0, loc)
	}
	return closeDate
}

// DaysUntilClose returns ceil(days until close) minus the buffer, never below 0.
func DaysUntilClose(closeDate, now time.Time, bufferDays int) int {
	days := int(math.Ceil(closeDate.Sub(now).Hours() / 24))
	days -= bufferDays
	if days < 0 {
		return 0
	}
	return days
}

func addMonthClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := clampDay(first.Year(), first.Month(), t.Day())
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func clampDay(year int, month time.Month, day int) int {
	if day < 1 {
		day = 1
	}
	if last := daysIn(year, month); day > last {
		return last
	}
	return day
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
