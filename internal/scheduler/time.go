package scheduler

import (
	"fmt"
	"math"
	"time"
)

// All scheduling arithmetic happens in whole minutes; hours exist only at
// the interface boundary. This keeps repeated split/clip operations free of
// floating-point drift.

// Minutes converts hours to whole minutes, rounding to the nearest minute.
func Minutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// Hours converts minutes back to hours, rounded to two decimals.
func Hours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

// Midnight truncates t to its date at midnight UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date as YYYY-MM-DD for use as a map key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Clock renders minutes since midnight as HH:MM.
func Clock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
