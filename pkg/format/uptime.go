package format

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	secondsInMinute = 60
	secondsInHour   = 60 * secondsInMinute
	secondsInDay    = 24 * secondsInHour
)

// FormatUptime renders a number of seconds using the coarsest nonzero unit:
// "1d 1h 1m", "1h 1m 1s", "1m 1s" or "1s". Negative values render as "0s".
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}

	days := seconds / secondsInDay
	hours := (seconds % secondsInDay) / secondsInHour
	minutes := (seconds % secondsInHour) / secondsInMinute
	secs := seconds % secondsInMinute

	switch {
	case days > 0:
		return itoa(days) + "d " + itoa(hours) + "h " + itoa(minutes) + "m"
	case hours > 0:
		return itoa(hours) + "h " + itoa(minutes) + "m " + itoa(secs) + "s"
	case minutes > 0:
		return itoa(minutes) + "m " + itoa(secs) + "s"
	default:
		return itoa(secs) + "s"
	}
}

// FormatDuration is FormatUptime for a time.Duration, truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	return FormatUptime(int64(d / time.Second))
}

// Ago renders t relative to now ("3 seconds ago"). The zero time renders empty.
func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
