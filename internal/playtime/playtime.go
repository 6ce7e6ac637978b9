// Package playtime derives live playtime from a session baseline and
// renders durations for display.
package playtime

import (
	"fmt"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Elapsed returns the whole seconds between joinedAt and now.
// A clock that moved backwards yields zero.
func Elapsed(joinedAt, now time.Time) int64 {
	d := now.Sub(joinedAt)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Live returns baseline plus the time elapsed since joinedAt.
// The result is never less than baseline.
func Live(baseline int64, joinedAt, now time.Time) int64 {
	return baseline + Elapsed(joinedAt, now)
}

// Duration is a playtime split into calendar-free units.
type Duration struct {
	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Breakdown splits seconds into days, hours, minutes and seconds.
// Negative input is treated as zero.
func Breakdown(seconds int64) Duration {
	if seconds < 0 {
		seconds = 0
	}
	return Duration{
		Days:    seconds / secondsPerDay,
		Hours:   (seconds % secondsPerDay) / secondsPerHour,
		Minutes: (seconds % secondsPerHour) / secondsPerMinute,
		Seconds: seconds % secondsPerMinute,
	}
}

// Format renders seconds as "D days, H hours, M minutes, S seconds".
// Each unit is singular only when its value is exactly one.
func Format(seconds int64) string {
	d := Breakdown(seconds)
	return fmt.Sprintf("%s, %s, %s, %s",
		unit(d.Days, "day"),
		unit(d.Hours, "hour"),
		unit(d.Minutes, "minute"),
		unit(d.Seconds, "second"),
	)
}

func unit(n int64, name string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, name)
	}
	return fmt.Sprintf("%d %ss", n, name)
}
