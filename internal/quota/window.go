package quota

import "time"

// Window is one rolling calendar window. StartUTC and ResetUTC bound the
// window on the UTC timeline; ResetLocal is the same reset instant
// expressed as naive local wall-clock time (UTC location, offset applied)
// for user-facing messages.
type Window struct {
	StartUTC   time.Time
	ResetUTC   time.Time
	ResetLocal time.Time
}

// WindowSet holds the day and month windows for one reference instant.
type WindowSet struct {
	Day   Window
	Month Window
}

// Windows maps a UTC instant to the current day and month windows,
// anchored to the given fixed UTC offset. Pure: two calls with the same
// arguments yield identical boundaries.
func Windows(nowUTC time.Time, offset time.Duration) WindowSet {
	local := nowUTC.UTC().Add(offset)

	dayStartLocal := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	monthStartLocal := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)

	// AddDate on the first of the month is month-length safe; the reset is
	// always the first of the next month, never a spillover day.
	dayResetLocal := dayStartLocal.AddDate(0, 0, 1)
	monthResetLocal := monthStartLocal.AddDate(0, 1, 0)

	return WindowSet{
		Day: Window{
			StartUTC:   dayStartLocal.Add(-offset),
			ResetUTC:   dayResetLocal.Add(-offset),
			ResetLocal: dayResetLocal,
		},
		Month: Window{
			StartUTC:   monthStartLocal.Add(-offset),
			ResetUTC:   monthResetLocal.Add(-offset),
			ResetLocal: monthResetLocal,
		},
	}
}
