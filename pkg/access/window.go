package access

import "time"

// CV uploads are accepted between these days of the month, inclusive.
// The bounds are plain day-of-month integers; with 5..10 no month is short
// enough to matter, but do not assume every month has >=28 days if these
// bounds ever change.
const (
	SubmissionWindowStart = 5
	SubmissionWindowEnd   = 10
)

// InWindow reports whether now falls inside the recurring monthly
// [startDay, endDay] day-of-month window.
func InWindow(now time.Time, startDay, endDay int) bool {
	day := now.Day()
	return day >= startDay && day <= endDay
}

// NextWindowStart returns the start of the nearest submission window at or
// after the current one. Before the window opens this month, that is this
// month's startDay; once past endDay it is next month's startDay. Inside the
// window it returns the already-open occurrence.
func NextWindowStart(now time.Time, startDay, endDay int) time.Time {
	year, month, day := now.Date()
	if day > endDay {
		return time.Date(year, month+1, startDay, 0, 0, 0, 0, now.Location())
	}
	return time.Date(year, month, startDay, 0, 0, 0, 0, now.Location())
}

// Countdown is the floor-truncated time remaining until a target instant.
// All components are zero once the target has passed; never negative.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Until decomposes the remaining duration into days/hours/minutes/seconds.
func Until(target, now time.Time) Countdown {
	diff := target.Sub(now)
	if diff <= 0 {
		return Countdown{}
	}
	return Countdown{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Seconds: int(diff % time.Minute / time.Second),
	}
}

// IsZero reports whether nothing remains.
func (c Countdown) IsZero() bool {
	return c.Days == 0 && c.Hours == 0 && c.Minutes == 0 && c.Seconds == 0
}

// RemainingPercent returns how much of a fixed-duration window ending at end
// is still left, as a percentage clamped to [0, 100]. The window is assumed to
// have started at end-total.
func RemainingPercent(end time.Time, total time.Duration, now time.Time) float64 {
	if total <= 0 {
		return 0
	}
	elapsed := now.Sub(end.Add(-total))
	pct := 100 - float64(elapsed)/float64(total)*100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
