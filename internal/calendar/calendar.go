// Package calendar computes the date windows behind the scheduling calendar:
// the half-open query range for a view, the navigation targets, and the day
// cells of the grid. Weeks start on Sunday. All values keep the location of
// the reference time.
package calendar

import (
	"fmt"
	"time"
)

type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

func ParseView(raw string) (View, error) {
	switch View(raw) {
	case ViewMonth, ViewWeek, ViewDay:
		return View(raw), nil
	case "":
		return ViewMonth, nil
	}
	return "", fmt.Errorf("unknown calendar view %q", raw)
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// Range is the [from, to) window the view shows around ref.
func Range(ref time.Time, view View) (time.Time, time.Time) {
	switch view {
	case ViewWeek:
		from := StartOfWeek(ref)
		return from, from.AddDate(0, 0, 7)
	case ViewDay:
		from := StartOfDay(ref)
		return from, from.AddDate(0, 0, 1)
	default:
		from := StartOfMonth(ref)
		return from, from.AddDate(0, 1, 0)
	}
}

// Prev moves one view back. Months land on day 1 so short months never overflow.
func Prev(ref time.Time, view View) time.Time {
	switch view {
	case ViewWeek:
		return ref.AddDate(0, 0, -7)
	case ViewDay:
		return ref.AddDate(0, 0, -1)
	default:
		return StartOfMonth(ref).AddDate(0, -1, 0)
	}
}

func Next(ref time.Time, view View) time.Time {
	switch view {
	case ViewWeek:
		return ref.AddDate(0, 0, 7)
	case ViewDay:
		return ref.AddDate(0, 0, 1)
	default:
		return StartOfMonth(ref).AddDate(0, 1, 0)
	}
}

func Today(now time.Time) time.Time {
	return StartOfDay(now)
}

// Days lists the cells of the grid. A month grid is padded out to whole weeks.
func Days(ref time.Time, view View) []time.Time {
	from, to := Range(ref, view)
	if view == ViewMonth || view == "" {
		from = StartOfWeek(from)
		last := to.AddDate(0, 0, -1)
		to = StartOfWeek(last).AddDate(0, 0, 7)
	}

	days := make([]time.Time, 0, 42)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Navigate resolves a navigation action ("prev", "next", "today") against ref.
func Navigate(ref, now time.Time, view View, action string) (time.Time, error) {
	switch action {
	case "prev":
		return Prev(ref, view), nil
	case "next":
		return Next(ref, view), nil
	case "today":
		return Today(now), nil
	}
	return time.Time{}, fmt.Errorf("unknown calendar action %q", action)
}
