package feed

import (
	"fmt"
	"math"
	"time"
)

const (
	minutesInDay         = 24 * 60
	minutesInAlmost2Days = 42 * 60
	minutesInMonth       = 30 * minutesInDay
	minutesIn2Months     = 2 * minutesInMonth
)

// TimeAgo renders the distance between t and now in words, e.g. "about 2 hours ago".
// Buckets follow date-fns formatDistance.
func TimeAgo(t, now time.Time) string {
	return distance(t, now) + " ago"
}

func distance(t, now time.Time) string {
	earlier, later := t, now
	if later.Before(earlier) {
		earlier, later = later, earlier
	}
	minutes := int(math.Round(later.Sub(earlier).Minutes()))

	switch {
	case minutes == 0:
		return "less than a minute"
	case minutes == 1:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	case minutes < minutesInDay:
		return plural("about %d hour", roundDiv(minutes, 60))
	case minutes < minutesInAlmost2Days:
		return "1 day"
	case minutes < minutesInMonth:
		return plural("%d day", roundDiv(minutes, minutesInDay))
	case minutes < minutesIn2Months:
		return plural("about %d month", roundDiv(minutes, minutesInMonth))
	}

	months := monthsBetween(earlier, later)
	if months < 12 {
		return plural("%d month", max(roundDiv(minutes, minutesInMonth), 1))
	}
	years, rest := months/12, months%12
	switch {
	case rest < 3:
		return plural("about %d year", years)
	case rest < 9:
		return plural("over %d year", years)
	default:
		return plural("almost %d year", years+1)
	}
}

func roundDiv(n, d int) int {
	return int(math.Round(float64(n) / float64(d)))
}

func plural(format string, n int) string {
	s := fmt.Sprintf(format, n)
	if n != 1 {
		s += "s"
	}
	return s
}

// monthsBetween counts full calendar months from earlier to later.
func monthsBetween(earlier, later time.Time) int {
	m := (later.Year()-earlier.Year())*12 + int(later.Month()-earlier.Month())
	if m > 0 && earlier.AddDate(0, m, 0).After(later) {
		m--
	}
	return m
}
