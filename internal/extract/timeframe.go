package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeframe is applied when no deadline can be assigned
const DefaultTimeframe = 180 * 24 * time.Hour

var (
	relativePattern = regexp.MustCompile(`(?i)^(?:within\s+|in\s+|next\s+)?(\d+)\s*(day|week|month|year)s?$`)
	quarterYearPattern = regexp.MustCompile(`(?i)^Q([1-4])\s+(\d{4})$`)
	bareYearPattern    = regexp.MustCompile(`^(\d{4})$`)
)

// ParseTimeframe resolves a timeframe expression to an absolute deadline.
// Deterministic given a fixed now: ISO dates pass through, "Q4 2025"
// resolves to the quarter's last day, bare years to Dec 31, relative
// counts to now + count*unit, and anything unrecognized to now + 180 days.
func ParseTimeframe(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.Add(DefaultTimeframe)
	}

	// ISO date or timestamp
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return endOfDay(t)
	}

	if m := quarterYearPattern.FindStringSubmatch(s); m != nil {
		q, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		// Last day of the quarter
		month := time.Month(q * 3)
		return endOfDay(lastDayOfMonth(year, month))
	}

	if m := bareYearPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return endOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	}

	// "end of 2025", "by end of 2025"
	if m := regexp.MustCompile(`(?i)end of (\d{4})`).FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return endOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		count, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "day":
			return now.AddDate(0, 0, count)
		case "week":
			return now.AddDate(0, 0, count*7)
		case "month":
			return now.AddDate(0, count, 0)
		case "year":
			return now.AddDate(count, 0, 0)
		}
	}

	return now.Add(DefaultTimeframe)
}

func lastDayOfMonth(year int, month time.Month) time.Time {
	// First day of the next month, minus one day
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}
