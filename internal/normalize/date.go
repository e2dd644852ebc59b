package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	compactDateRegex = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	isoDateRegex     = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	dmyDateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})`)
)

// ParsePostedDate reads the posting dates the supported sources emit.
// Anything else yields the zero time.
func ParsePostedDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	//104: "20260115"
	if m := compactDateRegex.FindStringSubmatch(s); m != nil {
		return dateOf(m[1], m[2], m[3])
	}

	//full RFC3339 timestamps keep their time of day
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}

	//"2026-01-15", "2026/01/15", "2026-01-15T..."
	if m := isoDateRegex.FindStringSubmatch(s); m != nil {
		return dateOf(m[1], m[2], m[3])
	}

	//assume dd/mm/yyyy
	if m := dmyDateRegex.FindStringSubmatch(s); m != nil {
		return dateOf(m[3], m[2], m[1])
	}
	return time.Time{}
}

func dateOf(y, m, d string) time.Time {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; treat that as unparseable
	if t.Day() != day {
		return time.Time{}
	}
	return t
}
