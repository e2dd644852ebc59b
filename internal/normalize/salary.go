package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"go-job-digest/internal/models"
)

// 104 encodes "and above" as salaryHigh=9999999.
const openEndedSalary = 9999999

var (
	salaryNumberRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(萬|万|千|k)?`)
	negotiableHint = []string{"面議", "negotiable", "unspecified", "not specified", "tbd", "依公司規定"}
)

// salaryOf prefers explicit min/max fields and falls back to salary text.
// A stated range compares by its maximum.
func salaryOf(raw models.RawJob) models.Salary {
	low, _ := asNumber(raw["salaryLow"])
	if low == 0 {
		low, _ = asNumber(raw["salaryMin"])
	}
	high, _ := asNumber(raw["salaryHigh"])
	if high == 0 {
		high, _ = asNumber(raw["salaryMax"])
	}
	if high > 0 && high < openEndedSalary {
		return models.KnownSalary(int64(high))
	}
	if low > 0 && low < openEndedSalary {
		return models.KnownSalary(int64(low))
	}
	return ParseSalary(firstString(raw, "salary", "monthlySalary", "salaryDesc"))
}

// ParseSalary reads a single amount or a range and returns the maximum stated
// amount. Negotiable wording, zero and unparseable text yield an unknown salary.
func ParseSalary(text string) models.Salary {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return models.UnknownSalary()
	}
	for _, hint := range negotiableHint {
		if strings.Contains(t, hint) {
			return models.UnknownSalary()
		}
	}
	t = strings.ReplaceAll(t, ",", "")

	matches := salaryNumberRe.FindAllStringSubmatch(t, -1)
	if len(matches) == 0 {
		return models.UnknownSalary()
	}

	// "4~6萬": a unit on the last amount applies to the bare ones before it.
	trailingUnit := matches[len(matches)-1][2]

	var best float64
	for _, m := range matches {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		unit := m[2]
		if unit == "" {
			unit = trailingUnit
		}
		n *= unitMultiplier(unit)
		if n >= openEndedSalary {
			continue
		}
		if n > best {
			best = n
		}
	}
	if best <= 0 {
		return models.UnknownSalary()
	}
	return models.KnownSalary(int64(best))
}

func unitMultiplier(unit string) float64 {
	switch unit {
	case "萬", "万":
		return 10000
	case "千", "k":
		return 1000
	default:
		return 1
	}
}
