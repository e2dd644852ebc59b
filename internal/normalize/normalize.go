// Package normalize turns raw source listings into models.JobRecord values
// and derives the dedup key for each of them.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go-job-digest/internal/models"
)

// ErrMalformedRecord is returned for listings without a usable title or URL.
var ErrMalformedRecord = errors.New("malformed record")

// Record normalizes one raw listing.
func Record(raw models.RawJob, source string) (models.JobRecord, error) {
	title := cleanText(firstString(raw, "jobName", "title", "name"))
	if title == "" {
		return models.JobRecord{}, fmt.Errorf("%w: missing title", ErrMalformedRecord)
	}
	link := cleanURL(linkField(raw))
	if link == "" {
		return models.JobRecord{}, fmt.Errorf("%w: missing url for %q", ErrMalformedRecord, title)
	}

	return models.JobRecord{
		Title:       title,
		Company:     cleanText(firstString(raw, "custName", "companyName", "company")),
		City:        City(firstString(raw, "jobAddrNoDesc", "city", "location", "jobAddrNo")),
		Salary:      salaryOf(raw),
		Industry:    stringList(raw, "coIndustryDesc", "industry"),
		Tags:        stringList(raw, "tags", "keyword"),
		Remote:      remoteOf(raw),
		Description: strings.TrimSpace(firstString(raw, "description", "jobDescription", "descSnippet")),
		URL:         link,
		PostedAt:    ParsePostedDate(firstString(raw, "appearDate", "postedAt", "date")),
		Source:      source,
		Raw:         raw,
	}, nil
}

func linkField(raw models.RawJob) string {
	for _, k := range []string{"jobUrl", "link", "jobLink", "url"} {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			for _, inner := range []string{"job", "url", "link"} {
				if s := asString(t[inner]); s != "" {
					return s
				}
			}
		default:
			if s := asString(t); s != "" {
				return s
			}
		}
	}
	return ""
}

func cleanURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "//") {
		return "https:" + s
	}
	return s
}

func remoteOf(raw models.RawJob) models.Remote {
	if v, ok := raw["remote"]; ok && v != nil {
		switch t := v.(type) {
		case bool:
			if t {
				return models.RemoteYes
			}
			return models.RemoteNo
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "y", "1", "remote", "遠端", "可遠端":
				return models.RemoteYes
			case "false", "no", "n", "0", "onsite", "on-site":
				return models.RemoteNo
			}
		default:
			if n, ok := asNumber(t); ok {
				if n > 0 {
					return models.RemoteYes
				}
				return models.RemoteNo
			}
		}
	}
	// 104: 0 none, 1 fully remote, 2 partially remote.
	if v, ok := raw["remoteWorkType"]; ok && v != nil {
		if n, ok := asNumber(v); ok {
			if n > 0 {
				return models.RemoteYes
			}
			return models.RemoteNo
		}
	}
	return models.RemoteUnknown
}

func stringList(raw models.RawJob, keys ...string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = cleanText(s)
		if s == "" || seen[strings.ToLower(s)] {
			return
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	for _, k := range keys {
		collectStrings(raw[k], add)
	}
	return out
}

// collectStrings walks the shapes sources use for tag lists: a string, a list
// of strings, a list of {"desc": ...} objects, or a map of such objects.
func collectStrings(v any, add func(string)) {
	switch t := v.(type) {
	case nil:
	case string:
		add(t)
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, item := range t {
			collectStrings(item, add)
		}
	case map[string]any:
		if d, ok := t["desc"]; ok {
			add(asString(d))
			return
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], add)
		}
	}
}

func firstString(raw models.RawJob, keys ...string) string {
	for _, k := range keys {
		if s := asString(raw[k]); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
