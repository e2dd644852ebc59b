package models

import (
	"strconv"
	"time"
)

// RawJob is one listing exactly as a source returned it.
type RawJob map[string]any

// DedupKey identifies a real-world posting across runs.
type DedupKey string

// Salary is a comparison value for a posting. Unknown is distinct from zero.
type Salary struct {
	Value int64
	Known bool
}

func KnownSalary(v int64) Salary { return Salary{Value: v, Known: true} }

func UnknownSalary() Salary { return Salary{} }

func (s Salary) String() string {
	if !s.Known {
		return "negotiable"
	}
	return strconv.FormatInt(s.Value, 10)
}

// Remote is a tri-state remote-work flag.
type Remote int

const (
	RemoteUnknown Remote = iota
	RemoteYes
	RemoteNo
)

func (r Remote) String() string {
	switch r {
	case RemoteYes:
		return "yes"
	case RemoteNo:
		return "no"
	default:
		return "unknown"
	}
}

// JobRecord is a normalized listing. Treat it as read-only once built.
type JobRecord struct {
	Title       string
	Company     string
	City        string
	Salary      Salary
	Industry    []string
	Tags        []string
	Remote      Remote
	Description string
	URL         string
	PostedAt    time.Time
	Source      string

	// Raw is kept for traceability only; scoring never reads it.
	Raw RawJob
}

// ScoredJob is a record that passed every hard filter.
type ScoredJob struct {
	Job             JobRecord
	Key             DedupKey
	Score           int
	Reasons         []string
	MatchedKeywords []string
	// Order is the fetch position, used as the ranking tie-breaker.
	Order int
}
