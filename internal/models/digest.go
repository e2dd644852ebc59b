package models

// UsageNotice is printed on every artifact.
const UsageNotice = "僅供個人求職整理，不對外提供 API 或下載。"

// SearchPage is the public listing page credited as the source.
const SearchPage = "https://www.104.com.tw/jobs/search/"

// Digest is one run's selection as handed to every sink.
type Digest struct {
	// Date is the run date, YYYY-MM-DD.
	Date            string
	TotalCandidates int
	Jobs            []ScoredJob
}

// Label renders a salary for people: the amount, or 面議 when unknown.
func (s Salary) Label() string {
	if !s.Known {
		return "面議"
	}
	return s.String()
}
