package normalize

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go-job-digest/internal/models"
)

// trackingParams never identify a posting.
var trackingParams = map[string]bool{
	"gclid": true, "fbclid": true, "msclkid": true,
	"mc_cid": true, "mc_eid": true, "mkt_tok": true,
	"trk": true, "trkinfo": true, "refid": true,
	"ref": true, "src": true, "jobsource": true,
}

// pathIDHosts carry the posting id in the path; their query strings are
// search context only.
var pathIDHosts = []string{"104.com.tw"}

// bareHostRe matches URLs written without a scheme, e.g. www.104.com.tw/job/7abc.
var bareHostRe = regexp.MustCompile(`^[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+(:\d+)?([/?#]|$)`)

// Key derives the dedup key of a posting from its URL.
func Key(rawURL string) models.DedupKey {
	return models.DedupKey(CanonicalURL(rawURL))
}

// CanonicalURL folds syntactic URL variants of the same posting together.
func CanonicalURL(raw string) string {
	raw = cleanURL(raw)
	if raw == "" {
		return ""
	}
	if bareHostRe.MatchString(raw) {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}
	u.Host = host

	//keep escapes so /a%2Fb and /a/b stay distinct
	p := strings.TrimRight(u.EscapedPath(), "/")
	if unescaped, err := url.PathUnescape(p); err == nil {
		u.Path, u.RawPath = unescaped, p
	}

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	for _, h := range pathIDHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			q = url.Values{}
		}
	}
	// deterministic query
	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	u.ForceQuery = false
	return u.String()
}
