package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go-job-digest/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// snippetRunes caps the description of plain-text extracted listings.
const snippetRunes = 300

var plainURLRe = regexp.MustCompile(`https?://[^\s<>"]+`)

// AlertMessage is the decoded part of a job-alert email we care about.
type AlertMessage struct {
	From    string
	Subject string
	Plain   string
	HTML    string
}

// ParseMessage decodes an RFC 822 message: headers (RFC 2047 words included)
// and every inline text/plain and text/html part, converted to UTF-8.
func ParseMessage(raw []byte) (AlertMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return AlertMessage{}, fmt.Errorf("read message: %w", err)
	}

	var msg AlertMessage
	msg.Subject, _ = mr.Header.Subject()
	msg.From = fromText(mr.Header)

	var plain, html []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return msg, fmt.Errorf("read part: %w", err)
		}
		if p == nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct != "text/plain" && ct != "text/html" {
			continue
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			return msg, fmt.Errorf("read %s body: %w", ct, err)
		}
		if ct == "text/html" {
			html = append(html, string(body))
		} else {
			plain = append(plain, string(body))
		}
	}
	msg.Plain = strings.Join(plain, "\n")
	msg.HTML = strings.Join(html, "\n")
	return msg, nil
}

func fromText(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err != nil || len(addrs) == 0 {
		return strings.TrimSpace(h.Get("From"))
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name == "" {
			parts = append(parts, a.Address)
			continue
		}
		//decoded name, not the RFC 2047 form String() would give
		parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Address))
	}
	return strings.Join(parts, ", ")
}

// Matches applies the sender and subject filters, both case-insensitive
// substrings. An empty filter accepts everything.
func (m AlertMessage) Matches(fromFilter, subjectFilter string) bool {
	if fromFilter != "" && !strings.Contains(strings.ToLower(m.From), strings.ToLower(fromFilter)) {
		return false
	}
	if subjectFilter != "" && !strings.Contains(strings.ToLower(m.Subject), strings.ToLower(subjectFilter)) {
		return false
	}
	return true
}

// ExtractJobs pulls 104 posting links out of an alert: anchors from the HTML
// body first, then bare URLs from the plain body. Each URL is kept once.
// Salary and remote are not present in alerts and stay unset.
func ExtractJobs(m AlertMessage) []models.RawJob {
	seen := map[string]bool{}
	var jobs []models.RawJob

	if m.HTML != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.HTML)); err == nil {
			doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				href = strings.TrimSpace(href)
				if !strings.HasPrefix(href, "http") || !isPostingURL(href) || seen[href] {
					return
				}
				seen[href] = true

				title := strings.Join(strings.Fields(a.Text()), " ")
				if title == "" {
					title = m.Subject
				}
				jobs = append(jobs, alertJob(title, href, m.Subject, "imap_html_anchor"))
			})
		}
	}

	for _, u := range plainURLRe.FindAllString(m.Plain, -1) {
		u = strings.Trim(u, ").,")
		if !isPostingURL(u) || seen[u] {
			continue
		}
		seen[u] = true
		jobs = append(jobs, alertJob(m.Subject, u, snippet(m.Plain), "imap_plain_url"))
	}
	return jobs
}

func isPostingURL(u string) bool {
	return strings.Contains(u, "104.com.tw/job")
}

func alertJob(title, link, desc, via string) models.RawJob {
	return models.RawJob{
		"title":       title,
		"company":     "",
		"city":        "",
		"url":         link,
		"description": desc,
		"tags":        []any{},
		"extracted":   via,
	}
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > snippetRunes {
		r = r[:snippetRunes]
	}
	return string(r)
}
