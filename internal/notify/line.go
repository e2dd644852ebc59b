package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"
)

const (
	// LINE rejects longer text messages.
	lineTextLimit   = 4500
	lineTitleRunes  = 40
	lineMaxKeywords = 8

	minLINETokenLen  = 80
	minLINEUserIDLen = 20
)

// LINE pushes a condensed text digest through the Messaging API.
type LINE struct {
	cfg config.LINEConfig
	hc  *http.Client
}

func NewLINE(cfg config.LINEConfig, hc *http.Client) *LINE {
	if hc == nil {
		hc = &http.Client{}
	}
	if cfg.Timeout > 0 {
		c := *hc
		c.Timeout = cfg.TimeoutDuration()
		hc = &c
	}
	return &LINE{cfg: cfg, hc: hc}
}

func (l *LINE) Name() string { return "line" }

// Validate catches the common misconfigurations before any request is made:
// a login-channel token instead of a Messaging API one, or a display name
// instead of a user id.
func (l *LINE) Validate() error {
	if len(l.cfg.ChannelAccessToken) < minLINETokenLen {
		return fmt.Errorf("%w: LINE token length looks wrong, use a Messaging API channel access token", ErrInvalidCredentials)
	}
	if !strings.HasPrefix(l.cfg.ToUserID, "U") || len(l.cfg.ToUserID) < minLINEUserIDLen {
		return fmt.Errorf("%w: LINE_TO_USER_ID should start with U", ErrInvalidCredentials)
	}
	return nil
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (l *LINE) Notify(ctx context.Context, d models.Digest) error {
	if err := l.Validate(); err != nil {
		return err
	}

	//probe the token first for a clearer error than a failed push
	status, err := l.do(ctx, http.MethodGet, l.cfg.InfoEndpoint, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: LINE token check returned status %d", ErrInvalidCredentials, status)
	}

	body, err := json.Marshal(linePush{
		To:       l.cfg.ToUserID,
		Messages: []lineMessage{{Type: "text", Text: LINEText(d)}},
	})
	if err != nil {
		return fmt.Errorf("encode LINE push: %w", err)
	}
	status, err = l.do(ctx, http.MethodPost, l.cfg.PushEndpoint, body)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("%w: LINE push returned status %d", ErrDeliveryFailed, status)
	}
	return nil
}

func (l *LINE) do(ctx context.Context, method, url string, body []byte) (int, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return 0, fmt.Errorf("build LINE request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.cfg.ChannelAccessToken)
	req.Header.Set("Content-Type", "application/json")

	res, err := l.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %v", ErrDeliveryFailed, method, url, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	return res.StatusCode, nil
}

// LINEText is the condensed digest, capped at the LINE text limit.
func LINEText(d models.Digest) string {
	lines := []string{fmt.Sprintf("104 每日職缺 (%s)", d.Date)}
	if len(d.Jobs) == 0 {
		lines = append(lines, "今天沒有符合條件的職缺。")
		return strings.Join(lines, "\n")
	}
	for i, j := range d.Jobs {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, truncateRunes(j.Job.Title, lineTitleRunes)))
		company := j.Job.Company
		if company == "" {
			company = "未提供"
		}
		lines = append(lines, "   公司: "+company)
		lines = append(lines, "   薪資: "+j.Job.Salary.Label())
		if kws := j.MatchedKeywords; len(kws) > 0 {
			lines = append(lines, "   關鍵字: "+strings.Join(kws[:min(len(kws), lineMaxKeywords)], ", "))
		}
		lines = append(lines, fmt.Sprintf("   分數: %d", j.Score))
		if j.Job.URL != "" {
			lines = append(lines, "   "+j.Job.URL)
		}
	}
	return truncateRunes(strings.Join(lines, "\n"), lineTextLimit)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
