package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
)

// MailFetcher returns the raw RFC 822 bytes of every message received since
// the given time.
type MailFetcher interface {
	FetchSince(ctx context.Context, since time.Time) ([][]byte, error)
}

// IMAP turns 104 job-alert emails into listings.
type IMAP struct {
	cfg     config.IMAPConfig
	fetcher MailFetcher
	log     *zap.Logger
	now     func() time.Time
}

// NewIMAP builds the source. A nil fetcher dials the configured server.
func NewIMAP(cfg config.IMAPConfig, fetcher MailFetcher, log *zap.Logger) (*IMAP, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: IMAP_HOST, IMAP_USER and IMAP_PASSWORD are required", ErrNotConfigured)
	}
	if fetcher == nil {
		fetcher = &imapFetcher{cfg: cfg}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IMAP{cfg: cfg, fetcher: fetcher, log: log, now: time.Now}, nil
}

func (s *IMAP) Name() string { return "imap" }

func (s *IMAP) Fetch(ctx context.Context) ([]models.RawJob, error) {
	since := s.now().AddDate(0, 0, -max(0, s.cfg.SinceDays))
	raws, err := s.fetcher.FetchSince(ctx, since)
	if err != nil {
		return nil, err
	}

	var jobs []models.RawJob
	for i, raw := range raws {
		msg, err := ParseMessage(raw)
		if err != nil {
			s.log.Warn("skipping unreadable message", zap.Int("index", i), zap.Error(err))
			continue
		}
		if !msg.Matches(s.cfg.FromFilter, s.cfg.SubjectFilter) {
			continue
		}
		found := ExtractJobs(msg)
		s.log.Debug("alert parsed", zap.String("subject", msg.Subject), zap.Int("jobs", len(found)))
		jobs = append(jobs, found...)
	}
	s.log.Info("fetched alert listings", zap.Int("messages", len(raws)), zap.Int("jobs", len(jobs)))
	return jobs, nil
}

// imapFetcher talks to a real server over TLS. The mailbox is opened
// read-only and bodies are fetched with BODY.PEEK[] so nothing is marked seen.
type imapFetcher struct {
	cfg config.IMAPConfig
}

func (f *imapFetcher) FetchSince(ctx context.Context, since time.Time) ([][]byte, error) {
	addr := net.JoinHostPort(f.cfg.Host, strconv.Itoa(f.cfg.Port))
	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: f.cfg.Host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", addr, err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Login(f.cfg.User, f.cfg.Password).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(f.cfg.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", f.cfg.Mailbox, err)
	}

	searchData, err := c.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		_ = c.Logout().Wait()
		return nil, nil
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([][]byte, 0, len(uids))
	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch: %w", err)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			out = append(out, append([]byte(nil), b...))
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}

	//logout failures don't invalidate what was already fetched
	_ = c.Logout().Wait()
	return out, nil
}
