package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	web104Referer = "https://www.104.com.tw/jobs/search/"
	web104Accept  = "application/json, text/plain, */*"

	// pages requested at once; the host limiter still paces them
	web104Parallel = 3
)

// Web104 reads the public 104.com.tw search API page by page.
type Web104 struct {
	cfg     config.Web104Config
	hc      *http.Client
	limiter *HostLimiter
	log     *zap.Logger
}

func NewWeb104(cfg config.Web104Config, hc *http.Client, limiter *HostLimiter, log *zap.Logger) *Web104 {
	if hc == nil {
		hc = &http.Client{}
	}
	if cfg.Timeout > 0 {
		c := *hc
		c.Timeout = cfg.TimeoutDuration()
		hc = &c
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Web104{cfg: cfg, hc: hc, limiter: limiter, log: log}
}

func (w *Web104) Name() string { return "web104" }

// Fetch requests every configured page concurrently and concatenates them in
// page order, stopping at the first empty page.
func (w *Web104) Fetch(ctx context.Context) ([]models.RawJob, error) {
	pages := max(1, w.cfg.Pages)
	results := make([][]models.RawJob, pages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(web104Parallel)
	for i := 0; i < pages; i++ {
		i := i
		page := i + 1
		g.Go(func() error {
			jobs, err := w.fetchPage(gctx, page)
			if err != nil {
				return fmt.Errorf("104 page %d: %w", page, err)
			}
			results[i] = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.RawJob
	for i, jobs := range results {
		if len(jobs) == 0 {
			w.log.Debug("104 page empty, stopping", zap.Int("page", i+1))
			break
		}
		out = append(out, jobs...)
	}
	w.log.Info("fetched 104 listings", zap.Int("pages", pages), zap.Int("jobs", len(out)))
	return out, nil
}

func (w *Web104) fetchPage(ctx context.Context, page int) ([]models.RawJob, error) {
	v, err := getJSON(ctx, w.hc, w.limiter, jsonRequest{
		url:    w.cfg.APIURL,
		params: web104Params(w.cfg, page),
		headers: map[string]string{
			"User-Agent": "Mozilla/5.0",
			"Referer":    web104Referer,
			"Accept":     web104Accept,
		},
	})
	if err != nil {
		return nil, err
	}
	return web104Data(v), nil
}

func web104Params(cfg config.Web104Config, page int) url.Values {
	return url.Values{
		"keyword":   {cfg.Keyword},
		"area":      {cfg.Area},
		"page":      {strconv.Itoa(page)},
		"order":     {cfg.Order},
		"asc":       {cfg.Asc},
		"mode":      {"s"},
		"jobsource": {"2018indexpoc"},
	}
}

// web104PageURL is the full search API URL for one page.
func web104PageURL(cfg config.Web104Config, page int) (string, error) {
	return jsonRequest{url: cfg.APIURL, params: web104Params(cfg, page)}.fullURL()
}

// web104Data pulls the "data" array; anything else counts as an empty page.
func web104Data(v any) []models.RawJob {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := m["data"].([]any)
	if !ok {
		return nil
	}
	return rawJobs(list)
}
