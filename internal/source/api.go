package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go-job-digest/internal/config"
	"go-job-digest/internal/models"
)

// API reads a generic JSON job endpoint, optionally with a bearer token.
type API struct {
	cfg     config.APIConfig
	hc      *http.Client
	limiter *HostLimiter
}

func NewAPI(cfg config.APIConfig, hc *http.Client, limiter *HostLimiter) (*API, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: JOB_API_URL is empty", ErrNotConfigured)
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if cfg.Timeout > 0 {
		c := *hc
		c.Timeout = cfg.TimeoutDuration()
		hc = &c
	}
	return &API{cfg: cfg, hc: hc, limiter: limiter}, nil
}

func (a *API) Name() string { return "api" }

func (a *API) Fetch(ctx context.Context) ([]models.RawJob, error) {
	req := jsonRequest{
		url:     a.cfg.URL,
		headers: map[string]string{"Accept": "application/json"},
	}
	if a.cfg.Token != "" {
		req.headers["Authorization"] = "Bearer " + a.cfg.Token
	}
	if a.cfg.Query != "" {
		req.params = url.Values{"keyword": {a.cfg.Query}}
	}

	v, err := getJSON(ctx, a.hc, a.limiter, req)
	if err != nil {
		return nil, err
	}
	return jobList(v)
}
