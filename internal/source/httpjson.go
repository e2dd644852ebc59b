package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go-job-digest/internal/models"
)

// StatusError is a non-2xx reply from a JSON endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

type jsonRequest struct {
	url     string
	params  url.Values
	headers map[string]string
}

func (r jsonRequest) fullURL() (string, error) {
	u, err := url.Parse(r.url)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", r.url, err)
	}
	if len(r.params) > 0 {
		q := u.Query()
		for k, vs := range r.params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// getJSON waits on the host limiter, issues the GET and decodes the body with
// json.Number preserved.
func getJSON(ctx context.Context, hc *http.Client, limiter *HostLimiter, r jsonRequest) (any, error) {
	target, err := r.fullURL()
	if err != nil {
		return nil, err
	}
	if limiter != nil {
		if err := limiter.WaitURL(ctx, target); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", r.url, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.url, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{URL: r.url, StatusCode: res.StatusCode}
	}
	return decodeJSON(body)
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return v, nil
}

// jobList finds the listing array in the shapes job APIs commonly return:
// {"jobs": [...]}, {"data": [...]}, {"data": {"list": [...]}} or a bare array.
func jobList(v any) ([]models.RawJob, error) {
	switch t := v.(type) {
	case []any:
		return rawJobs(t), nil
	case map[string]any:
		if list, ok := t["jobs"].([]any); ok {
			return rawJobs(list), nil
		}
		switch data := t["data"].(type) {
		case []any:
			return rawJobs(data), nil
		case map[string]any:
			if list, ok := data["list"].([]any); ok {
				return rawJobs(list), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no job list found", ErrBadPayload)
}

// rawJobs keeps object entries and drops anything else.
func rawJobs(list []any) []models.RawJob {
	out := make([]models.RawJob, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, models.RawJob(m))
		}
	}
	return out
}
