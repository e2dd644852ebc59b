package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	now := time.Unix(1_768_000_000, 0)
	m.Observe(RunStats{Source: "web104", Fetched: 40, Selected: 5, Committed: 5, Duration: 3 * time.Second, Succeeded: true}, now)

	assert.Equal(t, float64(40), testutil.ToFloat64(m.Jobs.WithLabelValues("web104", "fetched")))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.Jobs.WithLabelValues("web104", "selected")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DurationSeconds))
	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestObserve_FailedRunKeepsLastSuccess(t *testing.T) {
	m := New()
	m.Observe(RunStats{Source: "file", SinkFailures: 1}, time.Unix(100, 0))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.LastSuccess))
	assert.Equal(t, float64(100), testutil.ToFloat64(m.LastRun))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SinkFailures))
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.Observe(RunStats{Source: "web104", Fetched: 1}, time.Now())
	require.NoError(t, m.Push(srv.URL))
	assert.True(t, strings.HasPrefix(path, "/metrics/job/"+JobName), path)
	assert.NotEmpty(t, body)
}

func TestPush_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, New().Push(srv.URL))
}
