package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-job-digest/internal/config"
)

func web104Server(t *testing.T, pages map[string][]map[string]any) (*httptest.Server, *sync.Map) {
	t.Helper()
	var seen sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		seen.Store(q.Get("page"), r.Header.Clone())
		assert.Equal(t, "產品經理", q.Get("keyword"))
		assert.Equal(t, "6001001000", q.Get("area"))
		assert.Equal(t, "s", q.Get("mode"))
		assert.Equal(t, "2018indexpoc", q.Get("jobsource"))

		data, ok := pages[q.Get("page")]
		if !ok {
			data = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func job104(id string) map[string]any {
	return map[string]any{
		"jobName":  "產品經理 " + id,
		"custName": "Acme",
		"link":     map[string]any{"job": "//www.104.com.tw/job/" + id},
	}
}

func web104Config(url string, pages int) config.Web104Config {
	cfg := config.Defaults().Web104
	cfg.APIURL = url
	cfg.Pages = pages
	return cfg
}

func TestWeb104_FetchConcatenatesPagesInOrder(t *testing.T) {
	srv, seen := web104Server(t, map[string][]map[string]any{
		"1": {job104("a1"), job104("a2")},
		"2": {job104("b1")},
		"4": {job104("d1")},
	})

	w := NewWeb104(web104Config(srv.URL, 4), srv.Client(), Unlimited(), nil)
	jobs, err := w.Fetch(context.Background())
	require.NoError(t, err)

	//page 3 is empty so page 4 is dropped
	require.Len(t, jobs, 3)
	assert.Equal(t, "產品經理 a1", jobs[0]["jobName"])
	assert.Equal(t, "產品經理 a2", jobs[1]["jobName"])
	assert.Equal(t, "產品經理 b1", jobs[2]["jobName"])

	h, ok := seen.Load("1")
	require.True(t, ok)
	headers := h.(http.Header)
	assert.Equal(t, "Mozilla/5.0", headers.Get("User-Agent"))
	assert.Equal(t, web104Referer, headers.Get("Referer"))
	assert.Equal(t, web104Accept, headers.Get("Accept"))
}

func TestWeb104_PagesDefaultsToOne(t *testing.T) {
	srv, seen := web104Server(t, map[string][]map[string]any{
		"1": {job104("a1")},
		"2": {job104("b1")},
	})

	jobs, err := NewWeb104(web104Config(srv.URL, 0), srv.Client(), Unlimited(), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	_, asked := seen.Load("2")
	assert.False(t, asked)
}

func TestWeb104_HTTPErrorFailsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewWeb104(web104Config(srv.URL, 2), srv.Client(), Unlimited(), nil).Fetch(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestWeb104_NonListDataIsEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"unexpected": true}}`)
	}))
	defer srv.Close()

	jobs, err := NewWeb104(web104Config(srv.URL, 1), srv.Client(), Unlimited(), nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestWeb104PageURL(t *testing.T) {
	u, err := web104PageURL(web104Config("https://www.104.com.tw/jobs/search/api/jobs", 1), 2)
	require.NoError(t, err)
	assert.Contains(t, u, "page=2")
	assert.Contains(t, u, "jobsource=2018indexpoc")
	assert.Contains(t, u, "mode=s")
}
