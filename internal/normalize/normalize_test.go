package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-job-digest/internal/models"
)

func TestRecord_104Listing(t *testing.T) {
	raw := models.RawJob{
		"jobName":        "產品經理 Product Manager",
		"custName":       "Acme Cloud 股份有限公司",
		"jobAddrNoDesc":  "臺北市信義區",
		"salaryLow":      float64(45000),
		"salaryHigh":     float64(65000),
		"link":           map[string]any{"job": "//www.104.com.tw/job/8abcd?jobsource=2018indexpoc"},
		"description":    "負責 SaaS roadmap",
		"coIndustryDesc": "電腦軟體服務業",
		"remoteWorkType": float64(2),
		"appearDate":     "20260115",
	}

	rec, err := Record(raw, "web104")
	require.NoError(t, err)

	assert.Equal(t, "產品經理 Product Manager", rec.Title)
	assert.Equal(t, "Acme Cloud 股份有限公司", rec.Company)
	assert.Equal(t, "台北市", rec.City)
	assert.Equal(t, models.KnownSalary(65000), rec.Salary)
	assert.Equal(t, []string{"電腦軟體服務業"}, rec.Industry)
	assert.Equal(t, models.RemoteYes, rec.Remote)
	assert.Equal(t, "https://www.104.com.tw/job/8abcd?jobsource=2018indexpoc", rec.URL)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), rec.PostedAt)
	assert.Equal(t, "web104", rec.Source)
}

func TestRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawJob
	}{
		{"missing title", models.RawJob{"url": "https://example.com/jobs/1"}},
		{"blank title", models.RawJob{"title": "   ", "url": "https://example.com/jobs/1"}},
		{"missing url", models.RawJob{"title": "PM"}},
		{"empty link object", models.RawJob{"title": "PM", "link": map[string]any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Record(tt.raw, "file")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord))
		})
	}
}

func TestRecord_TagsAndRemote(t *testing.T) {
	raw := models.RawJob{
		"title":  "Backend Engineer",
		"url":    "https://jobs.example.com/1",
		"tags":   []any{"Go", " go ", "Kubernetes", map[string]any{"desc": "gRPC"}},
		"remote": "yes",
		"salary": "negotiable",
	}
	rec, err := Record(raw, "api")
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Kubernetes", "gRPC"}, rec.Tags)
	assert.Equal(t, models.RemoteYes, rec.Remote)
	assert.False(t, rec.Salary.Known)
	assert.Equal(t, "", rec.City)
}

func TestRemoteOf(t *testing.T) {
	assert.Equal(t, models.RemoteNo, remoteOf(models.RawJob{"remote": false}))
	assert.Equal(t, models.RemoteNo, remoteOf(models.RawJob{"remoteWorkType": float64(0)}))
	assert.Equal(t, models.RemoteYes, remoteOf(models.RawJob{"remote": float64(1)}))
	assert.Equal(t, models.RemoteUnknown, remoteOf(models.RawJob{}))
	assert.Equal(t, models.RemoteUnknown, remoteOf(models.RawJob{"remote": "maybe"}))
}

func TestCity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"台北市", "台北市"},
		{"臺北市大安區", "台北市"},
		{"  Taipei City ", "台北市"},
		{"New Taipei City", "新北市"},
		{"Xinyi Dist., Taipei City", "台北市"},
		{"6001001005", "台北市"},
		{"6001016000", "高雄市"},
		{"6001006001", "新竹縣市"},
		{"新竹縣市", "新竹縣市"},
		{"6009999999", "6009999999"},
		{"Tokyo", "Tokyo"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, City(tt.in))
		})
	}
}

func TestSameCity(t *testing.T) {
	assert.True(t, SameCity("臺中", "Taichung"))
	assert.False(t, SameCity("台中市", "台南市"))
	assert.False(t, SameCity("", ""))

	//combined 104 areas match either part
	assert.True(t, SameCity("6001006001", "新竹市"))
	assert.True(t, SameCity("新竹縣", "6001006001"))
	assert.True(t, SameCity("6001013002", "嘉義"))
	assert.False(t, SameCity("6001006001", "嘉義市"))
	assert.False(t, SameCity("新竹市", "新竹縣"))
}

func TestParsePostedDate(t *testing.T) {
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"20260115", "2026-01-15", "2026/01/15", "15/01/2026", "2026-01-15T00:00:00Z"} {
		assert.Equal(t, want, ParsePostedDate(in), in)
	}
	for _, in := range []string{"", "Recent", "31/02/2026", "2026"} {
		assert.True(t, ParsePostedDate(in).IsZero(), in)
	}
}
