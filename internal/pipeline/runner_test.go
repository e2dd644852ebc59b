package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-job-digest/internal/dedup"
	"go-job-digest/internal/metrics"
	"go-job-digest/internal/models"
	"go-job-digest/internal/normalize"
	"go-job-digest/internal/notify"
	"go-job-digest/internal/output"
	"go-job-digest/internal/rules"
)

type fakeSource struct {
	jobs    []models.RawJob
	err     error
	fetched int
}

func (f *fakeSource) Name() string { return "file" }

func (f *fakeSource) Fetch(context.Context) ([]models.RawJob, error) {
	f.fetched++
	return f.jobs, f.err
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	calls []models.Digest
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Notify(_ context.Context, d models.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d)
	return f.err
}

type fakeSheet struct {
	err   error
	calls int
}

func (f *fakeSheet) Name() string { return "sheet" }

func (f *fakeSheet) Append(_ context.Context, d models.Digest) (int, error) {
	f.calls++
	return len(d.Jobs), f.err
}

type fakeLocker struct {
	err      error
	locked   bool
	unlocked bool
}

func (f *fakeLocker) Lock() error {
	f.locked = f.err == nil
	return f.err
}

func (f *fakeLocker) Unlock() error {
	f.unlocked = true
	return nil
}

func job(title, company, url string, salary int) models.RawJob {
	return models.RawJob{
		"jobName":    title,
		"custName":   company,
		"link":       map[string]any{"job": url},
		"salaryHigh": salary,
	}
}

func pmRules() rules.Config {
	cfg := rules.Default()
	cfg.IncludeKeywords = []string{"product manager"}
	cfg.MinimumSalary = 40000
	return cfg
}

type harness struct {
	mem      *dedup.MemoryStore
	notifier *fakeNotifier
	sheet    *fakeSheet
	runner   *Runner
	dir      string
}

func newHarness(t *testing.T, seen ...models.DedupKey) *harness {
	t.Helper()
	h := &harness{
		mem:      dedup.NewMemoryStore(seen...),
		notifier: &fakeNotifier{},
		sheet:    &fakeSheet{},
		dir:      t.TempDir(),
	}
	h.runner = &Runner{
		Store:     dedup.NewStore(h.mem, nil),
		Writer:    output.NewWriter(h.dir, nil),
		Notifiers: []notify.Notifier{h.notifier},
		Sheet:     h.sheet,
		Now:       func() time.Time { return time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC) },
	}
	return h
}

func TestRun_CommitsAfterAllSinksSucceed(t *testing.T) {
	h := newHarness(t)
	src := &fakeSource{jobs: []models.RawJob{
		job("Product Manager", "Acme", "https://www.104.com.tw/job/1", 45000),
		job("Backend Engineer", "Other", "https://www.104.com.tw/job/2", 60000),
	}}

	res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, "2026-01-15", res.Date)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Fetched)
	require.Len(t, res.Selected, 2)
	assert.Equal(t, "Product Manager", res.Selected[0].Job.Title)
	assert.Equal(t, 16, res.Selected[0].Score)
	assert.Equal(t, 2, res.Committed)
	assert.Equal(t, []models.DedupKey{"https://104.com.tw/job/1", "https://104.com.tw/job/2"}, h.mem.Snapshot())

	require.Len(t, h.notifier.calls, 1)
	assert.Equal(t, 2, h.notifier.calls[0].TotalCandidates)
	assert.Equal(t, 1, h.sheet.calls)
	for _, p := range res.Artifacts.All() {
		assert.FileExists(t, p)
	}
}

func TestRun_ExcludedCompanyIsRejected(t *testing.T) {
	h := newHarness(t)
	cfg := pmRules()
	cfg.ExcludeCompanies = []string{"ACME"}
	src := &fakeSource{jobs: []models.RawJob{job("Product Manager", "Acme Cloud", "https://www.104.com.tw/job/1", 45000)}}

	res, err := h.runner.Run(context.Background(), Options{Rules: cfg, Source: src})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)
	assert.Empty(t, res.Selected)
	assert.Empty(t, h.notifier.calls, "empty selection is not pushed")
	assert.Zero(t, h.mem.Writes)
}

func TestRun_SameURLVariantsCollapse(t *testing.T) {
	h := newHarness(t)
	src := &fakeSource{jobs: []models.RawJob{
		job("Product Manager", "First", "https://www.104.com.tw/job/7?jobsource=a", 45000),
		job("Product Manager", "Second", "http://104.com.tw/job/7/?utm_source=b", 45000),
	}}

	res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.NoError(t, err)
	require.Len(t, res.Selected, 1)
	assert.Equal(t, "First", res.Selected[0].Job.Company)
	assert.Len(t, res.AlreadySeen, 1)
	assert.Equal(t, []models.DedupKey{"https://104.com.tw/job/7"}, h.mem.Snapshot())
}

func TestRun_SeenHistory(t *testing.T) {
	url := "https://www.104.com.tw/job/9"
	key := normalize.Key(url)
	src := func() *fakeSource {
		return &fakeSource{jobs: []models.RawJob{job("Product Manager", "Acme", url, 45000)}}
	}

	t.Run("seen jobs are skipped", func(t *testing.T) {
		h := newHarness(t, key)
		res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src()})
		require.NoError(t, err)
		assert.Empty(t, res.Selected)
		assert.Len(t, res.AlreadySeen, 1)
		assert.Zero(t, h.mem.Writes)
	})

	t.Run("ignore history", func(t *testing.T) {
		h := newHarness(t, key)
		res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src(), IgnoreSeenDedup: true})
		require.NoError(t, err)
		require.Len(t, res.Selected, 1)
		assert.Zero(t, res.Committed)
		assert.Equal(t, []models.DedupKey{key}, h.mem.Snapshot(), "history holds the key once")
	})
}

func TestRun_RequiredGroupsNotMet(t *testing.T) {
	h := newHarness(t)
	cfg := rules.Default()
	cfg.RequiredKeywordGroups = [][]string{{"PM", "product manager"}, {"SaaS", "cloud"}}
	cfg.MinRequiredGroupMatches = 2
	src := &fakeSource{jobs: []models.RawJob{job("PM", "Acme", "https://www.104.com.tw/job/3", 45000)}}

	res, err := h.runner.Run(context.Background(), Options{Rules: cfg, Source: src})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected)
	assert.Empty(t, res.Selected)
}

func TestRun_SinkFailureSkipsCommit(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("push rejected")
	src := &fakeSource{jobs: []models.RawJob{job("Product Manager", "Acme", "https://www.104.com.tw/job/1", 45000)}}

	res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSinkFailed))
	assert.Contains(t, err.Error(), "push rejected")

	require.NotNil(t, res)
	assert.Equal(t, StateUncommitted, res.State)
	assert.Len(t, res.SinkErrors, 1)
	assert.Equal(t, 1, h.sheet.calls, "other sinks still run")
	assert.Zero(t, h.mem.Writes)
	assert.FileExists(t, res.Artifacts.JSON)
}

func TestRun_MalformedRecordsAreSkipped(t *testing.T) {
	h := newHarness(t)
	src := &fakeSource{jobs: []models.RawJob{
		{"custName": "no title"},
		{"jobName": "Product Manager"},
		job("Product Manager", "Acme", "https://www.104.com.tw/job/1", 45000),
	}}

	res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Malformed)
	assert.Len(t, res.Selected, 1)
	assert.Equal(t, 2, res.Selected[0].Order)
}

func TestRun_TruncatesAfterDedup(t *testing.T) {
	seenURL := "https://www.104.com.tw/job/1"
	h := newHarness(t, normalize.Key(seenURL))
	cfg := pmRules()
	cfg.TopN = 1
	src := &fakeSource{jobs: []models.RawJob{
		job("Product Manager", "Seen", seenURL, 45000),
		job("Product Manager", "Fresh", "https://www.104.com.tw/job/2", 45000),
	}}

	res, err := h.runner.Run(context.Background(), Options{Rules: cfg, Source: src})
	require.NoError(t, err)
	require.Len(t, res.Selected, 1)
	assert.Equal(t, "Fresh", res.Selected[0].Job.Company)
}

func TestRun_ConfigErrorBeforeFetch(t *testing.T) {
	h := newHarness(t)
	cfg := rules.Default()
	cfg.TopN = 0
	src := &fakeSource{}

	res, err := h.runner.Run(context.Background(), Options{Rules: cfg, Source: src})
	var cerr *rules.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Nil(t, res)
	assert.Zero(t, src.fetched)
}

func TestRun_RejectsBadDate(t *testing.T) {
	for _, date := range []string{"../../etc/x", "2026-13-01", "15-01-2026"} {
		t.Run(date, func(t *testing.T) {
			h := newHarness(t)
			src := &fakeSource{}

			res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src, Date: date})
			assert.ErrorContains(t, err, "invalid date")
			assert.Nil(t, res)
			assert.Zero(t, src.fetched)
			entries, err := os.ReadDir(h.dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestRun_CorruptStoreIsFatal(t *testing.T) {
	h := newHarness(t)
	h.mem.Err = dedup.ErrStoreCorrupt
	src := &fakeSource{}

	_, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	assert.True(t, errors.Is(err, dedup.ErrStoreCorrupt))
	assert.Zero(t, src.fetched)
}

func TestRun_LockHeldElsewhere(t *testing.T) {
	h := newHarness(t)
	h.runner.Locker = &fakeLocker{err: dedup.ErrLocked}

	_, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: &fakeSource{}})
	assert.True(t, errors.Is(err, dedup.ErrLocked))
}

func TestRun_ReleasesLock(t *testing.T) {
	h := newHarness(t)
	lock := &fakeLocker{}
	h.runner.Locker = lock

	_, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: &fakeSource{}})
	require.NoError(t, err)
	assert.True(t, lock.locked)
	assert.True(t, lock.unlocked)
}

func TestRun_FetchErrorCommitsNothing(t *testing.T) {
	h := newHarness(t)
	src := &fakeSource{err: errors.New("403")}

	res, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.Error(t, err)
	assert.Equal(t, StateUncommitted, res.State)
	assert.Zero(t, h.mem.Writes)
	assert.Empty(t, h.notifier.calls)
}

func TestRun_ArtifactFailureAborts(t *testing.T) {
	h := newHarness(t)
	blocker := h.dir + "/file"
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	h.runner.Writer = output.NewWriter(blocker+"/out", nil)
	src := &fakeSource{jobs: []models.RawJob{job("Product Manager", "Acme", "https://www.104.com.tw/job/1", 45000)}}

	_, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.Error(t, err)
	assert.Empty(t, h.notifier.calls)
	assert.Zero(t, h.sheet.calls)
	assert.Zero(t, h.mem.Writes)
}

func TestRun_ObservesMetrics(t *testing.T) {
	h := newHarness(t)
	h.runner.Metrics = metrics.New()
	src := &fakeSource{jobs: []models.RawJob{job("Product Manager", "Acme", "https://www.104.com.tw/job/1", 45000)}}

	_, err := h.runner.Run(context.Background(), Options{Rules: pmRules(), Source: src})
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.runner.Metrics.Jobs.WithLabelValues("file", "committed")))
	assert.Equal(t, float64(h.runner.Now().Unix()), testutil.ToFloat64(h.runner.Metrics.LastSuccess))
}
