// Package pipeline runs one digest: fetch, normalize, filter and score,
// rank, dedup, write artifacts, deliver, and commit the seen keys.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-job-digest/internal/dedup"
	"go-job-digest/internal/filter"
	"go-job-digest/internal/metrics"
	"go-job-digest/internal/models"
	"go-job-digest/internal/normalize"
	"go-job-digest/internal/notify"
	"go-job-digest/internal/output"
	"go-job-digest/internal/rank"
	"go-job-digest/internal/rules"
	"go-job-digest/internal/source"
)

// ErrSinkFailed means a notification or spreadsheet delivery failed. The
// artifacts were written but nothing was committed to the history.
var ErrSinkFailed = errors.New("sink failed")

const dateLayout = "2006-01-02"

// State is where the dedup history ended up.
type State string

const (
	StateCommitted   State = "committed"
	StateUncommitted State = "uncommitted"
)

// Locker guards the history against overlapping runs.
type Locker interface {
	Lock() error
	Unlock() error
}

type ArtifactWriter interface {
	Write(d models.Digest) (output.Paths, error)
}

type SheetAppender interface {
	Name() string
	Append(ctx context.Context, d models.Digest) (int, error)
}

// Runner holds the collaborators of a run. Store and Writer are required;
// the rest are optional.
type Runner struct {
	Store     *dedup.Store
	Locker    Locker
	Writer    ArtifactWriter
	Notifiers []notify.Notifier
	Sheet     SheetAppender
	Metrics   *metrics.Metrics
	PushURL   string
	Log       *zap.Logger
	Now       func() time.Time
}

// Options are the per-run inputs.
type Options struct {
	Rules  rules.Config
	Source source.Source

	// Date names the artifacts; defaults to today.
	Date string

	// IgnoreSeenDedup surfaces jobs even when they were seen before. The
	// history is still appended to, never duplicated.
	IgnoreSeenDedup bool
}

// Result describes a finished run, including one that failed at a sink.
type Result struct {
	RunID       string
	Source      string
	Date        string
	Fetched     int
	Malformed   int
	Rejected    int
	Ranked      int
	AlreadySeen []models.ScoredJob
	Selected    []models.ScoredJob
	Artifacts   output.Paths
	SinkErrors  []error
	Committed   int
	State       State
	Duration    time.Duration
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Run executes the pipeline once. A non-nil Result is returned whenever the
// run got as far as fetching.
func (r *Runner) Run(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.Source == nil {
		return nil, errors.New("run: no source")
	}
	engine, err := filter.NewEngine(opts.Rules)
	if err != nil {
		return nil, err
	}
	cfg := engine.Config()

	start := r.now()
	res = &Result{
		RunID:  uuid.NewString(),
		Source: opts.Source.Name(),
		Date:   opts.Date,
		State:  StateUncommitted,
	}
	if res.Date == "" {
		res.Date = start.Format(dateLayout)
	}
	//the date becomes part of the artifact file names
	if _, err := time.Parse(dateLayout, res.Date); err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", res.Date)
	}
	log := r.logger().With(zap.String("run_id", res.RunID), zap.String("source", res.Source))

	if r.Locker != nil {
		if err := r.Locker.Lock(); err != nil {
			return nil, err
		}
		defer func() {
			if uerr := r.Locker.Unlock(); uerr != nil {
				log.Warn("release seen-key lock", zap.Error(uerr))
			}
		}()
	}
	seen, err := r.Store.Load()
	if err != nil {
		return nil, err
	}

	defer func() {
		res.Duration = r.now().Sub(start)
		r.report(log, res, err == nil)
	}()

	raws, err := opts.Source.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", res.Source, err)
	}
	res.Fetched = len(raws)
	log.Info("fetched jobs", zap.Int("count", res.Fetched))

	scored := make([]models.ScoredJob, 0, len(raws))
	for i, raw := range raws {
		rec, err := normalize.Record(raw, res.Source)
		if err != nil {
			res.Malformed++
			log.Warn("skipping malformed record", zap.Int("index", i), zap.Error(err))
			continue
		}
		v := engine.Evaluate(rec)
		if v.Rejected {
			res.Rejected++
			log.Debug("rejected", zap.String("title", rec.Title), zap.String("reason", v.RejectReason))
			continue
		}
		scored = append(scored, v.ScoredJob(rec, normalize.Key(rec.URL), i))
	}
	ranked := rank.Rank(scored, cfg.MinimumScore)
	res.Ranked = len(ranked)

	against := seen
	if opts.IgnoreSeenDedup {
		against = dedup.NewSeenKeySet()
	}
	fresh, already := r.Store.FilterNew(ranked, against)
	res.AlreadySeen = already
	res.Selected = rank.Truncate(fresh, cfg.TopN)
	log.Info("selected jobs",
		zap.Int("ranked", res.Ranked),
		zap.Int("already_seen", len(already)),
		zap.Int("selected", len(res.Selected)),
	)

	digest := models.Digest{
		Date:            res.Date,
		TotalCandidates: res.Fetched,
		Jobs:            res.Selected,
	}
	res.Artifacts, err = r.Writer.Write(digest)
	if err != nil {
		return res, fmt.Errorf("write artifacts: %w", err)
	}

	res.SinkErrors = r.deliver(ctx, log, digest)
	if len(res.SinkErrors) > 0 {
		log.Warn("skipping commit after sink failures", zap.Int("failures", len(res.SinkErrors)))
		return res, fmt.Errorf("%w: %w", ErrSinkFailed, errors.Join(res.SinkErrors...))
	}

	res.Committed, err = r.Store.Commit(res.Selected, seen)
	if err != nil {
		return res, err
	}
	res.State = StateCommitted
	return res, nil
}

type sink struct {
	name string
	run  func(ctx context.Context) error
}

// deliver runs every sink concurrently and returns their failures in sink
// order. One failing sink does not cancel the others.
func (r *Runner) deliver(ctx context.Context, log *zap.Logger, d models.Digest) []error {
	var sinks []sink
	if len(d.Jobs) > 0 {
		for _, n := range r.Notifiers {
			n := n
			sinks = append(sinks, sink{name: n.Name(), run: func(ctx context.Context) error {
				return n.Notify(ctx, d)
			}})
		}
	} else {
		log.Info("nothing selected, not notifying")
	}
	if r.Sheet != nil {
		sinks = append(sinks, sink{name: r.Sheet.Name(), run: func(ctx context.Context) error {
			_, err := r.Sheet.Append(ctx, d)
			return err
		}})
	}

	var (
		mu   sync.Mutex
		errs = make([]error, len(sinks))
		g    errgroup.Group
	)
	for i, s := range sinks {
		i, s := i, s
		g.Go(func() error {
			err := s.run(ctx)
			if err != nil {
				log.Error("sink failed", zap.String("sink", s.name), zap.Error(err))
				err = fmt.Errorf("%s: %w", s.name, err)
			} else {
				log.Info("sink delivered", zap.String("sink", s.name))
			}
			mu.Lock()
			errs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

// report records run metrics and pushes them when a gateway is set. Push
// failures are logged only.
func (r *Runner) report(log *zap.Logger, res *Result, succeeded bool) {
	log.Info("run finished",
		zap.String("state", string(res.State)),
		zap.Int("committed", res.Committed),
		zap.Duration("duration", res.Duration),
	)
	if r.Metrics == nil {
		return
	}
	r.Metrics.Observe(metrics.RunStats{
		Source:       res.Source,
		Fetched:      res.Fetched,
		Malformed:    res.Malformed,
		Rejected:     res.Rejected,
		Ranked:       res.Ranked,
		AlreadySeen:  len(res.AlreadySeen),
		Selected:     len(res.Selected),
		Committed:    res.Committed,
		SinkFailures: len(res.SinkErrors),
		Duration:     res.Duration,
		Succeeded:    succeeded,
	}, r.now())
	if r.PushURL == "" {
		return
	}
	if err := r.Metrics.Push(r.PushURL); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}
