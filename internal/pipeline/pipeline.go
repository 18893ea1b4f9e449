// Package pipeline runs one ingestion pass end to end:
// aggregate → commit (diff, record, enqueue) → prune → report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/bankradar/internal/aggregator"
	"github.com/amishk599/bankradar/internal/matcher"
	"github.com/amishk599/bankradar/internal/model"
)

// Reporter receives the summary of each completed run.
type Reporter interface {
	Report(ctx context.Context, sum model.RunSummary) error
}

// Config holds run limits.
type Config struct {
	Timeout   time.Duration // whole run, fetch and commit
	Retention time.Duration // first-seen records older than this are pruned
	LeaseTTL  time.Duration // only used with a Locker
}

// Deps are the collaborators of a run. Locker and Reporter are optional.
type Deps struct {
	Aggregator *aggregator.Aggregator
	Ledger     model.Ledger
	Freshness  model.FreshnessStore
	Directory  model.SubscriberDirectory
	Locker     model.Locker
	Reporter   Reporter
}

// Pipeline owns the ingestion pass.
type Pipeline struct {
	deps   Deps
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New creates a pipeline wired with all its dependencies.
func New(deps Deps, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{deps: deps, cfg: cfg, now: time.Now, logger: logger}
}

// ErrTimedOut is returned when the run deadline passes before the commit.
// Nothing is recorded in that case.
var ErrTimedOut = errors.New("run timed out before commit")

// Run executes one pass. Source failures are isolated and reported in the
// summary; the run itself fails only when the lease is held, the deadline
// passes before the commit, or the commit fails.
func (p *Pipeline) Run(ctx context.Context) (model.RunSummary, error) {
	sum := model.RunSummary{RunID: uuid.NewString(), Started: p.now().UTC()}
	logger := p.logger.With("run_id", sum.RunID)

	if p.deps.Locker != nil {
		release, err := p.deps.Locker.Acquire(ctx, p.cfg.LeaseTTL)
		if err != nil {
			return sum, fmt.Errorf("acquiring run lease: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("releasing run lease", "error", err)
			}
		}()
	}

	runCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	results := p.deps.Aggregator.Run(runCtx)
	merged := aggregator.Merge(results)
	sum.Sources = len(results)
	sum.Fetched = len(merged)
	for _, f := range aggregator.Failures(results) {
		sum.Failed = append(sum.Failed, f.Source)
	}

	if err := runCtx.Err(); err != nil {
		sum.TimedOut = true
		sum.Elapsed = time.Since(sum.Started)
		logger.Error("run aborted before commit", "elapsed", sum.Elapsed, "error", err)
		return sum, fmt.Errorf("%w: %w", ErrTimedOut, err)
	}

	subs, err := p.deps.Directory.ListActive(runCtx)
	if err != nil {
		return sum, fmt.Errorf("loading subscribers: %w", err)
	}

	now := p.now().UTC()
	res, err := p.deps.Ledger.Commit(runCtx, merged, now, matcher.Plan(subs))
	if err != nil {
		return sum, fmt.Errorf("committing run: %w", err)
	}
	sum.Fresh = len(res.Fresh)
	sum.Queued = res.Queued

	pruned, err := p.deps.Freshness.Prune(runCtx, now, p.cfg.Retention)
	if err != nil {
		logger.Error("pruning first-seen records", "error", err)
	}
	sum.Pruned = pruned
	sum.Elapsed = time.Since(sum.Started)

	logger.Info("run complete",
		"sources", sum.Sources,
		"failed", len(sum.Failed),
		"fetched", sum.Fetched,
		"new", sum.Fresh,
		"queued", sum.Queued,
		"pruned", sum.Pruned,
		"elapsed", sum.Elapsed.Round(time.Millisecond),
	)
	for _, posting := range res.Fresh {
		logger.Debug("new posting", "source", posting.BankKey, "title", posting.Title, "url", posting.Link)
	}

	if p.deps.Reporter != nil {
		if err := p.deps.Reporter.Report(ctx, sum); err != nil {
			logger.Warn("reporting run summary", "error", err)
		}
	}
	return sum, nil
}

// Backfill fetches every source once and feeds the results to the
// correction path instead of the normal commit.
func (p *Pipeline) Backfill(ctx context.Context, maxAge time.Duration) (model.BackfillStats, error) {
	runCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	results := p.deps.Aggregator.Run(runCtx)
	if err := runCtx.Err(); err != nil {
		return model.BackfillStats{}, fmt.Errorf("%w: %w", ErrTimedOut, err)
	}
	stats, err := p.deps.Freshness.Backfill(runCtx, aggregator.Merge(results), p.now().UTC(), maxAge)
	if err != nil {
		return stats, fmt.Errorf("backfill: %w", err)
	}
	p.logger.Info("backfill complete",
		"seeded", stats.Seeded,
		"corrected", stats.Corrected,
		"skipped_no_date", stats.SkippedNoDate,
		"skipped_too_old", stats.SkippedTooOld,
	)
	return stats, nil
}
