package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one recurring task.
type Job struct {
	Name       string
	Spec       string // standard 5-field cron spec or @every descriptor
	Run        func(ctx context.Context) error
	RunOnStart bool
}

// Scheduler owns the daemon loop: it fires each job on its cron spec and
// never overlaps two runs of the same job.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler creates a scheduler for jobs.
func NewScheduler(jobs []Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{jobs: jobs, logger: logger}
}

// Run registers every job, runs the RunOnStart ones once immediately, then
// blocks until ctx is cancelled. It returns nil on graceful shutdown after
// in-flight jobs finish.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	for _, j := range s.jobs {
		if _, err := c.AddFunc(j.Spec, func() { s.runJob(ctx, j) }); err != nil {
			return fmt.Errorf("scheduling %s %q: %w", j.Name, j.Spec, err)
		}
	}

	s.logger.Info("starting scheduler", "jobs", len(s.jobs))
	for _, j := range s.jobs {
		if j.RunOnStart {
			s.runJob(ctx, j)
		}
	}

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", j.Name, "elapsed", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("scheduled job finished", "job", j.Name, "elapsed", time.Since(start))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
