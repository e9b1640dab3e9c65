// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrUnknownJob = errors.New("unknown job")

// Job is a unit of scheduled work. The context is cancelled after the
// job timeout or when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new job scheduler. Each run is bounded by timeout.
func NewScheduler(timeout time.Duration, logger *slog.Logger) *Scheduler {
	// Standard 5-field format; a run still in progress skips the next tick.
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    c,
		jobs:    make(map[string]Job),
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob schedules job under name.
func (s *Scheduler) AddJob(spec, name string, job Job) error {
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", spec, name, err)
	}
	s.jobs[name] = job
	return nil
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
}

// Stop gracefully stops all scheduled jobs and waits for running ones,
// including those started with RunNow.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("cron scheduler stopping")
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow manually triggers a job outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(name, job)
	}()
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("starting job", slog.String("job", name))

	if err := job(ctx); err != nil {
		s.logger.Error("job failed",
			slog.String("job", name),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("job completed",
		slog.String("job", name),
		slog.Duration("elapsed", time.Since(start)),
	)
}
