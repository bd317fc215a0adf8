package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reverie/internal/config"
)

// Queue is the claim surface of the job store.
type Queue interface {
	ClaimNextDurationJob(ctx context.Context, stuckThreshold time.Duration) (*DurationJob, error)
}

// Handler executes one claimed job. Implementations must leave the job in a
// terminal state on every exit path; the pool never marks jobs itself.
type Handler interface {
	Process(ctx context.Context, job *DurationJob)
}

// Pool runs a fixed set of workers, each with an independent claim loop.
// Workers share only the job store; shutdown is cooperative and observed
// between iterations, never mid-handler.
type Pool struct {
	queue   Queue
	handler Handler
	logger  *slog.Logger

	threads        int
	pollInterval   time.Duration
	stuckThreshold time.Duration
	shutdownGrace  time.Duration

	retention *Retention

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool constructs a worker pool from config, applying defaults for
// missing values.
func NewPool(cfg config.WorkerConfig, queue Queue, handler Handler, logger *slog.Logger) *Pool {
	threads := cfg.Threads
	if threads <= 0 {
		threads = 2
	}
	pollInterval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	stuckThreshold := time.Duration(cfg.StuckThresholdMinutes) * time.Minute
	if stuckThreshold <= 0 {
		stuckThreshold = 10 * time.Minute
	}
	shutdownGrace := time.Duration(cfg.ShutdownGraceSeconds) * time.Second
	if shutdownGrace <= 0 {
		shutdownGrace = 60 * time.Second
	}

	return &Pool{
		queue:          queue,
		handler:        handler,
		logger:         logger,
		threads:        threads,
		pollInterval:   pollInterval,
		stuckThreshold: stuckThreshold,
		shutdownGrace:  shutdownGrace,
	}
}

// WithRetention enables periodic TTL cleanup of terminal job rows, run from
// worker 0 between polls.
func (p *Pool) WithRetention(r *Retention) *Pool {
	p.retention = r
	return p
}

// Start launches the worker goroutines. They stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.logger.Info("starting duration extraction workers",
		"threads", p.threads,
		"poll_interval", p.pollInterval,
		"stuck_threshold", p.stuckThreshold)

	for i := 0; i < p.threads; i++ {
		workerID := i
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.workerLoop(ctx, workerID)
		}()
	}
}

// Stop cancels the workers and waits for in-flight jobs up to the shutdown
// grace period. Work abandoned past the grace period is reclaimed later via
// the stuck threshold.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-time.After(p.shutdownGrace):
		p.logger.Warn("worker pool did not drain in time, abandoning in-flight jobs",
			"grace", p.shutdownGrace)
	}
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	p.logger.Info("worker started", "worker", workerID)

	emptyPolls := 0
	for {
		if ctx.Err() != nil {
			p.logger.Info("worker stopped", "worker", workerID)
			return
		}

		if p.retention != nil && workerID == 0 {
			p.retention.MaybeCleanup(ctx)
		}

		job, err := p.queue.ClaimNextDurationJob(ctx, p.stuckThreshold)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("worker stopped", "worker", workerID)
				return
			}
			p.logger.Error("claim failed", "worker", workerID, "error", err)
			p.sleep(ctx)
			continue
		}

		if job == nil {
			emptyPolls++
			// One line a minute at the default 3s interval.
			if emptyPolls%20 == 0 {
				p.logger.Debug("no jobs available", "worker", workerID, "empty_polls", emptyPolls)
			}
			p.sleep(ctx)
			continue
		}

		if emptyPolls > 0 {
			p.logger.Debug("found job after empty polls", "worker", workerID, "empty_polls", emptyPolls)
			emptyPolls = 0
		}

		p.logger.Info("claimed job", "worker", workerID, "job_id", job.ID, "video_id", job.VideoID)

		// The handler runs on a context detached from the stop signal:
		// shutdown is observed between iterations, never mid-job. A handler
		// interrupted mid-flight would leave the job processing (or race it
		// into failed) instead of letting it finish and mark terminal.
		start := time.Now()
		p.handler.Process(context.WithoutCancel(ctx), job)
		p.logger.Info("finished job", "worker", workerID, "job_id", job.ID,
			"elapsed_ms", time.Since(start).Milliseconds())
	}
}

// sleep waits one poll interval or until shutdown, whichever comes first.
func (p *Pool) sleep(ctx context.Context) {
	t := time.NewTimer(p.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
