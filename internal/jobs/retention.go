package jobs

import (
	"context"
	"log/slog"
	"time"

	"reverie/internal/config"
	"reverie/internal/metrics"
)

// JobExpirer deletes terminal job rows older than a cutoff.
type JobExpirer interface {
	DeleteExpiredDurationJobs(ctx context.Context, status Status, cutoff time.Time) (int64, error)
}

// Retention deletes old terminal job rows so that the jobs table does not
// grow without bound. Failed jobs default to a longer TTL than completed
// ones since they are resolved manually.
type Retention struct {
	cfg     config.RetentionConfig
	expirer JobExpirer
	logger  *slog.Logger

	interval    time.Duration
	lastCleanup time.Time
}

func NewRetention(cfg config.RetentionConfig, expirer JobExpirer, logger *slog.Logger) *Retention {
	interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	return &Retention{cfg: cfg, expirer: expirer, logger: logger, interval: interval}
}

// MaybeCleanup runs TTL cleanup when the interval has elapsed since the
// last run. It is called from a single worker's poll loop, so no locking is
// needed.
func (r *Retention) MaybeCleanup(ctx context.Context) {
	if !r.cfg.Enabled {
		return
	}
	now := time.Now().UTC()
	if !r.lastCleanup.IsZero() && now.Sub(r.lastCleanup) < r.interval {
		return
	}
	r.lastCleanup = now

	apply := func(status Status, days int) {
		if days <= 0 {
			return
		}
		cutoff := now.AddDate(0, 0, -days)
		n, err := r.expirer.DeleteExpiredDurationJobs(ctx, status, cutoff)
		if err != nil {
			r.logger.Error("retention cleanup failed", "status", status, "error", err)
			return
		}
		if n > 0 {
			metrics.RecordRetentionJobs(string(status), n)
			r.logger.Info("retention cleanup", "status", status, "deleted", n)
		}
	}

	apply(StatusCompleted, r.cfg.Jobs.CompletedDays)
	apply(StatusFailed, r.cfg.Jobs.FailedDays)
}
