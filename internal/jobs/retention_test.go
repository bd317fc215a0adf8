package jobs

import (
	"context"
	"testing"
	"time"

	"reverie/internal/config"
)

type fakeExpirer struct {
	calls []Status
}

func (f *fakeExpirer) DeleteExpiredDurationJobs(ctx context.Context, status Status, cutoff time.Time) (int64, error) {
	f.calls = append(f.calls, status)
	return 2, nil
}

func TestRetention_Disabled(t *testing.T) {
	expirer := &fakeExpirer{}
	r := NewRetention(config.RetentionConfig{Enabled: false}, expirer, discardLogger())

	r.MaybeCleanup(context.Background())
	if len(expirer.calls) != 0 {
		t.Fatalf("disabled retention must not run, got %v", expirer.calls)
	}
}

func TestRetention_RunsBothTerminalStatuses(t *testing.T) {
	expirer := &fakeExpirer{}
	cfg := config.RetentionConfig{
		Enabled: true,
		Jobs:    config.JobTTLConfig{CompletedDays: 7, FailedDays: 30},
	}
	r := NewRetention(cfg, expirer, discardLogger())

	r.MaybeCleanup(context.Background())
	if len(expirer.calls) != 2 || expirer.calls[0] != StatusCompleted || expirer.calls[1] != StatusFailed {
		t.Fatalf("unexpected cleanup calls: %v", expirer.calls)
	}
}

func TestRetention_RespectsInterval(t *testing.T) {
	expirer := &fakeExpirer{}
	cfg := config.RetentionConfig{
		Enabled:                true,
		CleanupIntervalMinutes: 60,
		Jobs:                   config.JobTTLConfig{CompletedDays: 7},
	}
	r := NewRetention(cfg, expirer, discardLogger())

	r.MaybeCleanup(context.Background())
	r.MaybeCleanup(context.Background())
	if len(expirer.calls) != 1 {
		t.Fatalf("second cleanup within interval must be skipped, got %d calls", len(expirer.calls))
	}
}

func TestRetention_SkipsZeroTTL(t *testing.T) {
	expirer := &fakeExpirer{}
	cfg := config.RetentionConfig{
		Enabled: true,
		Jobs:    config.JobTTLConfig{CompletedDays: 7, FailedDays: 0},
	}
	r := NewRetention(cfg, expirer, discardLogger())

	r.MaybeCleanup(context.Background())
	if len(expirer.calls) != 1 || expirer.calls[0] != StatusCompleted {
		t.Fatalf("zero TTL must be skipped, got %v", expirer.calls)
	}
}
