package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"reverie/internal/metrics"
	"reverie/internal/storage"
)

// JobMarker is the terminal-state surface of the job store.
type JobMarker interface {
	MarkDurationJobCompleted(ctx context.Context, jobID int64) error
	MarkDurationJobFailed(ctx context.Context, jobID int64) error
}

// VideoArchive is the archive collaborator consumed by the handler.
type VideoArchive interface {
	GetVideoStream(ctx context.Context, videoID uuid.UUID) (io.ReadCloser, error)
	UpdateVideoRunningTime(ctx context.Context, videoID uuid.UUID, seconds int) (bool, error)
}

// DurationProber measures a media file's duration in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// DurationExtractor downloads a claimed video, measures its duration, and
// writes it back. Every exit path marks the job terminal: a job left
// processing forever is a bug, not an accepted outcome. Re-running on the
// same video after a stuck-threshold reclaim is safe because the only write
// is an idempotent running_time update.
type DurationExtractor struct {
	marker  JobMarker
	archive VideoArchive
	prober  DurationProber
	logger  *slog.Logger
}

var _ Handler = (*DurationExtractor)(nil)

func NewDurationExtractor(marker JobMarker, archive VideoArchive, prober DurationProber, logger *slog.Logger) *DurationExtractor {
	return &DurationExtractor{marker: marker, archive: archive, prober: prober, logger: logger}
}

func (e *DurationExtractor) Process(ctx context.Context, job *DurationJob) {
	stream, err := e.archive.GetVideoStream(ctx, job.VideoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Error("video object not found", "job_id", job.ID, "video_id", job.VideoID)
		} else {
			e.logger.Error("failed to fetch video stream", "job_id", job.ID, "error", err)
		}
		e.fail(ctx, job)
		return
	}
	defer stream.Close()

	tempFile, err := spoolStream(stream)
	if err != nil {
		e.logger.Error("failed to spool video to disk", "job_id", job.ID, "error", err)
		e.fail(ctx, job)
		return
	}
	defer func() {
		if err := os.Remove(tempFile); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove temp file", "path", tempFile, "error", err)
		}
	}()

	seconds, err := e.prober.Duration(ctx, tempFile)
	if err != nil {
		e.logger.Error("duration probe failed", "job_id", job.ID, "error", err)
		e.fail(ctx, job)
		return
	}
	if seconds <= 0 {
		e.logger.Warn("invalid duration measured", "job_id", job.ID, "seconds", seconds)
		e.fail(ctx, job)
		return
	}

	updated, err := e.archive.UpdateVideoRunningTime(ctx, job.VideoID, int(seconds))
	if err != nil || !updated {
		e.logger.Error("failed to update running time", "job_id", job.ID, "video_id", job.VideoID, "error", err)
		e.fail(ctx, job)
		return
	}

	if err := e.marker.MarkDurationJobCompleted(ctx, job.ID); err != nil {
		e.logger.Error("failed to mark job completed", "job_id", job.ID, "error", err)
		return
	}
	metrics.RecordJobProcessed(string(StatusCompleted))
	e.logger.Info("job completed", "job_id", job.ID, "video_id", job.VideoID, "seconds", int(seconds))
}

func (e *DurationExtractor) fail(ctx context.Context, job *DurationJob) {
	if err := e.marker.MarkDurationJobFailed(ctx, job.ID); err != nil {
		e.logger.Error("failed to mark job failed", "job_id", job.ID, "error", err)
		return
	}
	metrics.RecordJobProcessed(string(StatusFailed))
}

// spoolStream copies the stream into a temp file and returns its path.
func spoolStream(r io.Reader) (string, error) {
	f, err := os.CreateTemp("", "duration-extraction-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
