package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Prober measures the duration of a media file with ffprobe.
type Prober struct {
	ffprobePath string
	runner      commandRunner
}

// NewProber constructs a prober using the configured ffprobe binary, or
// plain "ffprobe" from PATH when empty.
func NewProber(ffprobePath string) *Prober {
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath, runner: &execRunner{}}
}

// Duration returns the container duration in seconds. A zero or negative
// value with nil error means the file carries no usable duration metadata;
// callers treat that as a failed measurement.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	args := buildFFprobeArgs(path)
	res, err := p.runner.Run(ctx, p.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed (exit=%d): %w", res.ExitCode, err)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" || out == "N/A" {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", out, err)
	}
	return seconds, nil
}

// buildFFprobeArgs builds args that print only the format duration.
func buildFFprobeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}
