package media

import (
	"context"
	"errors"
	"testing"
)

type stubRunner struct {
	stdout string
	err    error
}

func (r *stubRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if r.err != nil {
		return commandResult{ExitCode: 1}, r.err
	}
	return commandResult{Stdout: r.stdout}, nil
}

func TestProber_Duration(t *testing.T) {
	p := &Prober{ffprobePath: "ffprobe", runner: &stubRunner{stdout: "123.456\n"}}
	seconds, err := p.Duration(context.Background(), "video.mp4")
	if err != nil {
		t.Fatalf("Duration error: %v", err)
	}
	if seconds != 123.456 {
		t.Fatalf("expected 123.456, got %v", seconds)
	}
}

func TestProber_Duration_NoMetadata(t *testing.T) {
	for _, out := range []string{"", "N/A\n"} {
		p := &Prober{ffprobePath: "ffprobe", runner: &stubRunner{stdout: out}}
		seconds, err := p.Duration(context.Background(), "video.mp4")
		if err != nil {
			t.Fatalf("output %q: unexpected error: %v", out, err)
		}
		if seconds != 0 {
			t.Fatalf("output %q: expected 0, got %v", out, seconds)
		}
	}
}

func TestProber_Duration_CommandFails(t *testing.T) {
	p := &Prober{ffprobePath: "ffprobe", runner: &stubRunner{err: errors.New("exit status 1")}}
	if _, err := p.Duration(context.Background(), "video.mp4"); err == nil {
		t.Fatal("expected error from failed ffprobe")
	}
}

func TestProber_Duration_Garbage(t *testing.T) {
	p := &Prober{ffprobePath: "ffprobe", runner: &stubRunner{stdout: "not-a-number"}}
	if _, err := p.Duration(context.Background(), "video.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestBuildFFprobeArgs(t *testing.T) {
	args := buildFFprobeArgs("video.mp4")
	if args[len(args)-1] != "video.mp4" {
		t.Fatalf("input path must be last, got %v", args)
	}
}
