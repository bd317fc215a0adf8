package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reverie/internal/model"
	"reverie/internal/storage"
)

// fakeRunner records every invocation and writes a stub output file so the
// pipeline's upload step has something to read.
type fakeRunner struct {
	failOnCall int // 1-based; 0 means never fail
	calls      [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.failOnCall > 0 && len(r.calls) == r.failOnCall {
		return commandResult{ExitCode: 1, Stderr: "boom"}, errors.New("exit status 1")
	}
	// ffmpeg writes its output file as the last argument.
	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte("fake-audio"), 0o644); err != nil {
		return commandResult{ExitCode: -1}, err
	}
	return commandResult{}, nil
}

type fakeObjectStorage struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) Put(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeObjectStorage) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStorage) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

func (f *fakeObjectStorage) URL(key string) string {
	return "s3://test-bucket/" + key
}

func (f *fakeObjectStorage) KeyFromURL(url string) string {
	return strings.TrimPrefix(url, "s3://test-bucket/")
}

type fakeRecordings struct {
	insertErr  error
	deleteErr  error
	inserted   []*model.AudioRecording
	deletedIDs []uuid.UUID
}

func (f *fakeRecordings) InsertAudioRecording(ctx context.Context, rec *model.AudioRecording) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeRecordings) DeleteAudioRecording(ctx context.Context, id uuid.UUID) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return f.deleteErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractAndSave_HappyPath(t *testing.T) {
	runner := &fakeRunner{}
	st := newFakeObjectStorage()
	recordings := &fakeRecordings{}
	svc := newAudioServiceForTests("ffmpeg", runner, st, recordings, discardLogger())

	rec, err := svc.ExtractAndSave(context.Background(), strings.NewReader("video"), uuid.New(), uuid.New(), "Recap Audio", 120)
	if err != nil {
		t.Fatalf("ExtractAndSave error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected extract + compress runs, got %d", len(runner.calls))
	}
	if !strings.HasPrefix(st.KeyFromURL(rec.AudioURL), "archive/audios/") {
		t.Fatalf("unexpected audio url: %q", rec.AudioURL)
	}
	if len(st.objects) != 1 {
		t.Fatalf("expected one uploaded object, got %d", len(st.objects))
	}
	if len(recordings.inserted) != 1 || recordings.inserted[0].RunningTime != 120 {
		t.Fatalf("unexpected inserted recording: %+v", recordings.inserted)
	}
}

func TestExtractAndSave_CompressFails_NothingUploaded(t *testing.T) {
	runner := &fakeRunner{failOnCall: 2}
	st := newFakeObjectStorage()
	recordings := &fakeRecordings{}
	svc := newAudioServiceForTests("ffmpeg", runner, st, recordings, discardLogger())

	if _, err := svc.ExtractAndSave(context.Background(), strings.NewReader("video"), uuid.New(), uuid.New(), "t", 0); err == nil {
		t.Fatal("expected compress failure to propagate")
	}
	if len(st.objects) != 0 {
		t.Fatalf("expected no uploads, got %d", len(st.objects))
	}
	if len(recordings.inserted) != 0 {
		t.Fatal("expected no metadata rows")
	}
}

func TestExtractAndSave_MetadataFails_UploadCompensated(t *testing.T) {
	runner := &fakeRunner{}
	st := newFakeObjectStorage()
	insertErr := errors.New("constraint violation")
	recordings := &fakeRecordings{insertErr: insertErr}
	svc := newAudioServiceForTests("ffmpeg", runner, st, recordings, discardLogger())

	_, err := svc.ExtractAndSave(context.Background(), strings.NewReader("video"), uuid.New(), uuid.New(), "t", 0)
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected original insert error, got: %v", err)
	}
	if len(st.objects) != 0 {
		t.Fatalf("expected uploaded object removed, still have %d", len(st.objects))
	}
	if len(st.deleted) != 1 {
		t.Fatalf("expected one delete call, got %d", len(st.deleted))
	}
}

func TestExtractAndSave_MetadataAndDeleteFail_OriginalErrorWins(t *testing.T) {
	runner := &fakeRunner{}
	st := newFakeObjectStorage()
	st.deleteErr = errors.New("delete refused")
	insertErr := errors.New("constraint violation")
	recordings := &fakeRecordings{insertErr: insertErr}
	svc := newAudioServiceForTests("ffmpeg", runner, st, recordings, discardLogger())

	_, err := svc.ExtractAndSave(context.Background(), strings.NewReader("video"), uuid.New(), uuid.New(), "t", 0)
	if !errors.Is(err, insertErr) {
		t.Fatalf("compensation failure must not mask the insert error, got: %v", err)
	}
}

func TestDeleteAudio_NeverReturnsErrors(t *testing.T) {
	st := newFakeObjectStorage()
	st.deleteErr = errors.New("bucket unreachable")
	recordings := &fakeRecordings{}
	svc := newAudioServiceForTests("ffmpeg", &fakeRunner{}, st, recordings, discardLogger())

	recordingID := uuid.New()
	// Object delete fails; the row delete must still be attempted.
	svc.DeleteAudio(context.Background(), recordingID, "s3://test-bucket/archive/audios/x")
	if len(recordings.deletedIDs) != 1 || recordings.deletedIDs[0] != recordingID {
		t.Fatalf("expected row delete attempted, got %v", recordings.deletedIDs)
	}
}

func TestDeleteAudio_RemovesObjectAndRow(t *testing.T) {
	st := newFakeObjectStorage()
	st.objects["archive/audios/x"] = []byte("audio")
	recordings := &fakeRecordings{}
	svc := newAudioServiceForTests("ffmpeg", &fakeRunner{}, st, recordings, discardLogger())

	recordingID := uuid.New()
	svc.DeleteAudio(context.Background(), recordingID, "s3://test-bucket/archive/audios/x")
	if len(st.objects) != 0 {
		t.Fatal("expected object removed")
	}
	if len(recordings.deletedIDs) != 1 {
		t.Fatal("expected row removed")
	}
}

func TestBuildExtractArgs(t *testing.T) {
	args := buildExtractArgs("in.mp4", "out.wav")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-vn") || !strings.Contains(joined, "pcm_s16le") {
		t.Fatalf("unexpected extract args: %v", args)
	}
	if args[len(args)-1] != "out.wav" {
		t.Fatalf("output path must be last, got %v", args)
	}
}

func TestBuildCompressArgs(t *testing.T) {
	args := buildCompressArgs("in.wav", "out.opus")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "libopus") || !strings.Contains(joined, "32k") {
		t.Fatalf("unexpected compress args: %v", args)
	}
}
