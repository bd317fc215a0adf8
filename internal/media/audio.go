package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"reverie/internal/model"
	"reverie/internal/storage"
)

const audioKeyPrefix = "archive/audios/"

// RecordingStore is the metadata-store collaborator for audio artifacts.
type RecordingStore interface {
	InsertAudioRecording(ctx context.Context, rec *model.AudioRecording) error
	DeleteAudioRecording(ctx context.Context, id uuid.UUID) error
}

// AudioService runs the extract-compress-upload-record pipeline and its
// inverse. The pipeline's only durable side effects are the object-store
// upload and the metadata row; everything else is transient local files
// that are removed on every exit path.
type AudioService struct {
	ffmpegPath string
	runner     commandRunner
	storage    storage.ObjectStorage
	recordings RecordingStore
	logger     *slog.Logger
}

func NewAudioService(ffmpegPath string, st storage.ObjectStorage, recordings RecordingStore, logger *slog.Logger) *AudioService {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &AudioService{
		ffmpegPath: ffmpegPath,
		runner:     &execRunner{},
		storage:    st,
		recordings: recordings,
		logger:     logger,
	}
}

// ExtractAndSave spools the video stream to disk, extracts and compresses
// the audio track, uploads the result under a fresh key, and records the
// metadata row. If the metadata write fails the uploaded object is deleted
// before the error propagates.
func (s *AudioService) ExtractAndSave(ctx context.Context, videoStream io.Reader, storyboardID, memberID uuid.UUID, title string, runningTime int) (*model.AudioRecording, error) {
	videoFile, err := spoolToTempFile(videoStream, "audio-source-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("spool video stream: %w", err)
	}
	defer s.removeTemp(videoFile)

	extracted, err := tempPath("extracted-audio-*.wav")
	if err != nil {
		return nil, err
	}
	defer s.removeTemp(extracted)

	if res, err := s.runner.Run(ctx, s.ffmpegPath, buildExtractArgs(videoFile, extracted)...); err != nil {
		return nil, fmt.Errorf("extract audio (exit=%d): %w", res.ExitCode, err)
	}

	compressed, err := tempPath("compressed-audio-*.opus")
	if err != nil {
		return nil, err
	}
	defer s.removeTemp(compressed)

	if res, err := s.runner.Run(ctx, s.ffmpegPath, buildCompressArgs(extracted, compressed)...); err != nil {
		return nil, fmt.Errorf("compress audio (exit=%d): %w", res.ExitCode, err)
	}

	key := audioKeyPrefix + uuid.New().String()
	audioURL, err := s.upload(ctx, compressed, key)
	if err != nil {
		return nil, err
	}
	s.logger.Info("uploaded audio", "key", key, "url", audioURL)

	rec := &model.AudioRecording{
		ID:           uuid.New(),
		StoryboardID: storyboardID,
		MemberID:     memberID,
		Title:        title,
		AudioURL:     audioURL,
		RunningTime:  runningTime,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.recordings.InsertAudioRecording(ctx, rec); err != nil {
		// Metadata write failed: the uploaded object must not be left behind.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to compensate audio upload, manual cleanup may be required",
				"key", key, "error", delErr)
		} else {
			s.logger.Info("compensated audio upload", "key", key)
		}
		return nil, err
	}

	s.logger.Info("saved audio recording", "recording_id", rec.ID)
	return rec, nil
}

// DeleteAudio removes the object-store object and then the metadata row.
// Failures are logged, never returned: it serves both as saga compensation
// and as a standalone maintenance operation, and in either role an error
// must not mask the caller's root cause. A partial failure can orphan an
// artifact; that is accepted and left to manual cleanup.
func (s *AudioService) DeleteAudio(ctx context.Context, recordingID uuid.UUID, audioURL string) {
	key := s.storage.KeyFromURL(audioURL)
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete audio object, manual cleanup may be required",
			"recording_id", recordingID, "key", key, "error", err)
	}

	if err := s.recordings.DeleteAudioRecording(ctx, recordingID); err != nil {
		s.logger.Error("failed to delete audio recording row, manual cleanup may be required",
			"recording_id", recordingID, "error", err)
		return
	}
	s.logger.Info("deleted audio recording", "recording_id", recordingID, "url", audioURL)
}

func (s *AudioService) upload(ctx context.Context, path, key string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open compressed audio: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat compressed audio: %w", err)
	}

	if err := s.storage.Put(ctx, key, f, info.Size(), "audio/ogg; codecs=opus"); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	return s.storage.URL(key), nil
}

func (s *AudioService) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove temp file", "path", path, "error", err)
	}
}

// spoolToTempFile copies a stream to a new temp file and returns its path.
func spoolToTempFile(r io.Reader, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
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

// tempPath reserves a temp file path for an ffmpeg output.
func tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	return name, nil
}

// buildExtractArgs strips the video track and writes a PCM WAV file.
func buildExtractArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		outPath,
	}
}

// buildCompressArgs re-encodes the extracted WAV as opus.
func buildCompressArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-c:a", "libopus",
		"-b:a", "32k",
		outPath,
	}
}

// newAudioServiceForTests constructs a service with an injectable runner.
func newAudioServiceForTests(ffmpegPath string, runner commandRunner, st storage.ObjectStorage, recordings RecordingStore, logger *slog.Logger) *AudioService {
	return &AudioService{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		storage:    st,
		recordings: recordings,
		logger:     logger,
	}
}
