package recap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reverie/internal/model"
)

type fakeReservations struct {
	createErr error
	linkErr   error
	saveErr   error

	created     []uuid.UUID
	linked      map[uuid.UUID]uuid.UUID
	deleted     []uuid.UUID
	savedTo     []uuid.UUID
	result      *model.RecapResult
	audio       *model.AudioRecording
	nextID      uuid.UUID
	deleteCalls int
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{linked: make(map[uuid.UUID]uuid.UUID), nextID: uuid.New()}
}

func (f *fakeReservations) CreateRecapReservation(ctx context.Context, memberID, videoID uuid.UUID, scheduledAt time.Time) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.created = append(f.created, f.nextID)
	return f.nextID, nil
}

func (f *fakeReservations) LinkAudioRecording(ctx context.Context, reservationID, recordingID uuid.UUID) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.linked[reservationID] = recordingID
	return nil
}

func (f *fakeReservations) DeleteRecapReservation(ctx context.Context, reservationID uuid.UUID) error {
	f.deleteCalls++
	f.deleted = append(f.deleted, reservationID)
	return nil
}

func (f *fakeReservations) SaveRecapResult(ctx context.Context, reservationID uuid.UUID, summaries []model.AnswerSummary) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	f.savedTo = append(f.savedTo, reservationID)
	return uuid.New(), nil
}

func (f *fakeReservations) GetRecapResult(ctx context.Context, reservationID uuid.UUID) (*model.RecapResult, error) {
	return f.result, nil
}

func (f *fakeReservations) GetRecapAudio(ctx context.Context, reservationID uuid.UUID) (*model.AudioRecording, error) {
	return f.audio, nil
}

type fakeArchive struct {
	video     *model.Video
	videoErr  error
	streamErr error
}

func (f *fakeArchive) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	return f.video, f.videoErr
}

func (f *fakeArchive) GetVideoStream(ctx context.Context, videoID uuid.UUID) (io.ReadCloser, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return io.NopCloser(strings.NewReader("video-bytes")), nil
}

type fakeAudio struct {
	extractErr   error
	recording    *model.AudioRecording
	deleteCalls  int
	deletedIDs   []uuid.UUID
	extractCalls int
}

func (f *fakeAudio) ExtractAndSave(ctx context.Context, videoStream io.Reader, storyboardID, memberID uuid.UUID, title string, runningTime int) (*model.AudioRecording, error) {
	f.extractCalls++
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.recording, nil
}

func (f *fakeAudio) DeleteAudio(ctx context.Context, recordingID uuid.UUID, audioURL string) {
	f.deleteCalls++
	f.deletedIDs = append(f.deletedIDs, recordingID)
}

type fakeStoryboards struct {
	storyboard *model.Storyboard
	scenes     []model.Scene
	err        error
}

func (f *fakeStoryboards) GetStoryboard(ctx context.Context, id uuid.UUID) (*model.Storyboard, error) {
	return f.storyboard, f.err
}

func (f *fakeStoryboards) ListScenes(ctx context.Context, storyboardID uuid.UUID) ([]model.Scene, error) {
	return f.scenes, f.err
}

type fakeNotifier struct {
	resp  *Response
	err   error
	calls int
	last  *Request
}

func (f *fakeNotifier) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVideo() *model.Video {
	return &model.Video{
		ID:           uuid.New(),
		StoryboardID: uuid.New(),
		MemberID:     uuid.New(),
		Title:        "Interview",
		Status:       model.VideoStatusUploaded,
		RunningTime:  120,
	}
}

func testRecording() *model.AudioRecording {
	return &model.AudioRecording{ID: uuid.New(), AudioURL: "s3://bucket/archive/audios/x"}
}

func TestReserve_HappyPath(t *testing.T) {
	reservations := newFakeReservations()
	video := testVideo()
	audio := &fakeAudio{recording: testRecording()}
	notifier := &fakeNotifier{resp: &Response{RecapContent: []model.AnswerSummary{
		{SceneID: uuid.New(), Question: "Q1", AnswerSummary: "A1"},
	}}}

	o := NewOrchestrator(
		reservations,
		&fakeArchive{video: video},
		audio,
		&fakeStoryboards{storyboard: &model.Storyboard{ID: video.StoryboardID, Title: "Life"}},
		notifier,
		testLogger(),
	)

	res, err := o.Reserve(context.Background(), video.MemberID, video.ID, time.Now())
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if res.ID != reservations.nextID {
		t.Fatalf("expected reservation id %v, got %v", reservations.nextID, res.ID)
	}
	if got := reservations.linked[res.ID]; got != audio.recording.ID {
		t.Fatalf("expected linked recording %v, got %v", audio.recording.ID, got)
	}
	if reservations.deleteCalls != 0 {
		t.Fatalf("expected no compensation, got %d deletes", reservations.deleteCalls)
	}
	if audio.deleteCalls != 0 {
		t.Fatalf("expected no audio compensation, got %d", audio.deleteCalls)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected exactly one notify call, got %d", notifier.calls)
	}
	if len(reservations.savedTo) != 1 || reservations.savedTo[0] != res.ID {
		t.Fatalf("expected recap result saved for %v, got %v", res.ID, reservations.savedTo)
	}
}

func TestReserve_VideoMissing_DeletesReservation(t *testing.T) {
	reservations := newFakeReservations()
	audio := &fakeAudio{recording: testRecording()}
	notifier := &fakeNotifier{}

	o := NewOrchestrator(reservations, &fakeArchive{video: nil}, audio, &fakeStoryboards{}, notifier, testLogger())

	_, err := o.Reserve(context.Background(), uuid.New(), uuid.New(), time.Now())
	if err == nil {
		t.Fatal("expected error for missing video")
	}
	if reservations.deleteCalls != 1 {
		t.Fatalf("expected reservation compensated once, got %d", reservations.deleteCalls)
	}
	if audio.extractCalls != 0 {
		t.Fatal("extract should not run when the video is missing")
	}
	if notifier.calls != 0 {
		t.Fatal("notify should not run on saga failure")
	}
}

func TestReserve_ExtractFails_OnlyReservationCompensated(t *testing.T) {
	reservations := newFakeReservations()
	video := testVideo()
	audio := &fakeAudio{extractErr: errors.New("ffmpeg exploded")}

	o := NewOrchestrator(reservations, &fakeArchive{video: video}, audio, &fakeStoryboards{}, &fakeNotifier{}, testLogger())

	_, err := o.Reserve(context.Background(), video.MemberID, video.ID, time.Now())
	if err == nil {
		t.Fatal("expected extract error to propagate")
	}
	if !strings.Contains(err.Error(), "ffmpeg exploded") {
		t.Fatalf("expected original error preserved, got: %v", err)
	}
	if reservations.deleteCalls != 1 {
		t.Fatalf("expected reservation deleted once, got %d", reservations.deleteCalls)
	}
	// Extract never produced a recording, so there is nothing to undo there.
	if audio.deleteCalls != 0 {
		t.Fatalf("expected no audio compensation, got %d", audio.deleteCalls)
	}
}

func TestReserve_LinkFails_UnwindsInReverseOrder(t *testing.T) {
	reservations := newFakeReservations()
	reservations.linkErr = errors.New("link failed")
	video := testVideo()
	recording := testRecording()
	audio := &fakeAudio{recording: recording}
	notifier := &fakeNotifier{}

	o := NewOrchestrator(reservations, &fakeArchive{video: video}, audio, &fakeStoryboards{}, notifier, testLogger())

	_, err := o.Reserve(context.Background(), video.MemberID, video.ID, time.Now())
	if err == nil {
		t.Fatal("expected link error to propagate")
	}
	if !strings.Contains(err.Error(), "link failed") {
		t.Fatalf("expected original error preserved, got: %v", err)
	}
	if audio.deleteCalls != 1 || audio.deletedIDs[0] != recording.ID {
		t.Fatalf("expected audio %v compensated, got calls=%d ids=%v", recording.ID, audio.deleteCalls, audio.deletedIDs)
	}
	if reservations.deleteCalls != 1 {
		t.Fatalf("expected reservation compensated, got %d", reservations.deleteCalls)
	}
	if notifier.calls != 0 {
		t.Fatal("notify should not run on saga failure")
	}
}

func TestReserve_NotifyFails_ReservationStaysCommitted(t *testing.T) {
	reservations := newFakeReservations()
	video := testVideo()
	audio := &fakeAudio{recording: testRecording()}
	notifier := &fakeNotifier{err: errors.New("recap server down")}

	o := NewOrchestrator(
		reservations,
		&fakeArchive{video: video},
		audio,
		&fakeStoryboards{storyboard: &model.Storyboard{ID: video.StoryboardID}},
		notifier,
		testLogger(),
	)

	res, err := o.Reserve(context.Background(), video.MemberID, video.ID, time.Now())
	if err != nil {
		t.Fatalf("notify failure must not fail the saga: %v", err)
	}
	if reservations.deleteCalls != 0 {
		t.Fatalf("notify failure must not unwind the saga, got %d deletes", reservations.deleteCalls)
	}
	if audio.deleteCalls != 0 {
		t.Fatalf("notify failure must not delete audio, got %d", audio.deleteCalls)
	}
	if _, ok := reservations.linked[res.ID]; !ok {
		t.Fatal("expected link to survive notify failure")
	}
}

func TestReserve_NotifySkippedWhenDisabled(t *testing.T) {
	reservations := newFakeReservations()
	video := testVideo()
	audio := &fakeAudio{recording: testRecording()}
	// A nil response with nil error is what the client returns when no
	// recap server is configured.
	notifier := &fakeNotifier{resp: nil}

	o := NewOrchestrator(
		reservations,
		&fakeArchive{video: video},
		audio,
		&fakeStoryboards{storyboard: &model.Storyboard{ID: video.StoryboardID}},
		notifier,
		testLogger(),
	)

	if _, err := o.Reserve(context.Background(), video.MemberID, video.ID, time.Now()); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if len(reservations.savedTo) != 0 {
		t.Fatalf("no result should be saved without recap content, got %v", reservations.savedTo)
	}
}

func TestReserve_ScenarioCarriesOrderedScenes(t *testing.T) {
	reservations := newFakeReservations()
	video := testVideo()
	audio := &fakeAudio{recording: testRecording()}
	notifier := &fakeNotifier{}
	scenes := []model.Scene{
		{ID: uuid.New(), Name: "Childhood", Question: "Where did you grow up?", Order: 1},
		{ID: uuid.New(), Name: "Career", Question: "What was your first job?", Order: 2},
	}

	o := NewOrchestrator(
		reservations,
		&fakeArchive{video: video},
		audio,
		&fakeStoryboards{storyboard: &model.Storyboard{ID: video.StoryboardID, Title: "Life"}, scenes: scenes},
		notifier,
		testLogger(),
	)

	if _, err := o.Reserve(context.Background(), video.MemberID, video.ID, time.Now()); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if notifier.last == nil {
		t.Fatal("expected a notify request")
	}
	if notifier.last.AudioURL != audio.recording.AudioURL {
		t.Fatalf("expected audio url %q, got %q", audio.recording.AudioURL, notifier.last.AudioURL)
	}
	got := notifier.last.Scenario
	if got.Title != "Life" || len(got.Scenes) != 2 {
		t.Fatalf("unexpected scenario: %+v", got)
	}
	if got.Scenes[0].Question != scenes[0].Question || got.Scenes[1].Question != scenes[1].Question {
		t.Fatalf("scene order not preserved: %+v", got.Scenes)
	}
}

func TestResultAndAudio_AbsentIsNilNotError(t *testing.T) {
	reservations := newFakeReservations()
	o := NewOrchestrator(reservations, &fakeArchive{}, &fakeAudio{}, &fakeStoryboards{}, &fakeNotifier{}, testLogger())

	result, err := o.Result(context.Background(), uuid.New())
	if err != nil || result != nil {
		t.Fatalf("expected (nil, nil) for absent result, got (%v, %v)", result, err)
	}
	audio, err := o.Audio(context.Background(), uuid.New())
	if err != nil || audio != nil {
		t.Fatalf("expected (nil, nil) for absent audio, got (%v, %v)", audio, err)
	}
}
