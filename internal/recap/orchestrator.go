package recap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reverie/internal/metrics"
	"reverie/internal/model"
)

// ReservationStore is the relational side of the recap saga.
type ReservationStore interface {
	CreateRecapReservation(ctx context.Context, memberID, videoID uuid.UUID, scheduledAt time.Time) (uuid.UUID, error)
	LinkAudioRecording(ctx context.Context, reservationID, recordingID uuid.UUID) error
	DeleteRecapReservation(ctx context.Context, reservationID uuid.UUID) error
	SaveRecapResult(ctx context.Context, reservationID uuid.UUID, summaries []model.AnswerSummary) (uuid.UUID, error)
	GetRecapResult(ctx context.Context, reservationID uuid.UUID) (*model.RecapResult, error)
	GetRecapAudio(ctx context.Context, reservationID uuid.UUID) (*model.AudioRecording, error)
}

// Archive is the video archive collaborator.
type Archive interface {
	GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	GetVideoStream(ctx context.Context, videoID uuid.UUID) (io.ReadCloser, error)
}

// AudioExtractor is the media pipeline collaborator.
type AudioExtractor interface {
	ExtractAndSave(ctx context.Context, videoStream io.Reader, storyboardID, memberID uuid.UUID, title string, runningTime int) (*model.AudioRecording, error)
	DeleteAudio(ctx context.Context, recordingID uuid.UUID, audioURL string)
}

// StoryboardReader supplies the scenario sent to the recap server.
type StoryboardReader interface {
	GetStoryboard(ctx context.Context, id uuid.UUID) (*model.Storyboard, error)
	ListScenes(ctx context.Context, storyboardID uuid.UUID) ([]model.Scene, error)
}

// Notifier is the external recap server collaborator. Failures are caught
// and logged by the orchestrator, never propagated.
type Notifier interface {
	SendRequest(ctx context.Context, req *Request) (*Response, error)
}

// Reservation is the caller-facing summary of a committed recap
// reservation.
type Reservation struct {
	ID          uuid.UUID `json:"reservationId"`
	MemberID    uuid.UUID `json:"memberId"`
	VideoID     uuid.UUID `json:"videoId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// compensation is one undo action on the saga's compensation stack. The
// action logs its own failure and never raises: an undo failure must not
// mask the root cause that triggered the unwind.
type compensation struct {
	step string
	undo func(ctx context.Context)
}

// Orchestrator sequences the recap reservation saga:
//
//	reserve -> fetch video -> extract audio -> link -> notify (best effort)
//
// Each completed step pushes its inverse onto a compensation stack. On any
// failure before the commit point the stack unwinds in reverse order and
// the original error propagates; afterwards the reservation is durable and
// the notify step cannot fail the saga. The result is at most one committed
// reservation per call: either steps 1-4 all persist or none of their
// artifacts do.
type Orchestrator struct {
	reservations ReservationStore
	archive      Archive
	audio        AudioExtractor
	storyboards  StoryboardReader
	notifier     Notifier
	logger       *slog.Logger
}

func NewOrchestrator(
	reservations ReservationStore,
	archive Archive,
	audio AudioExtractor,
	storyboards StoryboardReader,
	notifier Notifier,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		reservations: reservations,
		archive:      archive,
		audio:        audio,
		storyboards:  storyboards,
		notifier:     notifier,
		logger:       logger,
	}
}

// Reserve runs the saga synchronously within the caller's request.
func (o *Orchestrator) Reserve(ctx context.Context, memberID, videoID uuid.UUID, scheduledAt time.Time) (*Reservation, error) {
	// Step 1: reservation. A failure here needs no compensation since
	// nothing has been created yet.
	reservationID, err := o.reservations.CreateRecapReservation(ctx, memberID, videoID, scheduledAt)
	if err != nil {
		return nil, fmt.Errorf("reserve recap: %w", err)
	}
	o.logger.Info("created recap reservation", "reservation_id", reservationID)

	var stack []compensation
	stack = append(stack, compensation{
		step: "reserve",
		undo: func(ctx context.Context) {
			if err := o.reservations.DeleteRecapReservation(ctx, reservationID); err != nil {
				o.logger.Error("failed to compensate reservation, manual cleanup may be required",
					"reservation_id", reservationID, "error", err)
			}
		},
	})

	reservation, err := o.runSteps(ctx, &stack, reservationID, memberID, videoID, scheduledAt)
	if err != nil {
		o.compensate(ctx, stack)
		return nil, err
	}
	return reservation, nil
}

// runSteps executes steps 2-5. The caller unwinds the stack when this
// returns an error.
func (o *Orchestrator) runSteps(ctx context.Context, stack *[]compensation, reservationID, memberID, videoID uuid.UUID, scheduledAt time.Time) (*Reservation, error) {
	// Step 2: the video and its content stream. Absence is a hard failure.
	video, err := o.archive.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", videoID, err)
	}
	if video == nil {
		return nil, fmt.Errorf("video %s not found", videoID)
	}

	stream, err := o.archive.GetVideoStream(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch video stream %s: %w", videoID, err)
	}

	// Step 3: extract and store the audio artifact.
	audioTitle := "Recap Audio"
	if video.Title != "" {
		audioTitle = video.Title + " (Recap Audio)"
	}
	recording, err := func() (*model.AudioRecording, error) {
		defer stream.Close()
		return o.audio.ExtractAndSave(ctx, stream, video.StoryboardID, memberID, audioTitle, video.RunningTime)
	}()
	if err != nil {
		return nil, fmt.Errorf("extract recap audio: %w", err)
	}
	o.logger.Info("extracted recap audio", "reservation_id", reservationID, "recording_id", recording.ID)

	*stack = append(*stack, compensation{
		step: "extract",
		undo: func(ctx context.Context) {
			// DeleteAudio logs its own failures and never raises.
			o.audio.DeleteAudio(ctx, recording.ID, recording.AudioURL)
		},
	})

	// Step 4: link the artifact to the reservation.
	if err := o.reservations.LinkAudioRecording(ctx, reservationID, recording.ID); err != nil {
		return nil, fmt.Errorf("link recap audio: %w", err)
	}
	o.logger.Info("linked recap audio", "reservation_id", reservationID, "recording_id", recording.ID)

	// Commit point: the reservation is durable from here on. Drop the
	// compensation stack so a notify failure cannot unwind it.
	*stack = nil

	// Step 5: best-effort external notification.
	o.notifyRecapServer(ctx, reservationID, video, recording.AudioURL)

	return &Reservation{
		ID:          reservationID,
		MemberID:    memberID,
		VideoID:     videoID,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// compensate unwinds completed steps in reverse order. Undo actions log
// their own failures; the unwind never halts early.
func (o *Orchestrator) compensate(ctx context.Context, stack []compensation) {
	for i := len(stack) - 1; i >= 0; i-- {
		c := stack[i]
		o.logger.Warn("compensating saga step", "step", c.step)
		metrics.RecordSagaCompensation(c.step)
		c.undo(ctx)
	}
}

// notifyRecapServer assembles the request and calls the recap server. Any
// failure is logged and swallowed: by this point the reservation is
// committed and the external call must not affect the saga's outcome.
func (o *Orchestrator) notifyRecapServer(ctx context.Context, reservationID uuid.UUID, video *model.Video, audioURL string) {
	storyboard, err := o.storyboards.GetStoryboard(ctx, video.StoryboardID)
	if err == nil && storyboard == nil {
		err = fmt.Errorf("storyboard %s not found", video.StoryboardID)
	}
	var scenes []model.Scene
	if err == nil {
		scenes, err = o.storyboards.ListScenes(ctx, video.StoryboardID)
	}
	if err != nil {
		metrics.RecordRecapNotification(false)
		o.logger.Error("failed to assemble recap request", "reservation_id", reservationID, "error", err)
		return
	}

	resp, err := o.notifier.SendRequest(ctx, &Request{
		AudioURL: audioURL,
		Scenario: BuildScenario(storyboard, scenes),
	})
	if err != nil {
		metrics.RecordRecapNotification(false)
		o.logger.Error("recap server call failed", "reservation_id", reservationID, "error", err)
		return
	}
	metrics.RecordRecapNotification(true)

	if resp == nil || len(resp.RecapContent) == 0 {
		return
	}
	resultID, err := o.reservations.SaveRecapResult(ctx, reservationID, resp.RecapContent)
	if err != nil {
		o.logger.Error("failed to store recap result", "reservation_id", reservationID, "error", err)
		return
	}
	o.logger.Info("stored recap result", "reservation_id", reservationID, "result_id", resultID)
}

// Result fetches the stored recap result for a reservation. Returns
// (nil, nil) when no result exists.
func (o *Orchestrator) Result(ctx context.Context, reservationID uuid.UUID) (*model.RecapResult, error) {
	return o.reservations.GetRecapResult(ctx, reservationID)
}

// Audio fetches the audio recording linked to a reservation. Returns
// (nil, nil) when the reservation or link does not exist.
func (o *Orchestrator) Audio(ctx context.Context, reservationID uuid.UUID) (*model.AudioRecording, error) {
	return o.reservations.GetRecapAudio(ctx, reservationID)
}
