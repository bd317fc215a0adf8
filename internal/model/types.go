package model

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus tracks a video through the presigned-upload flow. These values
// must match the text values stored in videos.status.
type VideoStatus string

const (
	VideoStatusPending  VideoStatus = "pending"
	VideoStatusUploaded VideoStatus = "uploaded"
)

// Video is an archived interview recording. RunningTime is zero until the
// duration-extraction worker fills it in.
type Video struct {
	ID           uuid.UUID   `json:"id"`
	StoryboardID uuid.UUID   `json:"storyboardId"`
	MemberID     uuid.UUID   `json:"memberId"`
	Title        string      `json:"title,omitempty"`
	VideoURL     string      `json:"videoUrl,omitempty"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
	Status       VideoStatus `json:"status"`
	RunningTime  int         `json:"runningTime"`
	ContentType  string      `json:"contentType,omitempty"`
	Size         int64       `json:"size,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// AudioRecording is the metadata row for an audio artifact extracted from a
// video. The object itself lives in object storage at AudioURL; the row and
// the object are owned jointly until DeleteAudio removes both.
type AudioRecording struct {
	ID           uuid.UUID `json:"id"`
	StoryboardID uuid.UUID `json:"storyboardId"`
	MemberID     uuid.UUID `json:"memberId"`
	Title        string    `json:"title,omitempty"`
	AudioURL     string    `json:"audioUrl"`
	RunningTime  int       `json:"runningTime"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecapReservation is the saga's root record. AudioRecordingID is null until
// the link step succeeds.
type RecapReservation struct {
	ID               uuid.UUID  `json:"id"`
	MemberID         uuid.UUID  `json:"memberId"`
	VideoID          uuid.UUID  `json:"videoId"`
	ScheduledAt      time.Time  `json:"scheduledAt"`
	AudioRecordingID *uuid.UUID `json:"audioRecordingId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// AnswerSummary is one scene's summary inside a recap result.
type AnswerSummary struct {
	SceneID       uuid.UUID `json:"sceneId"`
	Question      string    `json:"question"`
	AnswerSummary string    `json:"answerSummary"`
}

// RecapResult holds the summaries returned by the recap server for a
// reservation.
type RecapResult struct {
	ID        uuid.UUID       `json:"recapResultId"`
	CreatedAt time.Time       `json:"createdAt"`
	Summaries []AnswerSummary `json:"answerSummaries"`
}

// Storyboard is the interview script a video was recorded against.
type Storyboard struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// Scene is one question within a storyboard, ordered by Order.
type Scene struct {
	ID           uuid.UUID `json:"id"`
	StoryboardID uuid.UUID `json:"storyboardId"`
	Name         string    `json:"name"`
	Question     string    `json:"question"`
	Order        int       `json:"order"`
}
