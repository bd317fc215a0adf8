package http

import (
	"time"

	"github.com/google/uuid"

	"reverie/internal/model"
	"reverie/internal/recap"
)

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

type UploadURLRequest struct {
	StoryboardID uuid.UUID `json:"storyboardId"`
}

type UploadURLResponse struct {
	Success   bool      `json:"success"`
	VideoID   uuid.UUID `json:"videoId"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ConfirmUploadResponse struct {
	Success bool      `json:"success"`
	VideoID uuid.UUID `json:"videoId"`
}

type VideoResponse struct {
	Success bool         `json:"success"`
	Video   *model.Video `json:"video,omitempty"`
}

type VideoListResponse struct {
	Success bool          `json:"success"`
	Videos  []model.Video `json:"videos"`
	Page    int           `json:"page"`
}

type UpdateTitleRequest struct {
	Title string `json:"title"`
}

type ReserveRecapRequest struct {
	VideoID     uuid.UUID `json:"videoId"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

type ReserveRecapResponse struct {
	Success     bool               `json:"success"`
	Reservation *recap.Reservation `json:"reservation,omitempty"`
}

type RecapResultResponse struct {
	Success bool               `json:"success"`
	Result  *model.RecapResult `json:"result,omitempty"`
}

type RecapAudioResponse struct {
	Success bool                  `json:"success"`
	Audio   *model.AudioRecording `json:"audio,omitempty"`
}
