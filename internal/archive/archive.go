package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reverie/internal/model"
	"reverie/internal/storage"
)

const (
	videoKeyPrefix     = "archive/videos/"
	thumbnailKeyPrefix = "archive/thumbnails/"

	presignedURLExpiry = 60 * time.Minute
)

// VideoStore is the relational side of the archive.
type VideoStore interface {
	CreatePendingVideo(ctx context.Context, storyboardID, memberID uuid.UUID) (uuid.UUID, error)
	GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	ListMemberVideos(ctx context.Context, memberID uuid.UUID, offset, limit int) ([]model.Video, error)
	UpdateVideoURLAndStatus(ctx context.Context, videoID uuid.UUID, videoURL string, status model.VideoStatus) (bool, error)
	UpdateVideoRunningTime(ctx context.Context, videoID uuid.UUID, seconds int) (bool, error)
	UpdateVideoTitle(ctx context.Context, videoID uuid.UUID, title string) (bool, error)
	UpdateVideoThumbnail(ctx context.Context, videoID uuid.UUID, thumbnailURL string) (bool, error)
	DeleteVideo(ctx context.Context, videoID uuid.UUID) (bool, error)
	CreateDurationJob(ctx context.Context, videoID uuid.UUID) error
}

// PresignedUpload is handed to clients so they can PUT the video bytes
// directly to the bucket.
type PresignedUpload struct {
	VideoID   uuid.UUID `json:"videoId"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service implements the archive collaborator: video rows in Postgres plus
// video/thumbnail objects in object storage.
type Service struct {
	store     VideoStore
	storage   storage.ObjectStorage
	cdnDomain string
	logger    *slog.Logger
}

func NewService(store VideoStore, st storage.ObjectStorage, cdnDomain string, logger *slog.Logger) *Service {
	return &Service{store: store, storage: st, cdnDomain: cdnDomain, logger: logger}
}

// RequestUploadURL creates a pending video row and returns a presigned PUT
// URL valid for one hour.
func (s *Service) RequestUploadURL(ctx context.Context, storyboardID, memberID uuid.UUID) (*PresignedUpload, error) {
	videoID, err := s.store.CreatePendingVideo(ctx, storyboardID, memberID)
	if err != nil {
		return nil, err
	}

	uploadURL, err := s.storage.PresignPut(ctx, videoKeyPrefix+videoID.String(), presignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload url: %w", err)
	}

	return &PresignedUpload{
		VideoID:   videoID,
		UploadURL: uploadURL,
		ExpiresAt: time.Now().UTC().Add(presignedURLExpiry),
	}, nil
}

// ConfirmUpload verifies ownership, pending status, and that the object
// actually landed in the bucket, then finalizes the video row and enqueues
// the duration-extraction job. Returns uuid.Nil without error when the
// confirmation is rejected rather than failed.
func (s *Service) ConfirmUpload(ctx context.Context, videoID, memberID uuid.UUID) (uuid.UUID, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return uuid.Nil, err
	}
	if video == nil {
		s.logger.Warn("confirm upload: video not found", "video_id", videoID)
		return uuid.Nil, nil
	}
	if video.MemberID != memberID {
		s.logger.Warn("confirm upload: unauthorized", "video_id", videoID, "member_id", memberID)
		return uuid.Nil, nil
	}
	if video.Status != model.VideoStatusPending {
		s.logger.Warn("confirm upload: not pending", "video_id", videoID, "status", video.Status)
		return uuid.Nil, nil
	}

	uploaded, err := s.storage.Exists(ctx, videoKeyPrefix+videoID.String())
	if err != nil {
		return uuid.Nil, fmt.Errorf("check upload complete: %w", err)
	}
	if !uploaded {
		s.logger.Warn("confirm upload: object not uploaded", "video_id", videoID)
		return uuid.Nil, nil
	}

	videoURL := s.cdnDomain + "/" + videoKeyPrefix + videoID.String()
	ok, err := s.store.UpdateVideoURLAndStatus(ctx, videoID, videoURL, model.VideoStatusUploaded)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		s.logger.Warn("confirm upload: failed to update status", "video_id", videoID)
		return uuid.Nil, nil
	}

	if err := s.store.CreateDurationJob(ctx, videoID); err != nil {
		return uuid.Nil, err
	}
	s.logger.Info("created duration extraction job", "video_id", videoID)

	return videoID, nil
}

// GetVideo returns (nil, nil) when the video does not exist.
func (s *Service) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	return s.store.GetVideo(ctx, videoID)
}

// GetVideoStream opens the stored video object. storage.ErrNotFound is
// returned unwrapped-compatible so callers can branch with errors.Is.
func (s *Service) GetVideoStream(ctx context.Context, videoID uuid.UUID) (io.ReadCloser, error) {
	return s.storage.Get(ctx, videoKeyPrefix+videoID.String())
}

// ListMemberVideos pages through a member's videos, newest first.
func (s *Service) ListMemberVideos(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]model.Video, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.store.ListMemberVideos(ctx, memberID, page*pageSize, pageSize)
}

// UpdateVideoRunningTime writes the measured duration back to the video row.
func (s *Service) UpdateVideoRunningTime(ctx context.Context, videoID uuid.UUID, seconds int) (bool, error) {
	return s.store.UpdateVideoRunningTime(ctx, videoID, seconds)
}

// UpdateVideoTitle returns false when the video does not exist.
func (s *Service) UpdateVideoTitle(ctx context.Context, videoID uuid.UUID, title string) (bool, error) {
	return s.store.UpdateVideoTitle(ctx, videoID, title)
}

// UpdateVideoThumbnail stores the thumbnail bytes and records its URL.
func (s *Service) UpdateVideoThumbnail(ctx context.Context, videoID uuid.UUID, body io.Reader, size int64, contentType string) (bool, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return false, err
	}
	if video == nil {
		return false, nil
	}

	key := thumbnailKeyPrefix + videoID.String()
	if err := s.storage.Put(ctx, key, body, size, contentType); err != nil {
		return false, fmt.Errorf("upload thumbnail: %w", err)
	}
	return s.store.UpdateVideoThumbnail(ctx, videoID, s.storage.URL(key))
}

// DeleteVideo removes the video row and its stored object. A missing object
// is tolerated; the row is the source of truth.
func (s *Service) DeleteVideo(ctx context.Context, videoID uuid.UUID) (bool, error) {
	ok, err := s.store.DeleteVideo(ctx, videoID)
	if err != nil || !ok {
		return ok, err
	}
	if err := s.storage.Delete(ctx, videoKeyPrefix+videoID.String()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("failed to delete video object, manual cleanup may be required",
			"video_id", videoID, "error", err)
	}
	return true, nil
}
