package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"reverie/internal/model"
)

// CreatePendingVideo inserts a video row in pending status ahead of the
// client's direct-to-bucket upload. The row id doubles as the object key
// suffix.
func (s *Store) CreatePendingVideo(ctx context.Context, storyboardID, memberID uuid.UUID) (uuid.UUID, error) {
	id := newUUID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO videos (id, storyboard_id, member_id, status) VALUES ($1, $2, $3, 'pending')`,
		id, storyboardID, memberID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create pending video: %w", err)
	}
	return id, nil
}

// GetVideo returns (nil, nil) when the video does not exist.
func (s *Store) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	var v model.Video
	var title, videoURL, thumbnailURL, contentType sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, storyboard_id, member_id, title, video_url, thumbnail_url,
		        status, running_time, content_type, size, created_at
		   FROM videos
		  WHERE id = $1`,
		videoID,
	).Scan(&v.ID, &v.StoryboardID, &v.MemberID, &title, &videoURL, &thumbnailURL,
		&v.Status, &v.RunningTime, &contentType, &v.Size, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	v.Title = title.String
	v.VideoURL = videoURL.String
	v.ThumbnailURL = thumbnailURL.String
	v.ContentType = contentType.String
	return &v, nil
}

// ListMemberVideos returns one page of a member's videos, newest first.
func (s *Store) ListMemberVideos(ctx context.Context, memberID uuid.UUID, offset, limit int) ([]model.Video, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, storyboard_id, member_id, title, video_url, thumbnail_url,
		        status, running_time, content_type, size, created_at
		   FROM videos
		  WHERE member_id = $1
		  ORDER BY created_at DESC
		 OFFSET $2 LIMIT $3`,
		memberID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list member videos: %w", err)
	}
	defer rows.Close()

	var out []model.Video
	for rows.Next() {
		var v model.Video
		var title, videoURL, thumbnailURL, contentType sql.NullString
		if err := rows.Scan(&v.ID, &v.StoryboardID, &v.MemberID, &title, &videoURL, &thumbnailURL,
			&v.Status, &v.RunningTime, &contentType, &v.Size, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.Title = title.String
		v.VideoURL = videoURL.String
		v.ThumbnailURL = thumbnailURL.String
		v.ContentType = contentType.String
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVideoURLAndStatus finalizes an upload. Returns false when the video
// row does not exist.
func (s *Store) UpdateVideoURLAndStatus(ctx context.Context, videoID uuid.UUID, videoURL string, status model.VideoStatus) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE videos SET video_url = $1, status = $2 WHERE id = $3`,
		videoURL, string(status), videoID)
	if err != nil {
		return false, fmt.Errorf("update video url/status: %w", err)
	}
	return oneRowAffected(res)
}

// UpdateVideoRunningTime writes the duration measurement computed by the
// extraction worker. Returns false when the video row does not exist.
func (s *Store) UpdateVideoRunningTime(ctx context.Context, videoID uuid.UUID, seconds int) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE videos SET running_time = $1 WHERE id = $2`,
		seconds, videoID)
	if err != nil {
		return false, fmt.Errorf("update running time: %w", err)
	}
	return oneRowAffected(res)
}

// UpdateVideoTitle returns false when the video row does not exist.
func (s *Store) UpdateVideoTitle(ctx context.Context, videoID uuid.UUID, title string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE videos SET title = $1 WHERE id = $2`,
		title, videoID)
	if err != nil {
		return false, fmt.Errorf("update video title: %w", err)
	}
	return oneRowAffected(res)
}

// UpdateVideoThumbnail returns false when the video row does not exist.
func (s *Store) UpdateVideoThumbnail(ctx context.Context, videoID uuid.UUID, thumbnailURL string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE videos SET thumbnail_url = $1 WHERE id = $2`,
		thumbnailURL, videoID)
	if err != nil {
		return false, fmt.Errorf("update video thumbnail: %w", err)
	}
	return oneRowAffected(res)
}

// DeleteVideo returns false when the video row does not exist.
func (s *Store) DeleteVideo(ctx context.Context, videoID uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, videoID)
	if err != nil {
		return false, fmt.Errorf("delete video: %w", err)
	}
	return oneRowAffected(res)
}

func oneRowAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// newUUID prefers time-ordered v7 ids and falls back to v4 when the
// platform cannot supply one.
func newUUID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}
