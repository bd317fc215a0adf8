package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"reverie/internal/model"
)

// InsertAudioRecording persists the metadata row for an uploaded audio
// artifact. The caller is responsible for compensating the object-store
// upload when this fails.
func (s *Store) InsertAudioRecording(ctx context.Context, rec *model.AudioRecording) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO interview_audio_recordings
		        (id, storyboard_id, member_id, title, audio_url, running_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.StoryboardID, rec.MemberID, rec.Title, rec.AudioURL, rec.RunningTime, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audio recording: %w", err)
	}
	return nil
}

// GetAudioRecording returns (nil, nil) when the recording does not exist.
func (s *Store) GetAudioRecording(ctx context.Context, id uuid.UUID) (*model.AudioRecording, error) {
	var rec model.AudioRecording
	var title sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, storyboard_id, member_id, title, audio_url, running_time, created_at
		   FROM interview_audio_recordings
		  WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.StoryboardID, &rec.MemberID, &title, &rec.AudioURL, &rec.RunningTime, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audio recording: %w", err)
	}
	rec.Title = title.String
	return &rec, nil
}

// DeleteAudioRecording removes the metadata row. Deleting an absent row is
// not an error so compensation stays idempotent.
func (s *Store) DeleteAudioRecording(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM interview_audio_recordings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete audio recording: %w", err)
	}
	return nil
}
