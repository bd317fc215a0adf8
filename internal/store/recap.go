package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reverie/internal/model"
)

// CreateRecapReservation inserts the saga's root record and returns its id.
func (s *Store) CreateRecapReservation(ctx context.Context, memberID, videoID uuid.UUID, scheduledAt time.Time) (uuid.UUID, error) {
	id := newUUID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO recap_reservations (id, member_id, video_id, scheduled_at)
		 VALUES ($1, $2, $3, $4)`,
		id, memberID, videoID, scheduledAt.UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("create recap reservation: %w", err)
	}
	return id, nil
}

// LinkAudioRecording associates an extracted audio recording with its
// reservation. Returns an error when the reservation row is gone, since a
// silent no-op here would leave an unlinked audio artifact behind.
func (s *Store) LinkAudioRecording(ctx context.Context, reservationID, recordingID uuid.UUID) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE recap_reservations SET interview_audio_recording_id = $1 WHERE id = $2`,
		recordingID, reservationID)
	if err != nil {
		return fmt.Errorf("link audio recording: %w", err)
	}
	ok, err := oneRowAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("link audio recording: reservation %s not found", reservationID)
	}
	return nil
}

// DeleteRecapReservation removes a reservation. Used both as the saga's
// compensating action and for operator cleanup; deleting an absent row is
// not an error.
func (s *Store) DeleteRecapReservation(ctx context.Context, reservationID uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM recap_reservations WHERE id = $1`, reservationID)
	if err != nil {
		return fmt.Errorf("delete recap reservation: %w", err)
	}
	return nil
}

// GetRecapReservation returns (nil, nil) when the reservation does not exist.
func (s *Store) GetRecapReservation(ctx context.Context, reservationID uuid.UUID) (*model.RecapReservation, error) {
	var r model.RecapReservation
	var recordingID uuid.NullUUID
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, member_id, video_id, scheduled_at, interview_audio_recording_id, created_at
		   FROM recap_reservations
		  WHERE id = $1`,
		reservationID,
	).Scan(&r.ID, &r.MemberID, &r.VideoID, &r.ScheduledAt, &recordingID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recap reservation: %w", err)
	}
	if recordingID.Valid {
		id := recordingID.UUID
		r.AudioRecordingID = &id
	}
	return &r, nil
}

// SaveRecapResult stores the summaries returned by the recap server for a
// reservation, all within one transaction.
func (s *Store) SaveRecapResult(ctx context.Context, reservationID uuid.UUID, summaries []model.AnswerSummary) (uuid.UUID, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin result tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	resultID := newUUID()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recap_results (id, recap_reservation_id) VALUES ($1, $2)`,
		resultID, reservationID); err != nil {
		return uuid.Nil, fmt.Errorf("insert recap result: %w", err)
	}

	for i, sum := range summaries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recap_answer_summaries (id, recap_result_id, scene_id, question, answer_summary, summary_order)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			newUUID(), resultID, sum.SceneID, sum.Question, sum.AnswerSummary, i); err != nil {
			return uuid.Nil, fmt.Errorf("insert answer summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit result tx: %w", err)
	}
	return resultID, nil
}

// GetRecapResult fetches the stored result for a reservation, summaries in
// order. Returns (nil, nil) when no result exists yet.
func (s *Store) GetRecapResult(ctx context.Context, reservationID uuid.UUID) (*model.RecapResult, error) {
	var result model.RecapResult
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, created_at FROM recap_results
		  WHERE recap_reservation_id = $1
		  ORDER BY created_at DESC
		  LIMIT 1`,
		reservationID,
	).Scan(&result.ID, &result.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recap result: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT scene_id, question, answer_summary
		   FROM recap_answer_summaries
		  WHERE recap_result_id = $1
		  ORDER BY summary_order`,
		result.ID)
	if err != nil {
		return nil, fmt.Errorf("get answer summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sum model.AnswerSummary
		if err := rows.Scan(&sum.SceneID, &sum.Question, &sum.AnswerSummary); err != nil {
			return nil, fmt.Errorf("scan answer summary: %w", err)
		}
		result.Summaries = append(result.Summaries, sum)
	}
	return &result, rows.Err()
}

// GetRecapAudio fetches the audio recording linked to a reservation.
// Returns (nil, nil) when the reservation is absent or has no linked audio.
func (s *Store) GetRecapAudio(ctx context.Context, reservationID uuid.UUID) (*model.AudioRecording, error) {
	var rec model.AudioRecording
	var title sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT a.id, a.storyboard_id, a.member_id, a.title, a.audio_url, a.running_time, a.created_at
		   FROM recap_reservations r
		   JOIN interview_audio_recordings a ON a.id = r.interview_audio_recording_id
		  WHERE r.id = $1`,
		reservationID,
	).Scan(&rec.ID, &rec.StoryboardID, &rec.MemberID, &title, &rec.AudioURL, &rec.RunningTime, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recap audio: %w", err)
	}
	rec.Title = title.String
	return &rec, nil
}
