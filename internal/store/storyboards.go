package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"reverie/internal/model"
)

// GetStoryboard returns (nil, nil) when the storyboard does not exist.
func (s *Store) GetStoryboard(ctx context.Context, id uuid.UUID) (*model.Storyboard, error) {
	var sb model.Storyboard
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, title FROM storyboards WHERE id = $1`, id,
	).Scan(&sb.ID, &sb.Title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get storyboard: %w", err)
	}
	return &sb, nil
}

// ListScenes returns a storyboard's scenes in scene order.
func (s *Store) ListScenes(ctx context.Context, storyboardID uuid.UUID) ([]model.Scene, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, storyboard_id, name, question, scene_order
		   FROM scenes
		  WHERE storyboard_id = $1
		  ORDER BY scene_order`,
		storyboardID)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var out []model.Scene
	for rows.Next() {
		var sc model.Scene
		if err := rows.Scan(&sc.ID, &sc.StoryboardID, &sc.Name, &sc.Question, &sc.Order); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
