package recap

import (
	"github.com/google/uuid"

	"reverie/internal/model"
)

// ScenarioScene is one question of the interview as sent to the recap
// server.
type ScenarioScene struct {
	SceneID  uuid.UUID `json:"sceneId"`
	Name     string    `json:"name"`
	Question string    `json:"question"`
}

// Scenario is the derived description of the interview script that
// accompanies the audio in a recap request.
type Scenario struct {
	StoryboardID uuid.UUID       `json:"storyboardId"`
	Title        string          `json:"title"`
	Scenes       []ScenarioScene `json:"scenes"`
}

// BuildScenario flattens a storyboard and its ordered scenes into the
// request payload shape.
func BuildScenario(storyboard *model.Storyboard, scenes []model.Scene) Scenario {
	out := Scenario{
		StoryboardID: storyboard.ID,
		Title:        storyboard.Title,
		Scenes:       make([]ScenarioScene, 0, len(scenes)),
	}
	for _, sc := range scenes {
		out.Scenes = append(out.Scenes, ScenarioScene{
			SceneID:  sc.ID,
			Name:     sc.Name,
			Question: sc.Question,
		})
	}
	return out
}
