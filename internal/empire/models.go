package empire

import (
	"galactic-server/internal/catalog"
)

// Empire is one player's state inside one game.
type Empire struct {
	ID         string              `json:"id"`
	GameID     string              `json:"game_id"`
	UserID     string              `json:"user_id"`
	Name       string              `json:"name"`
	Color      string              `json:"color,omitempty"`
	HomeSystem string              `json:"home_system,omitempty"`
	Resources  catalog.ResourceMap `json:"resources"`
	// Technologies is append-only, in unlock order.
	Technologies []string `json:"technologies"`
	Traits       []string `json:"traits"`
	Version      int64    `json:"version"`
	UpdatedAt    int64    `json:"updated_at"`
}

// Population is the empire-wide population, kept as a resource.
func (e *Empire) Population() float64 {
	return e.Resources[catalog.Population]
}

func (e *Empire) SetPopulation(p float64) {
	e.Resources[catalog.Population] = p
}

// CreateRequest carries what a player chooses when joining a game.
type CreateRequest struct {
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Traits []string `json:"traits"`
}
