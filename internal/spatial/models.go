package spatial

import (
	"galactic-server/internal/catalog"
	"galactic-server/internal/fleet"
)

// Node is a system as drawn on the galaxy map.
type Node struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Type    string             `json:"type"`
	X       float64            `json:"x"`
	Y       float64            `json:"y"`
	Cluster int                `json:"cluster"`
	Owner   string             `json:"owner,omitempty"`
	Upgrade catalog.Upgrade    `json:"upgrade"`
	Links   map[string]float64 `json:"links"`
}

type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Map is one game's galaxy as seen by a member: every system, and the
// fleets of the member's own empire.
type Map struct {
	GameID string         `json:"game_id"`
	Bounds Bounds         `json:"bounds"`
	Nodes  []Node         `json:"nodes"`
	Fleets []*fleet.Fleet `json:"fleets"`
}
