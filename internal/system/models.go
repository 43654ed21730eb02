package system

import (
	"galactic-server/internal/catalog"
)

// System is a star system on the galaxy graph.
type System struct {
	ID      string          `json:"id"`
	GameID  string          `json:"game_id"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Cluster int             `json:"cluster"`
	Owner   string          `json:"owner,omitempty"`
	Upgrade catalog.Upgrade `json:"upgrade"`

	Capacity int `json:"capacity"`
	// Districts counts built districts; DistrictSlots caps them per type.
	Districts     map[string]int `json:"districts"`
	DistrictSlots map[string]int `json:"district_slots"`
	Buildings     []string       `json:"buildings"`
	Population    float64        `json:"population"`

	// Links maps neighbouring system ids to their distance.
	Links map[string]float64 `json:"links"`

	Version   int64 `json:"version"`
	UpdatedAt int64 `json:"updated_at"`
}

// New returns an unexplored, unowned system.
func New(id, gameID, name, systemType string, capacity int) *System {
	return &System{
		ID:            id,
		GameID:        gameID,
		Name:          name,
		Type:          systemType,
		Upgrade:       catalog.Unexplored,
		Capacity:      capacity,
		Districts:     map[string]int{},
		DistrictSlots: map[string]int{},
		Buildings:     []string{},
		Links:         map[string]float64{},
		Version:       1,
	}
}

// DistrictCount is the number of built districts of every type.
func (s *System) DistrictCount() int {
	n := 0
	for _, c := range s.Districts {
		n += c
	}
	return n
}

// Jobs is the number of population jobs: one per building and per district.
func (s *System) Jobs() int {
	return len(s.Buildings) + s.DistrictCount()
}

// Free is the capacity left for new buildings and districts.
func (s *System) Free() int {
	return s.Capacity - s.Jobs()
}

func (s *System) OwnedBy(empireID string) bool {
	return s.Owner != "" && s.Owner == empireID
}

// Link records an undirected edge on both systems.
func Link(a, b *System, distance float64) {
	a.Links[b.ID] = distance
	b.Links[a.ID] = distance
}
