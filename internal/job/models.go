package job

import (
	"galactic-server/internal/catalog"
)

type Type string

const (
	TypeBuilding   Type = "building"
	TypeDistrict   Type = "district"
	TypeUpgrade    Type = "upgrade"
	TypeTechnology Type = "technology"
)

// researchQueue is the one queue shared by all technology jobs of an empire.
const researchQueue = "research"

// Job is construction or research in progress. Its cost was paid when it
// was created.
type Job struct {
	ID         string              `json:"id"`
	GameID     string              `json:"game_id"`
	EmpireID   string              `json:"empire_id"`
	Type       Type                `json:"type"`
	Progress   float64             `json:"progress"`
	Total      float64             `json:"total"`
	Cost       catalog.ResourceMap `json:"cost"`
	System     string              `json:"system,omitempty"`
	Building   string              `json:"building,omitempty"`
	District   string              `json:"district,omitempty"`
	Technology string              `json:"technology,omitempty"`
	Upgrade    catalog.Upgrade     `json:"upgrade,omitempty"`
	CreatedAt  int64               `json:"created_at"`
}

// Queue names the queue the job waits in: one per system, plus research.
func (j *Job) Queue() string {
	if j.Type == TypeTechnology {
		return researchQueue
	}
	return "system:" + j.System
}

func (j *Job) Done() bool {
	return j.Progress >= j.Total
}

// Request is what a player submits to start a job.
type Request struct {
	Type       Type   `json:"type"`
	System     string `json:"system,omitempty"`
	Building   string `json:"building,omitempty"`
	District   string `json:"district,omitempty"`
	Technology string `json:"technology,omitempty"`
}

// Filter narrows job listings; empty fields match everything.
type Filter struct {
	GameIDs  []string
	EmpireID string
	System   string
}
