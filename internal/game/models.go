package game

import (
	"galactic-server/internal/galaxy"
	"galactic-server/internal/shared/config"
)

// Speed selects which scheduler cadence ticks a game.
type Speed int

const (
	SpeedPaused Speed = iota
	SpeedSlow
	SpeedMedium
	SpeedFast
)

func (s Speed) Valid() bool {
	return s >= SpeedPaused && s <= SpeedFast
}

// Settings shape the galaxy generated when the game starts.
type Settings struct {
	Size               int     `json:"size"`
	ClusterSize        int     `json:"cluster_size"`
	Spacing            float64 `json:"spacing"`
	CyclePercentage    float64 `json:"cycle_percentage"`
	CollisionPrecision float64 `json:"collision_precision"`
}

func DefaultSettings(cfg config.GalaxyConfig) Settings {
	return Settings{
		Size:               cfg.DefaultSize,
		ClusterSize:        cfg.ClusterSize,
		Spacing:            cfg.DefaultSpacing,
		CyclePercentage:    cfg.CyclePercentage,
		CollisionPrecision: cfg.CollisionPrecision,
	}
}

func (s Settings) Options(seed int64) galaxy.Options {
	return galaxy.Options{
		Seed:               seed,
		Size:               s.Size,
		ClusterSize:        s.ClusterSize,
		Spacing:            s.Spacing,
		CyclePercentage:    s.CyclePercentage,
		CollisionPrecision: s.CollisionPrecision,
	}
}

type Game struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Owner    string   `json:"owner"`
	Started  bool     `json:"started"`
	Speed    Speed    `json:"speed"`
	Period   int64    `json:"period"`
	Seed     int64    `json:"-"`
	Settings Settings `json:"settings"`

	Version   int64 `json:"version"`
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Member is a user's seat in a game and the empire it plays.
type Member struct {
	GameID string `json:"game_id"`
	UserID string `json:"user_id"`
	Empire string `json:"empire,omitempty"`
}

type CreateRequest struct {
	Name     string    `json:"name"`
	Speed    Speed     `json:"speed"`
	Settings *Settings `json:"settings,omitempty"`
}

// Status is the public summary of a game.
type Status struct {
	Game    *Game     `json:"game"`
	Members []*Member `json:"members"`
}
