package player

// Player is an account. Technologies counts how often the player finished
// researching each technology over all games; repeated research gets cheaper.
type Player struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Technologies map[string]int `json:"technologies"`
	Version      int64          `json:"version"`
	CreatedAt    int64          `json:"created_at"`
}

// RecordUnlocks counts one more finished research of each technology.
func (p *Player) RecordUnlocks(technologies []string) {
	if p.Technologies == nil {
		p.Technologies = make(map[string]int)
	}
	for _, id := range technologies {
		p.Technologies[id]++
	}
}
