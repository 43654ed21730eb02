package fleet

// Fleet is a group of ships parked at a system. Only which ship types are
// present matters to the simulation.
type Fleet struct {
	ID       string         `json:"id"`
	GameID   string         `json:"game_id"`
	EmpireID string         `json:"empire_id"`
	Location string         `json:"location"`
	Ships    map[string]int `json:"ships"`
}

// Has reports whether the fleet carries at least one ship of shipType.
func (f *Fleet) Has(shipType string) bool {
	return f.Ships[shipType] > 0
}

// AnyHas reports whether empireID has a ship of shipType at location.
func AnyHas(fleets []*Fleet, empireID, location, shipType string) bool {
	for _, f := range fleets {
		if f.EmpireID == empireID && f.Location == location && f.Has(shipType) {
			return true
		}
	}
	return false
}
