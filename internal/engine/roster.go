package engine

type RosterPlayer struct {
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

// TeamRoster is the export record for one coach.
type TeamRoster struct {
	CoachID   string         `json:"coach_id"`
	CoachName string         `json:"coach_name"`
	Players   []RosterPlayer `json:"players"`
}

// Rosters lists every coach in load order with its players in pick order.
func Rosters(s State) []TeamRoster {
	byID := make(map[string]Player, len(s.Players))
	for _, p := range s.Players {
		byID[p.ID] = p
	}

	out := make([]TeamRoster, 0, len(s.Coaches))
	for _, c := range s.Coaches {
		team := TeamRoster{CoachID: c.ID, CoachName: c.Name, Players: []RosterPlayer{}}
		for _, pid := range c.Roster {
			if p, ok := byID[pid]; ok {
				team.Players = append(team.Players, RosterPlayer{Name: p.Name, Group: p.Group})
			}
		}
		out = append(out, team)
	}
	return out
}
