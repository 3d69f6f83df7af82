package engine

import (
	"fmt"
	"slices"
	"strconv"
)

func NewEmptyState() State {
	return State{
		Phase:   PhaseSetup,
		Mode:    ModeLinear,
		Players: []Player{},
		Coaches: []Coach{},
		Order:   []string{},
		Cycle:   []string{},
		History: []HistoryEntry{},
	}
}

// Initialize loads both rosters into a fresh setup-phase state.
func Initialize(players, coaches []Row, mode Mode) (State, error) {
	s := NewEmptyState()
	if mode != "" {
		_, next, err := Apply(s, Command{Type: CmdSetMode, Mode: mode})
		if err != nil {
			return s, err
		}
		s = next
	}
	_, s, _ = Apply(s, Command{Type: CmdLoadPlayers, Players: players})
	_, s, _ = Apply(s, Command{Type: CmdLoadCoaches, Coaches: coaches})
	return s, nil
}

// Clone deep-copies every slice so Apply never writes through to the caller's state.
func (s State) Clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Coaches = make([]Coach, len(s.Coaches))
	for i, coach := range s.Coaches {
		coach.Roster = slices.Clone(coach.Roster)
		c.Coaches[i] = coach
	}
	c.Order = slices.Clone(s.Order)
	c.Cycle = slices.Clone(s.Cycle)
	c.History = make([]HistoryEntry, len(s.History))
	for i, h := range s.History {
		h.Picks = slices.Clone(h.Picks)
		c.History[i] = h
	}
	return c
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Available lists unassigned players in load order.
func Available(s State) []Player {
	out := []Player{}
	for _, p := range s.Players {
		if !p.Assigned {
			out = append(out, p)
		}
	}
	return out
}

func newPlayers(rows []Row) []Player {
	players := make([]Player, len(rows))
	for i, r := range rows {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		players[i] = Player{ID: strconv.Itoa(i), Name: name, Group: r.Group}
	}
	return players
}

func newCoaches(rows []Row) []Coach {
	coaches := make([]Coach, len(rows))
	for i, r := range rows {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("Coach %d", i+1)
		}
		coaches[i] = Coach{ID: strconv.Itoa(i), Name: name, Roster: []string{}}
	}
	return coaches
}

func coachIDs(coaches []Coach) []string {
	ids := make([]string, len(coaches))
	for i, c := range coaches {
		ids[i] = c.ID
	}
	return ids
}

func resetRosters(s *State) {
	for i := range s.Players {
		s.Players[i].Assigned = false
	}
	for i := range s.Coaches {
		s.Coaches[i].Roster = []string{}
		s.Coaches[i].SkipNext = false
	}
	s.Cursor = 0
	s.History = []HistoryEntry{}
}
