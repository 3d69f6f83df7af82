package engine

import "slices"

// BuildCycle derives the sequence of coach IDs iterated at runtime.
// Snake is the order followed by its reverse, so both ends pick twice in a row.
func BuildCycle(order []string, mode Mode) []string {
	if mode != ModeSnake {
		return slices.Clone(order)
	}
	cycle := make([]string, 0, 2*len(order))
	cycle = append(cycle, order...)
	for i := len(order) - 1; i >= 0; i-- {
		cycle = append(cycle, order[i])
	}
	return cycle
}

// CurrentCoach returns the coach whose slot the cursor points at.
func CurrentCoach(s State) (Coach, bool) {
	c := currentCoach(&s)
	if c == nil {
		return Coach{}, false
	}
	return *c, true
}

// Round is 1-based: one round is one pass over the cycle.
func Round(s State) int {
	return s.Cursor/max(1, len(s.Cycle)) + 1
}

func advanceTurn(s *State) []Event {
	s.Cursor++
	events := []Event{{Type: EvtTurnAdvanced, Cursor: s.Cursor}}
	return append(events, resolveTurn(s)...)
}

// resolveTurn passes over flagged coaches without recording history. Each flag is
// cleared when consumed, so the loop ends within one revolution of the cycle.
func resolveTurn(s *State) []Event {
	var events []Event
	for {
		coach := currentCoach(s)
		if coach == nil || !coach.SkipNext {
			return events
		}
		coach.SkipNext = false
		events = append(events, Event{Type: EvtTurnSkipped, CoachID: coach.ID, Cursor: s.Cursor})
		s.Cursor++
		events = append(events, Event{Type: EvtTurnAdvanced, Cursor: s.Cursor})
	}
}

func retreat(cursor, cycleLen int) int {
	if cursor > 0 {
		return cursor - 1
	}
	return max(1, cycleLen) - 1
}
