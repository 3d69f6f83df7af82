package engine

import (
	"errors"
	"slices"
)

var ErrNotInSetup = errors.New("draft already started")
var ErrNotDrafting = errors.New("draft is not running")
var ErrDraftCompleted = errors.New("draft already completed")
var ErrNothingLoaded = errors.New("load players and coaches first")
var ErrNoCurrentCoach = errors.New("no coach on the clock")
var ErrPlayerUnavailable = errors.New("player does not exist or is already assigned")
var ErrInvalidOrder = errors.New("pick order must list every coach exactly once")
var ErrInvalidMode = errors.New("unknown draft mode")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Mode string

const (
	ModeLinear Mode = "linear"
	ModeSnake  Mode = "snake"
)

type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseDrafting Phase = "drafting"
	PhaseComplete Phase = "complete"
)

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Group    string `json:"group,omitempty"`
	Assigned bool   `json:"assigned"`
}

type Coach struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Roster   []string `json:"roster"` // player IDs in pick order
	SkipNext bool     `json:"skip_next"`
}

// HistoryEntry is one resolved turn. Picks is empty for a pass.
// SetSkip records that the pick flagged the coach to forfeit its next turn.
type HistoryEntry struct {
	CoachID string   `json:"coach_id"`
	Picks   []string `json:"picks"`
	SetSkip bool     `json:"set_skip,omitempty"`
}

type State struct {
	Phase   Phase          `json:"phase"`
	Mode    Mode           `json:"mode"`
	Players []Player       `json:"players"`
	Coaches []Coach        `json:"coaches"`
	Order   []string       `json:"order"`
	Cycle   []string       `json:"cycle"`
	Cursor  int            `json:"cursor"`
	History []HistoryEntry `json:"history"`
}

// Row is one parsed input line: a name and, for players, an optional group.
type Row struct {
	Name  string
	Group string
}

type CommandType string

const (
	CmdLoadPlayers CommandType = "LoadPlayers"
	CmdLoadCoaches CommandType = "LoadCoaches"
	CmdSetOrder    CommandType = "SetOrder"
	CmdMoveCoach   CommandType = "MoveCoach"
	CmdSetMode     CommandType = "SetMode"
	CmdStartDraft  CommandType = "StartDraft"
	CmdPickPlayer  CommandType = "PickPlayer"
	CmdPassTurn    CommandType = "PassTurn"
	CmdUndo        CommandType = "Undo"
	CmdEndDraft    CommandType = "EndDraft"
)

/*
	CmdPickPlayer -> EvtPlayersPicked -> EvtTurnAdvanced -> (EvtTurnSkipped -> EvtTurnAdvanced)*
	              -> EvtPlayersPicked -> EvtDraftCompleted when nobody is left
	CmdPassTurn   -> EvtTurnPassed -> EvtTurnAdvanced -> (skips)*
	CmdUndo       -> EvtTurnUndone -> (skips)*
	CmdEndDraft   -> EvtDraftCompleted
*/

type Command struct {
	Type     CommandType
	Players  []Row
	Coaches  []Row
	Order    []string
	From     int
	To       int
	Mode     Mode
	PlayerID string
}

type EventType string

const (
	EvtPlayersLoaded  EventType = "PlayersLoaded"
	EvtCoachesLoaded  EventType = "CoachesLoaded"
	EvtOrderChanged   EventType = "OrderChanged"
	EvtModeChanged    EventType = "ModeChanged"
	EvtDraftStarted   EventType = "DraftStarted"
	EvtPlayersPicked  EventType = "PlayersPicked"
	EvtTurnPassed     EventType = "TurnPassed"
	EvtTurnSkipped    EventType = "TurnSkipped"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtTurnUndone     EventType = "TurnUndone"
	EvtDraftCompleted EventType = "DraftCompleted"
)

type Event struct {
	Type      EventType `json:"type"`
	CoachID   string    `json:"coach_id,omitempty"`
	PlayerIDs []string  `json:"player_ids,omitempty"`
	Cursor    int       `json:"cursor"`
}

// Apply validates cmd against s and returns the resulting events and state.
// On error the returned state is s, unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseComplete && cmd.Type != CmdLoadPlayers && cmd.Type != CmdLoadCoaches {
		return nil, s, ErrDraftCompleted
	}

	newState := s.Clone()

	switch cmd.Type {
	case CmdLoadPlayers:
		if s.Phase == PhaseDrafting {
			return nil, s, ErrNotInSetup
		}
		newState.Phase = PhaseSetup
		newState.Players = newPlayers(cmd.Players)
		resetRosters(&newState)
		return []Event{{Type: EvtPlayersLoaded}}, newState, nil

	case CmdLoadCoaches:
		if s.Phase == PhaseDrafting {
			return nil, s, ErrNotInSetup
		}
		newState.Phase = PhaseSetup
		newState.Coaches = newCoaches(cmd.Coaches)
		newState.Order = coachIDs(newState.Coaches)
		resetRosters(&newState)
		newState.Cycle = BuildCycle(newState.Order, newState.Mode)
		return []Event{{Type: EvtCoachesLoaded}}, newState, nil

	case CmdSetOrder:
		if !isPermutation(s.Order, cmd.Order) {
			return nil, s, ErrInvalidOrder
		}
		newState.Order = slices.Clone(cmd.Order)
		newState.Cycle = BuildCycle(newState.Order, newState.Mode)
		return []Event{{Type: EvtOrderChanged, Cursor: newState.Cursor}}, newState, nil

	case CmdMoveCoach:
		if cmd.From < 0 || cmd.From >= len(s.Order) || cmd.To < 0 || cmd.To >= len(s.Order) {
			return nil, s, ErrInvalidOrder
		}
		item := newState.Order[cmd.From]
		newState.Order = slices.Delete(newState.Order, cmd.From, cmd.From+1)
		newState.Order = slices.Insert(newState.Order, cmd.To, item)
		newState.Cycle = BuildCycle(newState.Order, newState.Mode)
		return []Event{{Type: EvtOrderChanged, Cursor: newState.Cursor}}, newState, nil

	case CmdSetMode:
		if cmd.Mode != ModeLinear && cmd.Mode != ModeSnake {
			return nil, s, ErrInvalidMode
		}
		// The cursor is kept, so a mid-draft switch reinterprets it against the new cycle.
		newState.Mode = cmd.Mode
		newState.Cycle = BuildCycle(newState.Order, newState.Mode)
		return []Event{{Type: EvtModeChanged, Cursor: newState.Cursor}}, newState, nil

	case CmdStartDraft:
		if s.Phase != PhaseSetup {
			return nil, s, ErrNotInSetup
		}
		if len(s.Coaches) == 0 || len(s.Players) == 0 {
			return nil, s, ErrNothingLoaded
		}
		newState.Phase = PhaseDrafting
		newState.Cycle = BuildCycle(newState.Order, newState.Mode)
		newState.Cursor = 0
		newState.History = []HistoryEntry{}
		events := []Event{{Type: EvtDraftStarted}}
		events = append(events, resolveTurn(&newState)...)
		return events, newState, nil

	case CmdPickPlayer:
		if s.Phase != PhaseDrafting {
			return nil, s, ErrNotDrafting
		}
		coach := currentCoach(&newState)
		if coach == nil {
			return nil, s, ErrNoCurrentCoach
		}
		player := findPlayer(&newState, cmd.PlayerID)
		if player == nil || player.Assigned {
			return nil, s, ErrPlayerUnavailable
		}

		entry := HistoryEntry{CoachID: coach.ID, Picks: []string{}}
		if player.Group != "" {
			group := player.Group
			for i := range newState.Players {
				p := &newState.Players[i]
				if p.Group == group && !p.Assigned {
					p.Assigned = true
					coach.Roster = append(coach.Roster, p.ID)
					entry.Picks = append(entry.Picks, p.ID)
				}
			}
			entry.SetSkip = !coach.SkipNext
			coach.SkipNext = true
		} else {
			player.Assigned = true
			coach.Roster = append(coach.Roster, player.ID)
			entry.Picks = append(entry.Picks, player.ID)
		}
		newState.History = append(newState.History, entry)

		events := []Event{
			{Type: EvtPlayersPicked, CoachID: coach.ID, PlayerIDs: slices.Clone(entry.Picks), Cursor: newState.Cursor},
		}

		// Completion is checked before advancing: the terminal pick keeps the cursor.
		if len(Available(newState)) == 0 {
			newState.Phase = PhaseComplete
			events = append(events, Event{Type: EvtDraftCompleted, Cursor: newState.Cursor})
			return events, newState, nil
		}

		events = append(events, advanceTurn(&newState)...)
		return events, newState, nil

	case CmdPassTurn:
		if s.Phase != PhaseDrafting {
			return nil, s, ErrNotDrafting
		}
		coach := currentCoach(&newState)
		if coach == nil {
			return nil, s, ErrNoCurrentCoach
		}
		newState.History = append(newState.History, HistoryEntry{CoachID: coach.ID, Picks: []string{}})
		events := []Event{{Type: EvtTurnPassed, CoachID: coach.ID, Cursor: newState.Cursor}}
		events = append(events, advanceTurn(&newState)...)
		return events, newState, nil

	case CmdUndo:
		if s.Phase != PhaseDrafting {
			return nil, s, ErrNotDrafting
		}
		if len(s.History) == 0 {
			return nil, s, nil
		}
		last := newState.History[len(newState.History)-1]
		newState.History = newState.History[:len(newState.History)-1]

		coach := findCoach(&newState, last.CoachID)
		for _, pid := range last.Picks {
			if p := findPlayer(&newState, pid); p != nil {
				p.Assigned = false
			}
			if coach != nil {
				coach.Roster = slices.DeleteFunc(coach.Roster, func(id string) bool { return id == pid })
			}
		}
		// A flag that the undone pick raised and that is still pending goes with it.
		// A flag consumed by a skip is not restored.
		if coach != nil && last.SetSkip {
			coach.SkipNext = false
		}

		newState.Cursor = retreat(newState.Cursor, len(newState.Cycle))
		events := []Event{{Type: EvtTurnUndone, CoachID: last.CoachID, PlayerIDs: slices.Clone(last.Picks), Cursor: newState.Cursor}}
		events = append(events, resolveTurn(&newState)...)
		return events, newState, nil

	case CmdEndDraft:
		if s.Phase != PhaseDrafting {
			return nil, s, ErrNotDrafting
		}
		newState.Phase = PhaseComplete
		return []Event{{Type: EvtDraftCompleted, Cursor: newState.Cursor}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func currentCoach(s *State) *Coach {
	if len(s.Cycle) == 0 {
		return nil
	}
	return findCoach(s, s.Cycle[s.Cursor%len(s.Cycle)])
}

func findCoach(s *State, id string) *Coach {
	for i := range s.Coaches {
		if s.Coaches[i].ID == id {
			return &s.Coaches[i]
		}
	}
	return nil
}

func findPlayer(s *State, id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

func isPermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	a := slices.Clone(current)
	b := slices.Clone(proposed)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b) && len(slices.Compact(b)) == len(current)
}
