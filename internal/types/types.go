package types

import (
	"github.com/DoyleJ11/coach-draft/internal/engine"
	pub "github.com/DoyleJ11/coach-draft/pkg/types"
)

type ClientMessage struct {
	Type     string   `json:"type"` // "Pick" | "Pass" | "Undo" | "Start" | "End" | "SetMode" | "SetOrder" | "MoveCoach"
	PlayerID string   `json:"player_id,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Order    []string `json:"order,omitempty"`
	From     int      `json:"from,omitempty"`
	To       int      `json:"to,omitempty"`
}

type ServerMessage struct {
	Type    string         `json:"type"` // "StateSnapshot" | "Error"
	Version int            `json:"version,omitempty"`
	State   *pub.StateView `json:"state,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ToCommand maps a client message onto an engine command.
func ToCommand(m ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "Pick":
		return engine.Command{Type: engine.CmdPickPlayer, PlayerID: m.PlayerID}, true
	case "Pass":
		return engine.Command{Type: engine.CmdPassTurn}, true
	case "Undo":
		return engine.Command{Type: engine.CmdUndo}, true
	case "Start":
		return engine.Command{Type: engine.CmdStartDraft}, true
	case "End":
		return engine.Command{Type: engine.CmdEndDraft}, true
	case "SetMode":
		return engine.Command{Type: engine.CmdSetMode, Mode: engine.Mode(m.Mode)}, true
	case "SetOrder":
		return engine.Command{Type: engine.CmdSetOrder, Order: m.Order}, true
	case "MoveCoach":
		return engine.Command{Type: engine.CmdMoveCoach, From: m.From, To: m.To}, true
	default:
		return engine.Command{}, false
	}
}

// NewStateView flattens engine state into the client view.
func NewStateView(code string, version int, s engine.State) *pub.StateView {
	coaches := make(map[string]engine.Coach, len(s.Coaches))
	for _, c := range s.Coaches {
		coaches[c.ID] = c
	}
	players := make(map[string]engine.Player, len(s.Players))
	for _, p := range s.Players {
		players[p.ID] = p
	}

	v := &pub.StateView{
		Code:      code,
		Version:   version,
		Phase:     string(s.Phase),
		Mode:      string(s.Mode),
		Round:     engine.Round(s),
		Cursor:    s.Cursor,
		Order:     make([]pub.CoachView, 0, len(s.Order)),
		Cycle:     append([]string{}, s.Cycle...),
		Available: []pub.PlayerView{},
		Rosters:   make([]pub.RosterView, 0, len(s.Coaches)),
		CanUndo:   s.Phase == engine.PhaseDrafting && len(s.History) > 0,
	}

	if s.Phase == engine.PhaseDrafting {
		if c, ok := engine.CurrentCoach(s); ok {
			v.CurrentCoach = &pub.CoachView{ID: c.ID, Name: c.Name, SkipNext: c.SkipNext}
		}
	}
	for _, id := range s.Order {
		c := coaches[id]
		v.Order = append(v.Order, pub.CoachView{ID: c.ID, Name: c.Name, SkipNext: c.SkipNext})
	}
	for _, p := range engine.Available(s) {
		v.Available = append(v.Available, playerView(p))
	}
	for _, c := range s.Coaches {
		r := pub.RosterView{CoachID: c.ID, CoachName: c.Name, SkipNext: c.SkipNext, Players: []pub.PlayerView{}}
		for _, pid := range c.Roster {
			r.Players = append(r.Players, playerView(players[pid]))
		}
		v.Rosters = append(v.Rosters, r)
	}
	return v
}

func playerView(p engine.Player) pub.PlayerView {
	return pub.PlayerView{ID: p.ID, Name: p.Name, Group: p.Group}
}
