package lobby

import (
	"errors"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("lobby closed")

// Hooks are the render callbacks a lobby drives. Render runs after every accepted
// command; ShowTeams and Export run deferred once the draft completes. All three are
// called from the lobby goroutine and must not block on it.
type Hooks interface {
	Render(code string, snap Snapshot, events []engine.Event)
	ShowTeams(code string, rosters []engine.TeamRoster)
	Export(code string, rosters []engine.TeamRoster)
}

type NopHooks struct{}

func (NopHooks) Render(string, Snapshot, []engine.Event) {}
func (NopHooks) ShowTeams(string, []engine.TeamRoster)   {}
func (NopHooks) Export(string, []engine.TeamRoster)      {}

// MultiHooks fans each callback out in order.
type MultiHooks []Hooks

func (m MultiHooks) Render(code string, snap Snapshot, events []engine.Event) {
	for _, h := range m {
		h.Render(code, snap, events)
	}
}

func (m MultiHooks) ShowTeams(code string, rosters []engine.TeamRoster) {
	for _, h := range m {
		h.ShowTeams(code, rosters)
	}
}

func (m MultiHooks) Export(code string, rosters []engine.TeamRoster) {
	for _, h := range m {
		h.Export(code, rosters)
	}
}

type LogHooks struct {
	Logger *zap.Logger
}

func (h LogHooks) Render(code string, snap Snapshot, events []engine.Event) {
	for _, e := range events {
		h.Logger.Info("draft event",
			zap.String("draft", code),
			zap.Int("version", snap.Version),
			zap.String("event", string(e.Type)),
			zap.String("coach", e.CoachID),
			zap.Strings("players", e.PlayerIDs),
			zap.Int("cursor", e.Cursor),
		)
	}
}

func (h LogHooks) ShowTeams(code string, rosters []engine.TeamRoster) {
	h.Logger.Info("draft teams ready", zap.String("draft", code), zap.Int("teams", len(rosters)))
}

func (h LogHooks) Export(code string, rosters []engine.TeamRoster) {
	players := 0
	for _, r := range rosters {
		players += len(r.Players)
	}
	h.Logger.Info("draft exported", zap.String("draft", code), zap.Int("teams", len(rosters)), zap.Int("players", players))
}
