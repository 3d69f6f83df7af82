// Package types holds the JSON shapes the draft server sends to clients.
package types

// StateView is the client-facing snapshot of one draft.
type StateView struct {
	Code         string       `json:"code"`
	Version      int          `json:"version"`
	Phase        string       `json:"phase"`
	Mode         string       `json:"mode"`
	Round        int          `json:"round"`
	Cursor       int          `json:"cursor"`
	CurrentCoach *CoachView   `json:"current_coach,omitempty"`
	Order        []CoachView  `json:"order"`
	Cycle        []string     `json:"cycle"`
	Available    []PlayerView `json:"available"`
	Rosters      []RosterView `json:"rosters"`
	CanUndo      bool         `json:"can_undo"`
}

type CoachView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SkipNext bool   `json:"skip_next"`
}

type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

// RosterView is one coach's final (or in-progress) team.
type RosterView struct {
	CoachID   string       `json:"coach_id"`
	CoachName string       `json:"coach_name"`
	SkipNext  bool         `json:"skip_next"`
	Players   []PlayerView `json:"players"`
}
