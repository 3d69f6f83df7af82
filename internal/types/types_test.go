package types

import (
	"encoding/json"
	"testing"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCommand(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		want engine.Command
		ok   bool
	}{
		{name: "pick", msg: ClientMessage{Type: "Pick", PlayerID: "3"}, want: engine.Command{Type: engine.CmdPickPlayer, PlayerID: "3"}, ok: true},
		{name: "pass", msg: ClientMessage{Type: "Pass"}, want: engine.Command{Type: engine.CmdPassTurn}, ok: true},
		{name: "snake", msg: ClientMessage{Type: "SetMode", Mode: "snake"}, want: engine.Command{Type: engine.CmdSetMode, Mode: engine.ModeSnake}, ok: true},
		{name: "move", msg: ClientMessage{Type: "MoveCoach", From: 2, To: 0}, want: engine.Command{Type: engine.CmdMoveCoach, From: 2, To: 0}, ok: true},
		{name: "unknown", msg: ClientMessage{Type: "Trade"}, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := ToCommand(tc.msg)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, cmd)
		})
	}
}

func TestNewStateView_MidDraft(t *testing.T) {
	s, err := engine.Initialize(
		[]engine.Row{{Name: "Alice", Group: "g1"}, {Name: "Bob", Group: "g1"}, {Name: "Carl"}},
		[]engine.Row{{Name: "X"}, {Name: "Y"}},
		engine.ModeSnake,
	)
	require.NoError(t, err)
	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdStartDraft})
	require.NoError(t, err)
	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdPickPlayer, PlayerID: "0"})
	require.NoError(t, err)

	v := NewStateView("ABC123", 2, s)

	assert.Equal(t, "drafting", v.Phase)
	require.NotNil(t, v.CurrentCoach)
	assert.Equal(t, "Y", v.CurrentCoach.Name)
	assert.True(t, v.CanUndo)
	assert.Equal(t, []string{"0", "1", "1", "0"}, v.Cycle)
	require.Len(t, v.Available, 1)
	assert.Equal(t, "Carl", v.Available[0].Name)
	assert.True(t, v.Rosters[0].SkipNext)
	assert.Len(t, v.Rosters[0].Players, 2)

	raw, err := json.Marshal(ServerMessage{Type: "StateSnapshot", Version: 2, State: v})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"current_coach":{"id":"1","name":"Y","skip_next":false}`)
}

func TestNewStateView_SetupHasNoCurrentCoach(t *testing.T) {
	v := NewStateView("ABC123", 0, engine.NewEmptyState())
	assert.Nil(t, v.CurrentCoach)
	assert.False(t, v.CanUndo)
	assert.Equal(t, 1, v.Round)
	assert.Empty(t, v.Rosters)
}
