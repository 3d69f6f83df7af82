package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further snapshots possible
			return
		}
		t.Fatalf("expected no snapshot within %v, but got: %+v", within, s)
	case <-time.After(within):
		// good: no snapshot
	}
}

func recv[T any](t *testing.T, ch <-chan T, within time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		var zero T
		t.Fatalf("timed out waiting for %T", zero)
		return zero
	}
}

type recordingHooks struct {
	renders chan []engine.Event
	teams   chan []engine.TeamRoster
	exports chan []engine.TeamRoster
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{
		renders: make(chan []engine.Event, 16),
		teams:   make(chan []engine.TeamRoster, 4),
		exports: make(chan []engine.TeamRoster, 4),
	}
}

func (h *recordingHooks) Render(_ string, _ Snapshot, events []engine.Event) { h.renders <- events }
func (h *recordingHooks) ShowTeams(_ string, r []engine.TeamRoster)          { h.teams <- r }
func (h *recordingHooks) Export(_ string, r []engine.TeamRoster)             { h.exports <- r }

func exampleState(t *testing.T) engine.State {
	t.Helper()
	s, err := engine.Initialize(
		[]engine.Row{{Name: "Alice", Group: "g1"}, {Name: "Bob", Group: "g1"}, {Name: "Carl"}},
		[]engine.Row{{Name: "X"}, {Name: "Y"}},
		engine.ModeLinear,
	)
	require.NoError(t, err)
	return s
}

func startLobby(t *testing.T, initial engine.State, opts Options) *Lobby {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	opts.Code = "TEST01"
	return NewLobby(ctx, initial, opts)
}

func TestLobby_Start_BroadcastsSnapshotAndVersionIncrements(t *testing.T) {
	l := startLobby(t, exampleState(t), Options{})

	clientOut := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	first := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseSetup, first.State.Phase)

	res, err := l.Do(context.Background(), engine.Command{Type: engine.CmdStartDraft})
	require.NoError(t, err)
	assert.True(t, engine.ContainsEvent(res.Events, engine.EvtDraftStarted))

	next := recvSnapshot(t, clientOut, 100*time.Millisecond)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, engine.PhaseDrafting, next.State.Phase)

	l.Inbox() <- Shutdown{}
}

func TestLobby_RejectedCommandKeepsVersion(t *testing.T) {
	hooks := newRecordingHooks()
	l := startLobby(t, exampleState(t), Options{Hooks: hooks})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: out}
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	res, err := l.Do(context.Background(), engine.Command{Type: engine.CmdPickPlayer, PlayerID: "0"})
	require.ErrorIs(t, err, engine.ErrNotDrafting)
	assert.Equal(t, 0, res.Snapshot.Version)

	recvNoSnapshot(t, out, 100*time.Millisecond)
	assert.Empty(t, hooks.renders)
}

func TestLobby_UndoWithEmptyHistoryIsSilent(t *testing.T) {
	l := startLobby(t, exampleState(t), Options{})
	_, err := l.Do(context.Background(), engine.Command{Type: engine.CmdStartDraft})
	require.NoError(t, err)

	res, err := l.Do(context.Background(), engine.Command{Type: engine.CmdUndo})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Equal(t, 1, res.Snapshot.Version)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l := startLobby(t, exampleState(t), Options{})

	clientOut := make(chan Snapshot, 1)
	l.Inbox() <- Join{ClientID: "ch1", Outbox: clientOut}

	_, err := l.Do(context.Background(), engine.Command{Type: engine.CmdStartDraft})
	require.NoError(t, err)

	view, err := l.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients, "expected slow client to be dropped")
}

func TestLobby_CompletionRunsDeferredTeamsThenExport(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hooks := newRecordingHooks()
	l := startLobby(t, exampleState(t), Options{
		Hooks:       hooks,
		Clock:       clock,
		TeamsDelay:  50 * time.Millisecond,
		ExportDelay: 150 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, cmd := range []engine.Command{
		{Type: engine.CmdStartDraft},
		{Type: engine.CmdPickPlayer, PlayerID: "0"},
		{Type: engine.CmdPickPlayer, PlayerID: "2"},
	} {
		_, err := l.Do(ctx, cmd)
		require.NoError(t, err)
	}

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Empty(t, hooks.teams, "teams must wait for the clock")
	clock.Advance(50 * time.Millisecond)

	teams := recv(t, hooks.teams, time.Second)
	require.Len(t, teams, 2)
	assert.Equal(t, "X", teams[0].CoachName)
	assert.Equal(t, []engine.RosterPlayer{{Name: "Alice", Group: "g1"}, {Name: "Bob", Group: "g1"}}, teams[0].Players)
	assert.Equal(t, []engine.RosterPlayer{{Name: "Carl"}}, teams[1].Players)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Empty(t, hooks.exports)
	clock.Advance(150 * time.Millisecond)

	exported := recv(t, hooks.exports, time.Second)
	assert.Equal(t, teams, exported)
}

func TestLobby_ReloadBeforeDeferredStepsSkipsThem(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hooks := newRecordingHooks()
	l := startLobby(t, exampleState(t), Options{Hooks: hooks, Clock: clock, TeamsDelay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := l.Do(ctx, engine.Command{Type: engine.CmdStartDraft})
	require.NoError(t, err)
	_, err = l.Do(ctx, engine.Command{Type: engine.CmdEndDraft})
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	_, err = l.Do(ctx, engine.Command{Type: engine.CmdLoadPlayers, Players: []engine.Row{{Name: "Zed"}}})
	require.NoError(t, err)

	clock.Advance(time.Second)

	assert.Never(t, func() bool { return len(hooks.teams) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestLobby_LeaveClosesOutbox(t *testing.T) {
	l := startLobby(t, exampleState(t), Options{})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond)

	l.Inbox() <- Leave{ClientID: "c1"}
	view, err := l.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, view.NumClients)

	select {
	case _, ok := <-out:
		assert.False(t, ok, "outbox should be closed after Leave")
	case <-time.After(time.Second):
		t.Fatalf("outbox still open after Leave")
	}

	// A second Leave for the same client is a no-op.
	l.Inbox() <- Leave{ClientID: "c1"}
	_, err = l.View(context.Background())
	require.NoError(t, err)
}

func TestLobby_RedraftAfterReloadExportsOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hooks := newRecordingHooks()
	l := startLobby(t, exampleState(t), Options{
		Hooks:       hooks,
		Clock:       clock,
		TeamsDelay:  50 * time.Millisecond,
		ExportDelay: 150 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, cmd := range []engine.Command{
		{Type: engine.CmdStartDraft},
		{Type: engine.CmdEndDraft},
		{Type: engine.CmdLoadPlayers, Players: []engine.Row{{Name: "Zed"}}},
		{Type: engine.CmdStartDraft},
		{Type: engine.CmdPickPlayer, PlayerID: "0"},
	} {
		_, err := l.Do(ctx, cmd)
		require.NoError(t, err)
	}

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(50 * time.Millisecond)

	teams := recv(t, hooks.teams, time.Second)
	require.Len(t, teams, 2)
	assert.Equal(t, []engine.RosterPlayer{{Name: "Zed"}}, teams[0].Players)
	assert.Never(t, func() bool { return len(hooks.teams) > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(150 * time.Millisecond)

	_ = recv(t, hooks.exports, time.Second)
	assert.Never(t, func() bool { return len(hooks.exports) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestLobby_Shutdown_ClosesClientsAndRejectsCommands(t *testing.T) {
	l := startLobby(t, exampleState(t), Options{})

	out := make(chan Snapshot, 2)
	l.Inbox() <- Join{ClientID: "c1", Outbox: out}
	_ = recvSnapshot(t, out, 500*time.Millisecond) // drain join snapshot

	l.Inbox() <- Shutdown{}
	recv(t, l.Done(), time.Second)

	_, ok := <-out
	assert.False(t, ok, "outbox should be closed")

	_, err := l.Do(context.Background(), engine.Command{Type: engine.CmdStartDraft})
	assert.ErrorIs(t, err, ErrClosed)
}
