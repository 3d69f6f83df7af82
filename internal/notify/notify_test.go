package notify

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent []message
	err  error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, message{subject: subject, data: data})
	return nil
}

func TestPublisher_RenderPublishesEachEvent(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "coachdraft", zap.NewNop())
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	p.Render("ABC123", lobby.Snapshot{Version: 4}, []engine.Event{
		{Type: engine.EvtPlayersPicked, CoachID: "0", PlayerIDs: []string{"0", "1"}},
		{Type: engine.EvtTurnAdvanced, Cursor: 1},
	})

	require.Len(t, conn.sent, 2)
	assert.Equal(t, "coachdraft.ABC123.playerspicked", conn.sent[0].subject)
	assert.Equal(t, "coachdraft.ABC123.turnadvanced", conn.sent[1].subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(conn.sent[0].data, &env))
	assert.Equal(t, "ABC123", env.Draft)
	assert.Equal(t, 4, env.Version)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, 2026, env.Timestamp.Year())

	var evt engine.Event
	require.NoError(t, json.Unmarshal(env.Payload, &evt))
	assert.Equal(t, []string{"0", "1"}, evt.PlayerIDs)
}

func TestPublisher_ExportPublishesRosters(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "league", nil)

	p.ShowTeams("ABC123", nil)
	p.Export("ABC123", []engine.TeamRoster{{CoachID: "0", CoachName: "X", Players: []engine.RosterPlayer{{Name: "Carl"}}}})

	require.Len(t, conn.sent, 1)
	assert.Equal(t, "league.ABC123.rosters", conn.sent[0].subject)
	assert.Contains(t, string(conn.sent[0].data), `"coach_name":"X"`)
}

func TestPublisher_PublishErrorIsSwallowed(t *testing.T) {
	p := NewPublisher(&fakeConn{err: errors.New("down")}, "coachdraft", zap.NewNop())
	assert.NotPanics(t, func() {
		p.Export("ABC123", nil)
	})
}

func TestConnect_skipIfNoNATSURL(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping nats test")
	}
	nc, p, err := Connect(url, "coachdraft-test", zap.NewNop())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("coachdraft-test.T1.>")
	require.NoError(t, err)

	p.Export("T1", nil)
	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "coachdraft-test.T1.rosters", msg.Subject)
}
