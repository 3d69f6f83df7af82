package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/hub"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/DoyleJ11/coach-draft/internal/metrics"
	"github.com/DoyleJ11/coach-draft/internal/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraftServer(t *testing.T, allowedOrigins ...string) (*httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, lobby.Options{})
	initial, err := engine.Initialize(
		[]engine.Row{{Name: "Alice"}, {Name: "Bob"}},
		[]engine.Row{{Name: "X"}, {Name: "Y"}},
		engine.ModeLinear,
	)
	require.NoError(t, err)

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- hub.CreateLobby{Code: "ABC123", State: initial, Reply: reply}
	require.NotNil(t, <-reply)

	srv := httptest.NewServer(Handler(h, metrics.New(), nil, allowedOrigins))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, cm types.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(cm)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

func TestHandler_MissingCode(t *testing.T) {
	srv, _ := newDraftServer(t)
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_UnknownDraft(t *testing.T) {
	srv, _ := newDraftServer(t)
	resp, err := http.Get(srv.URL + "?code=NOPE00")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_SnapshotsAndErrors(t *testing.T) {
	_, wsURL := newDraftServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL+"?code=ABC123", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readMessage(t, ctx, conn)
	assert.Equal(t, "StateSnapshot", first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, "setup", first.State.Phase)
	assert.Len(t, first.State.Available, 2)

	send(t, ctx, conn, types.ClientMessage{Type: "Start"})
	started := readMessage(t, ctx, conn)
	assert.Equal(t, 1, started.Version)
	require.NotNil(t, started.State.CurrentCoach)
	assert.Equal(t, "X", started.State.CurrentCoach.Name)

	send(t, ctx, conn, types.ClientMessage{Type: "Pick", PlayerID: "99"})
	rejected := readMessage(t, ctx, conn)
	assert.Equal(t, "Error", rejected.Type)
	assert.Equal(t, engine.ErrPlayerUnavailable.Error(), rejected.Error)

	send(t, ctx, conn, types.ClientMessage{Type: "Dance"})
	unknown := readMessage(t, ctx, conn)
	assert.Equal(t, "Error", unknown.Type)
	assert.Equal(t, "unknown type", unknown.Error)

	send(t, ctx, conn, types.ClientMessage{Type: "Pick", PlayerID: "0"})
	picked := readMessage(t, ctx, conn)
	assert.Equal(t, 2, picked.Version)
	assert.Equal(t, "Y", picked.State.CurrentCoach.Name)
}

func TestOriginPatterns(t *testing.T) {
	got := OriginPatterns([]string{"*", "https://app.example.com", " http://localhost:5173/ ", ""})
	assert.Equal(t, []string{"*", "app.example.com", "localhost:5173"}, got)
}

func TestHandler_CrossOriginUpgrade(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	origin := func(o string) *websocket.DialOptions {
		return &websocket.DialOptions{HTTPHeader: http.Header{"Origin": {o}}}
	}

	_, closedURL := newDraftServer(t)
	_, resp, err := websocket.Dial(ctx, closedURL+"?code=ABC123", origin("https://elsewhere.example"))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, openURL := newDraftServer(t, "https://app.example.com")
	conn, _, err := websocket.Dial(ctx, openURL+"?code=ABC123", origin("https://app.example.com"))
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	first := readMessage(t, ctx, conn)
	assert.Equal(t, "StateSnapshot", first.Type)
}
