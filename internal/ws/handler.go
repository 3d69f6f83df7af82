package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/hub"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/DoyleJ11/coach-draft/internal/metrics"
	"github.com/DoyleJ11/coach-draft/internal/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
)

// Handler upgrades /ws?code=XXXXXX and attaches the connection to that draft.
// allowedOrigins takes the same values as the CORS config; empty means same-origin only.
func Handler(h *hub.Hub, m *metrics.Metrics, log *zap.Logger, allowedOrigins []string) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	patterns := OriginPatterns(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb := h.Get(r.Context(), code)
		if lb == nil {
			http.Error(w, "draft not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: patterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("draft", code), zap.String("client", clientID))
		if m != nil {
			m.ClientConnected()
			defer m.ClientDisconnected()
		}

		out := make(chan lobby.Snapshot, 8)
		select {
		case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		case <-lb.Done():
			return
		}
		defer func() {
			select {
			case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
			case <-lb.Done():
			}
		}()
		clog.Info("client joined")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine; a closed outbox means the lobby dropped us or shut down.
		go func() {
			defer cancel()
			for snap := range out {
				msg := types.ServerMessage{
					Type:    "StateSnapshot",
					Version: snap.Version,
					State:   types.NewStateView(code, snap.Version, snap.State),
				}
				if err := write(ctx, conn, msg); err != nil {
					clog.Debug("write failed", zap.Error(err))
					return
				}
			}
		}()

		for {
			readCtx, readCancel := context.WithTimeout(ctx, readTimeout)
			_, data, err := conn.Read(readCtx)
			readCancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Info("client left")
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}

			cmd, ok := types.ToCommand(cm)
			if !ok {
				_ = write(ctx, conn, types.ServerMessage{Type: "Error", Error: "unknown type"})
				continue
			}

			// Accepted commands reach us through the outbox broadcast; only rejections are echoed.
			if _, err := lb.Do(ctx, cmd); err != nil {
				_ = write(ctx, conn, types.ServerMessage{Type: "Error", Error: err.Error()})
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

// OriginPatterns turns CORS origins ("https://app.example.com", "*") into the host
// patterns websocket.Accept matches against.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		o = strings.TrimSuffix(o, "/")
		if o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
