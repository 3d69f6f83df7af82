package hub

import (
	"context"
	"slices"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

type CreateLobby struct {
	Code  string
	State engine.State
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code  string
	State engine.State // only used if creation happens
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ListLobbies struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Hub owns every live draft lobby. Lobbies inherit opts with their own code filled in.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    lobby.Options
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts lobby.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby, EnsureLobby:
				code, state, reply := lobbyRequest(msg)
				if lb := h.lobbies[code]; lb != nil {
					reply <- lb
					break
				}
				reply <- h.create(code, state)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					stop(lb)
					delete(h.lobbies, msg.Code)
					h.opts.Logger.Info("draft removed", zap.String("draft", msg.Code))
				}

			case ListLobbies:
				codes := make([]string, 0, len(h.lobbies))
				for code := range h.lobbies {
					codes = append(codes, code)
				}
				slices.Sort(codes)
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func lobbyRequest(m HubMsg) (string, engine.State, chan *lobby.Lobby) {
	switch msg := m.(type) {
	case CreateLobby:
		return msg.Code, msg.State, msg.Reply
	case EnsureLobby:
		return msg.Code, msg.State, msg.Reply
	}
	return "", engine.State{}, nil
}

func (h *Hub) create(code string, state engine.State) *lobby.Lobby {
	opts := h.opts
	opts.Code = code
	lb := lobby.NewLobby(h.ctx, state, opts)
	h.lobbies[code] = lb
	h.opts.Logger.Info("draft created", zap.String("draft", code))
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		stop(lb)
	}
	clear(h.lobbies)
	h.cancel()
}

func stop(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// Get looks up a lobby by code; nil when unknown or the hub is gone.
func (h *Hub) Get(ctx context.Context, code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	select {
	case h.inbox <- GetLobby{Code: code, Reply: reply}:
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
	select {
	case lb := <-reply:
		return lb
	case <-h.ctx.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
}
