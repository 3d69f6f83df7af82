package lobby

import (
	"context"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/metrics"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type Msg interface{ isLobbyMsg() }

// FromClient carries one engine command. Reply, when set, must be buffered.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Deferred completion steps, delivered back through the inbox by clock timers.
// epoch ties each step to the completion that scheduled it.
type showTeams struct{ epoch int }

func (showTeams) isLobbyMsg() {}

type exportTeams struct{ epoch int }

func (exportTeams) isLobbyMsg() {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Result struct {
	Snapshot Snapshot
	Events   []engine.Event
	Err      error
}

type Options struct {
	Code        string
	Hooks       Hooks
	Clock       clockwork.Clock
	TeamsDelay  time.Duration
	ExportDelay time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc

	hooks       Hooks
	clock       clockwork.Clock
	teamsDelay  time.Duration
	exportDelay time.Duration
	timers      []clockwork.Timer
	epoch       int
	log         *zap.Logger
	metrics     *metrics.Metrics
}

func NewLobby(parent context.Context, initial engine.State, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Hooks == nil {
		opts.Hooks = NopHooks{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:        opts.Code,
		inbox:       make(chan Msg, 64), // Small buffer
		state:       initial,
		version:     0,
		clients:     make(map[string]chan Snapshot),
		ctx:         ctx,
		cancel:      cancel,
		hooks:       opts.Hooks,
		clock:       opts.Clock,
		teamsDelay:  opts.TeamsDelay,
		exportDelay: opts.ExportDelay,
		log:         opts.Logger.With(zap.String("draft", opts.Code)),
		metrics:     opts.Metrics,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, l.snapshot())

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				l.apply(msg)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Clone(),
				}

			case showTeams:
				if msg.epoch != l.epoch || l.state.Phase != engine.PhaseComplete {
					break
				}
				l.hooks.ShowTeams(l.code, engine.Rosters(l.state))
				l.after(l.exportDelay, exportTeams{epoch: msg.epoch})

			case exportTeams:
				if msg.epoch != l.epoch || l.state.Phase != engine.PhaseComplete {
					break
				}
				l.hooks.Export(l.code, engine.Rosters(l.state))
				l.timers = nil

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(msg FromClient) {
	events, newState, err := engine.Apply(l.state, msg.Cmd)
	if l.metrics != nil {
		l.metrics.RecordCommand(msg.Cmd.Type, err)
	}
	if err != nil {
		l.log.Debug("command rejected", zap.String("command", string(msg.Cmd.Type)), zap.Error(err))
		reply(msg.Reply, Result{Snapshot: l.snapshot(), Err: err})
		return
	}
	if len(events) == 0 {
		// Accepted no-op (undo with nothing to undo).
		reply(msg.Reply, Result{Snapshot: l.snapshot()})
		return
	}

	l.state = newState
	l.version++
	snap := l.snapshot()
	if l.metrics != nil {
		l.metrics.RecordEvents(events)
	}
	l.broadcast(snap)
	l.hooks.Render(l.code, snap, events)
	reply(msg.Reply, Result{Snapshot: snap, Events: events})

	if engine.ContainsEvent(events, engine.EvtPlayersLoaded) || engine.ContainsEvent(events, engine.EvtCoachesLoaded) {
		l.cancelDeferred()
	}
	if engine.ContainsEvent(events, engine.EvtDraftCompleted) {
		l.after(l.teamsDelay, showTeams{epoch: l.epoch})
	}
}

// cancelDeferred drops completion steps still pending from an earlier draft.
func (l *Lobby) cancelDeferred() {
	for _, t := range l.timers {
		t.Stop()
	}
	l.timers = nil
	l.epoch++
}

// after delivers m to the loop once d has elapsed on the lobby clock.
func (l *Lobby) after(d time.Duration, m Msg) {
	t := l.clock.AfterFunc(d, func() {
		select {
		case l.inbox <- m:
		case <-l.ctx.Done():
		}
	})
	l.timers = append(l.timers, t)
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, State: l.state.Clone()}
}

func (l *Lobby) shutdown() {
	l.cancelDeferred()
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		l.send(id, ch, snap)
	}
}

func (l *Lobby) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		l.log.Debug("dropping slow client", zap.String("client", id))
		close(ch)
		delete(l.clients, id)
	}
}

func reply(ch chan Result, r Result) {
	if ch != nil {
		ch <- r
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby loop has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

// Do sends cmd and waits for the lobby's verdict.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (Result, error) {
	replyCh := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: replyCh}:
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-replyCh:
		return r, r.Err
	case <-l.ctx.Done():
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// View returns the current state without racing the loop.
func (l *Lobby) View(ctx context.Context) (View, error) {
	replyCh := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: replyCh}:
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case v := <-replyCh:
		return v, nil
	case <-l.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
