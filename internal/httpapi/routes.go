package httpapi

import (
	"context"
	"net/http"

	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/hub"
	"github.com/DoyleJ11/coach-draft/internal/metrics"
	"github.com/DoyleJ11/coach-draft/internal/store"
	"github.com/DoyleJ11/coach-draft/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Archive is the read side of the roster archive.
type Archive interface {
	List(ctx context.Context, code string) ([]store.DraftRecord, error)
}

type Deps struct {
	Hub         *hub.Hub
	Metrics     *metrics.Metrics
	Archive     Archive // optional
	Logger      *zap.Logger
	DefaultMode engine.Mode
	// AllowedOrigins gates WebSocket upgrades from other origins.
	AllowedOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.DefaultMode == "" {
		d.DefaultMode = engine.ModeLinear
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(d.Logger))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	r.Get("/ws", ws.Handler(d.Hub, d.Metrics, d.Logger, d.AllowedOrigins))

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", CreateDraft(d.Hub, d.DefaultMode))
		r.Get("/", ListDrafts(d.Hub))

		r.Route("/{code}", func(r chi.Router) {
			r.Use(LobbyCtx(d.Hub))
			r.Get("/", GetDraft)
			r.Delete("/", DeleteDraft(d.Hub))

			r.Post("/players", LoadPlayers)
			r.Post("/coaches", LoadCoaches)
			r.Post("/sample", LoadSample)
			r.Put("/order", SetOrder)
			r.Post("/order/move", MoveCoach)
			r.Put("/mode", SetMode)

			r.Post("/start", simpleCommand(engine.CmdStartDraft))
			r.Post("/picks", Pick)
			r.Post("/pass", simpleCommand(engine.CmdPassTurn))
			r.Post("/undo", simpleCommand(engine.CmdUndo))
			r.Post("/end", simpleCommand(engine.CmdEndDraft))

			r.Get("/export", Export)
			r.Get("/archive", ArchiveList(d.Archive))
		})
	})
	return r
}
