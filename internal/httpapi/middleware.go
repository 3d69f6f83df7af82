package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/hub"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type lobbyKey struct{}

// LobbyCtx resolves {code} to a live lobby or answers 404.
func LobbyCtx(h *hub.Hub) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := chi.URLParam(r, "code")
			lb := h.Get(r.Context(), code)
			if lb == nil {
				writeError(w, http.StatusNotFound, "draft not found")
				return
			}
			ctx := context.WithValue(r.Context(), lobbyKey{}, lb)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func lobbyFrom(r *http.Request) *lobby.Lobby {
	lb, _ := r.Context().Value(lobbyKey{}).(*lobby.Lobby)
	return lb
}

func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
