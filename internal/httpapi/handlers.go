package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/DoyleJ11/coach-draft/internal/csvio"
	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/hub"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/DoyleJ11/coach-draft/internal/types"
	pub "github.com/DoyleJ11/coach-draft/pkg/types"
)

const maxUploadBytes = 1 << 20

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createDraftRequest struct {
	Mode string `json:"mode"`
}

type commandResponse struct {
	State  *pub.StateView `json:"state"`
	Events []engine.Event `json:"events"`
}

func CreateDraft(h *hub.Hub, defaultMode engine.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := createDraftRequest{Mode: string(defaultMode)}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "bad json")
				return
			}
		}
		initial, err := engine.Initialize(nil, nil, engine.Mode(req.Mode))
		if err != nil {
			writeEngineError(w, err)
			return
		}

		var lb *lobby.Lobby
		for lb == nil {
			code, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			reply := make(chan *lobby.Lobby, 1)
			h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
			if <-reply != nil {
				continue // collision on code, regenerate
			}
			h.Inbox() <- hub.EnsureLobby{Code: code, State: initial, Reply: reply}
			lb = <-reply
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: lb.Code()})
	}
}

func ListDrafts(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		h.Inbox() <- hub.ListLobbies{Reply: reply}
		writeJSON(w, http.StatusOK, struct {
			Codes []string `json:"codes"`
		}{Codes: <-reply})
	}
}

func GetDraft(w http.ResponseWriter, r *http.Request) {
	lb := lobbyFrom(r)
	view, err := lb.View(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewStateView(lb.Code(), view.Version, view.State))
}

func DeleteDraft(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Inbox() <- hub.RemoveLobby{Code: lobbyFrom(r).Code()}
		w.WriteHeader(http.StatusNoContent)
	}
}

func LoadPlayers(w http.ResponseWriter, r *http.Request) {
	rows, err := csvio.ReadRows(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run(w, r, engine.Command{Type: engine.CmdLoadPlayers, Players: rows})
}

func LoadCoaches(w http.ResponseWriter, r *http.Request) {
	rows, err := csvio.ReadCoaches(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run(w, r, engine.Command{Type: engine.CmdLoadCoaches, Coaches: rows})
}

func LoadSample(w http.ResponseWriter, r *http.Request) {
	players, err := csvio.ReadRows(strings.NewReader(csvio.SamplePlayers))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	coaches, err := csvio.ReadCoaches(strings.NewReader(csvio.SampleCoaches))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	lb := lobbyFrom(r)
	if _, err := lb.Do(r.Context(), engine.Command{Type: engine.CmdLoadPlayers, Players: players}); err != nil {
		writeEngineError(w, err)
		return
	}
	run(w, r, engine.Command{Type: engine.CmdLoadCoaches, Coaches: coaches})
}

func SetOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Order []string `json:"order"`
	}
	if !decode(w, r, &body) {
		return
	}
	run(w, r, engine.Command{Type: engine.CmdSetOrder, Order: body.Order})
}

func MoveCoach(w http.ResponseWriter, r *http.Request) {
	var body struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !decode(w, r, &body) {
		return
	}
	run(w, r, engine.Command{Type: engine.CmdMoveCoach, From: body.From, To: body.To})
}

func SetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if !decode(w, r, &body) {
		return
	}
	run(w, r, engine.Command{Type: engine.CmdSetMode, Mode: engine.Mode(body.Mode)})
}

func Pick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerID string `json:"player_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	run(w, r, engine.Command{Type: engine.CmdPickPlayer, PlayerID: body.PlayerID})
}

func simpleCommand(t engine.CommandType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run(w, r, engine.Command{Type: t})
	}
}

func Export(w http.ResponseWriter, r *http.Request) {
	lb := lobbyFrom(r)
	view, err := lb.View(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rosters-%s.csv"`, lb.Code()))
	w.WriteHeader(http.StatusOK)
	_ = csvio.WriteRosters(w, engine.Rosters(view.State))
}

func ArchiveList(a Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a == nil {
			writeError(w, http.StatusNotFound, "archive not configured")
			return
		}
		recs, err := a.List(r.Context(), lobbyFrom(r).Code())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func run(w http.ResponseWriter, r *http.Request, cmd engine.Command) {
	lb := lobbyFrom(r)
	res, err := lb.Do(r.Context(), cmd)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	events := res.Events
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, http.StatusOK, commandResponse{
		State:  types.NewStateView(lb.Code(), res.Snapshot.Version, res.Snapshot.State),
		Events: events,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrPlayerUnavailable),
		errors.Is(err, engine.ErrInvalidOrder),
		errors.Is(err, engine.ErrInvalidMode),
		errors.Is(err, engine.ErrNothingLoaded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrNotInSetup),
		errors.Is(err, engine.ErrNotDrafting),
		errors.Is(err, engine.ErrDraftCompleted),
		errors.Is(err, engine.ErrNoCurrentCoach):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, lobby.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
