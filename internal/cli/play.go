package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/config"
	"github.com/DoyleJ11/coach-draft/internal/csvio"
	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/DoyleJ11/coach-draft/internal/logging"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const playHelp = `commands:
  status                 show phase, mode and who is on the clock
  players                list available players
  order [ID ...]         show the pick order, or replace it
  move FROM TO           move the coach at position FROM to position TO
  mode linear|snake      change the draft mode
  load players|coaches FILE
  sample                 load the built-in sample data
  start                  start the draft
  pick ID                pick a player (and the rest of their group)
  pass                   pass the current turn
  undo                   undo the last turn
  end                    end the draft now
  rosters                print every team
  quit                   leave`

type playOptions struct {
	players string
	coaches string
	sample  bool
	mode    string
	out     string
}

func newPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run a draft interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if opts.mode == "" {
				opts.mode = cfg.DefaultMode
			}
			log, err := logging.New("warn", "console")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return play(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, opts, log)
		},
	}

	cmd.Flags().StringVar(&opts.players, "players", "", "CSV file of `name,group` player rows")
	cmd.Flags().StringVar(&opts.coaches, "coaches", "", "File with one coach name per line")
	cmd.Flags().BoolVar(&opts.sample, "sample", false, "Start with the built-in sample players and coaches")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Draft mode: linear or snake")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the final rosters CSV here instead of printing it")
	return cmd
}

func play(ctx context.Context, in io.Reader, w io.Writer, cfg *config.Config, opts playOptions, log *zap.Logger) error {
	out := &syncWriter{w: w}

	players, coaches, err := initialRows(opts)
	if err != nil {
		return err
	}
	initial, err := engine.Initialize(players, coaches, engine.Mode(opts.mode))
	if err != nil {
		return err
	}

	term := newTerminalHooks(out, opts.out)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lb := lobby.NewLobby(ctx, initial, lobby.Options{
		Code:        "LOCAL",
		Hooks:       term,
		Clock:       clockwork.NewRealClock(),
		TeamsDelay:  cfg.TeamsDelay,
		ExportDelay: cfg.ExportDelay,
		Logger:      log,
	})

	fmt.Fprintln(out, "coachdraft: type `help` for commands")
	printStatus(out, initial)

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := runLine(ctx, lb, out, fields)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	view, err := lb.View(ctx)
	if err != nil {
		return err
	}
	if view.State.Phase == engine.PhaseComplete {
		select {
		case <-term.exported:
		case <-time.After(cfg.TeamsDelay + cfg.ExportDelay + time.Second):
			return fmt.Errorf("timed out waiting for roster export")
		}
	}
	return term.Err()
}

func initialRows(opts playOptions) ([]engine.Row, []engine.Row, error) {
	if opts.sample {
		players, err := csvio.ReadRows(strings.NewReader(csvio.SamplePlayers))
		if err != nil {
			return nil, nil, err
		}
		coaches, err := csvio.ReadCoaches(strings.NewReader(csvio.SampleCoaches))
		return players, coaches, err
	}

	var players, coaches []engine.Row
	var err error
	if opts.players != "" {
		if players, err = readFile(opts.players, csvio.ReadRows); err != nil {
			return nil, nil, err
		}
	}
	if opts.coaches != "" {
		if coaches, err = readFile(opts.coaches, csvio.ReadCoaches); err != nil {
			return nil, nil, err
		}
	}
	return players, coaches, nil
}

func readFile(path string, parse func(io.Reader) ([]engine.Row, error)) ([]engine.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

// runLine executes one REPL line. Engine rejections come back as err.
func runLine(ctx context.Context, lb *lobby.Lobby, out io.Writer, fields []string) (bool, error) {
	var cmd engine.Command
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(out, playHelp)
		return false, nil
	case "status", "players", "rosters":
		view, err := lb.View(ctx)
		if err != nil {
			return false, err
		}
		switch fields[0] {
		case "status":
			printStatus(out, view.State)
		case "players":
			printAvailable(out, view.State)
		default:
			printRosters(out, engine.Rosters(view.State))
		}
		return false, nil
	case "order":
		if len(fields) == 1 {
			view, err := lb.View(ctx)
			if err != nil {
				return false, err
			}
			printOrder(out, view.State)
			return false, nil
		}
		cmd = engine.Command{Type: engine.CmdSetOrder, Order: fields[1:]}
	case "move":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: move FROM TO")
		}
		from, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("bad position %q", fields[1])
		}
		to, err := strconv.Atoi(fields[2])
		if err != nil {
			return false, fmt.Errorf("bad position %q", fields[2])
		}
		cmd = engine.Command{Type: engine.CmdMoveCoach, From: from, To: to}
	case "mode":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: mode linear|snake")
		}
		cmd = engine.Command{Type: engine.CmdSetMode, Mode: engine.Mode(fields[1])}
	case "load":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: load players|coaches FILE")
		}
		switch fields[1] {
		case "players":
			rows, err := readFile(fields[2], csvio.ReadRows)
			if err != nil {
				return false, err
			}
			cmd = engine.Command{Type: engine.CmdLoadPlayers, Players: rows}
		case "coaches":
			rows, err := readFile(fields[2], csvio.ReadCoaches)
			if err != nil {
				return false, err
			}
			cmd = engine.Command{Type: engine.CmdLoadCoaches, Coaches: rows}
		default:
			return false, fmt.Errorf("usage: load players|coaches FILE")
		}
	case "sample":
		players, _ := csvio.ReadRows(strings.NewReader(csvio.SamplePlayers))
		coaches, _ := csvio.ReadCoaches(strings.NewReader(csvio.SampleCoaches))
		if _, err := lb.Do(ctx, engine.Command{Type: engine.CmdLoadPlayers, Players: players}); err != nil {
			return false, err
		}
		cmd = engine.Command{Type: engine.CmdLoadCoaches, Coaches: coaches}
	case "start":
		cmd = engine.Command{Type: engine.CmdStartDraft}
	case "pick":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: pick ID")
		}
		cmd = engine.Command{Type: engine.CmdPickPlayer, PlayerID: fields[1]}
	case "pass":
		cmd = engine.Command{Type: engine.CmdPassTurn}
	case "undo":
		cmd = engine.Command{Type: engine.CmdUndo}
	case "end":
		cmd = engine.Command{Type: engine.CmdEndDraft}
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}

	res, err := lb.Do(ctx, cmd)
	if err != nil {
		return false, err
	}
	if len(res.Events) == 0 {
		fmt.Fprintln(out, "nothing to undo")
	}
	return false, nil
}

// terminalHooks prints lobby activity and writes the final export.
type terminalHooks struct {
	out      io.Writer
	path     string
	exported chan struct{}

	mu  sync.Mutex
	err error
}

func newTerminalHooks(out io.Writer, path string) *terminalHooks {
	return &terminalHooks{out: out, path: path, exported: make(chan struct{}, 1)}
}

func (h *terminalHooks) Render(_ string, snap lobby.Snapshot, events []engine.Event) {
	s := snap.State
	for _, e := range events {
		if line := describe(s, e); line != "" {
			fmt.Fprintln(h.out, line)
		}
	}
	if s.Phase == engine.PhaseDrafting {
		if c, ok := engine.CurrentCoach(s); ok {
			fmt.Fprintf(h.out, "round %d: %s is on the clock\n", engine.Round(s), c.Name)
		}
	}
}

func (h *terminalHooks) ShowTeams(_ string, rosters []engine.TeamRoster) {
	printRosters(h.out, rosters)
}

func (h *terminalHooks) Export(_ string, rosters []engine.TeamRoster) {
	err := h.export(rosters)
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
	select {
	case h.exported <- struct{}{}:
	default:
	}
}

func (h *terminalHooks) export(rosters []engine.TeamRoster) error {
	if h.path == "" {
		return csvio.WriteRosters(h.out, rosters)
	}
	f, err := os.Create(h.path)
	if err != nil {
		return err
	}
	if err := csvio.WriteRosters(f, rosters); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(h.out, "rosters written to %s\n", h.path)
	return nil
}

func (h *terminalHooks) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func describe(s engine.State, e engine.Event) string {
	switch e.Type {
	case engine.EvtPlayersLoaded:
		return fmt.Sprintf("loaded %d players", len(s.Players))
	case engine.EvtCoachesLoaded:
		return fmt.Sprintf("loaded %d coaches", len(s.Coaches))
	case engine.EvtOrderChanged:
		return "order: " + strings.Join(orderNames(s), ", ")
	case engine.EvtModeChanged:
		return "mode: " + string(s.Mode)
	case engine.EvtDraftStarted:
		return fmt.Sprintf("draft started (%s)", s.Mode)
	case engine.EvtPlayersPicked:
		return fmt.Sprintf("%s picks %s", coachName(s, e.CoachID), strings.Join(playerNames(s, e.PlayerIDs), ", "))
	case engine.EvtTurnPassed:
		return coachName(s, e.CoachID) + " passes"
	case engine.EvtTurnSkipped:
		return coachName(s, e.CoachID) + " sits out this turn"
	case engine.EvtTurnUndone:
		return "undid " + coachName(s, e.CoachID) + "'s turn"
	case engine.EvtDraftCompleted:
		return "draft complete"
	}
	return ""
}

func printStatus(out io.Writer, s engine.State) {
	fmt.Fprintf(out, "phase: %s, mode: %s, players: %d available of %d, coaches: %d\n",
		s.Phase, s.Mode, len(engine.Available(s)), len(s.Players), len(s.Coaches))
	if s.Phase == engine.PhaseDrafting {
		if c, ok := engine.CurrentCoach(s); ok {
			fmt.Fprintf(out, "round %d: %s is on the clock\n", engine.Round(s), c.Name)
		}
	}
}

func printAvailable(out io.Writer, s engine.State) {
	for _, p := range engine.Available(s) {
		if p.Group != "" {
			fmt.Fprintf(out, "  %s  %s [%s]\n", p.ID, p.Name, p.Group)
			continue
		}
		fmt.Fprintf(out, "  %s  %s\n", p.ID, p.Name)
	}
}

func printOrder(out io.Writer, s engine.State) {
	for i, id := range s.Order {
		fmt.Fprintf(out, "  %d. %s (id %s)\n", i, coachName(s, id), id)
	}
}

func printRosters(out io.Writer, rosters []engine.TeamRoster) {
	for _, team := range rosters {
		fmt.Fprintf(out, "%s:\n", team.CoachName)
		if len(team.Players) == 0 {
			fmt.Fprintln(out, "  (no players)")
		}
		for _, p := range team.Players {
			if p.Group != "" {
				fmt.Fprintf(out, "  - %s [%s]\n", p.Name, p.Group)
				continue
			}
			fmt.Fprintf(out, "  - %s\n", p.Name)
		}
	}
}

func coachName(s engine.State, id string) string {
	for _, c := range s.Coaches {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

func orderNames(s engine.State) []string {
	names := make([]string, len(s.Order))
	for i, id := range s.Order {
		names[i] = coachName(s, id)
	}
	return names
}

func playerNames(s engine.State, ids []string) []string {
	byID := make(map[string]string, len(s.Players))
	for _, p := range s.Players {
		byID[p.ID] = p.Name
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = byID[id]
	}
	return names
}

// syncWriter serializes writes from the REPL and the lobby goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
