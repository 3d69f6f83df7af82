package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/coach-draft/internal/config"
	"github.com/DoyleJ11/coach-draft/internal/engine"
	"github.com/DoyleJ11/coach-draft/internal/httpapi"
	"github.com/DoyleJ11/coach-draft/internal/hub"
	"github.com/DoyleJ11/coach-draft/internal/lobby"
	"github.com/DoyleJ11/coach-draft/internal/logging"
	"github.com/DoyleJ11/coach-draft/internal/metrics"
	"github.com/DoyleJ11/coach-draft/internal/notify"
	"github.com/DoyleJ11/coach-draft/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the draft HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Override the listen port (env: PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	m := metrics.New()
	hooks := lobby.MultiHooks{lobby.LogHooks{Logger: log}}
	deps := httpapi.Deps{
		Metrics:        m,
		Logger:         log,
		DefaultMode:    engine.Mode(cfg.DefaultMode),
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.DatabaseURL != "" {
		archive, openErr := store.Open(cfg.DatabaseURL, log)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, archive.Close()) }()
		hooks = append(hooks, archive)
		deps.Archive = archive
		log.Info("roster archive enabled")
	}

	if cfg.NATSURL != "" {
		nc, publisher, connErr := notify.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, log)
		if connErr != nil {
			return connErr
		}
		defer func() { err = multierr.Append(err, nc.Drain()) }()
		hooks = append(hooks, publisher)
		log.Info("nats publishing enabled", zap.String("prefix", cfg.NATSSubjectPrefix))
	}

	h := hub.NewHub(ctx, lobby.Options{
		Hooks:       hooks,
		Clock:       clockwork.NewRealClock(),
		TeamsDelay:  cfg.TeamsDelay,
		ExportDelay: cfg.ExportDelay,
		Logger:      log,
		Metrics:     m,
	})
	deps.Hub = h

	srv := httpapi.NewServer(cfg.Addr(), httpapi.SetupRoutes(deps), cfg.AllowedOrigins)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
