package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dramarereg/aztec-sequencer/cmd/sequencer/config"
	"github.com/dramarereg/aztec-sequencer/server/api"
	"github.com/dramarereg/aztec-sequencer/server/status"
	"github.com/dramarereg/aztec-sequencer/x/sequencer"
)

// App wires the sequencer's lifecycle to an HTTP status surface and
// handles graceful shutdown on SIGINT/SIGTERM.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	seq       *sequencer.Sequencer
	apiServer *api.Server

	cancel context.CancelFunc
}

// NewApp constructs an App from configuration and the collaborator
// dependencies resolved by the embedding deployment (RPC clients, pool,
// world-state, etc. are out of this module's scope; see spec §6).
func NewApp(cfg *config.Config, deps sequencer.Dependencies, log zerolog.Logger) (*App, error) {
	seq, err := sequencer.New(cfg.Rollup.Constants(), cfg.Sequencer, deps, log)
	if err != nil {
		return nil, fmt.Errorf("failed to construct sequencer: %w", err)
	}

	apiServer := api.NewServer(cfg.API, log)
	apiServer.UseStandardMiddleware(log)

	statusHandler := status.NewHandler(seq, log)
	statusHandler.Register(apiServer.Router)

	return &App{
		cfg:       cfg,
		log:       log,
		seq:       seq,
		apiServer: apiServer,
	}, nil
}

// Run starts the sequencer and API server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.seq.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start sequencer: %w", err)
	}

	go func() {
		if err := a.apiServer.Start(runCtx); err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}()

	return a.runWithGracefulShutdown(runCtx)
}

func (a *App) runWithGracefulShutdown(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info().Msg("sequencer started successfully")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	}

	if a.cancel != nil {
		a.cancel()
	}

	return a.seq.Stop(context.Background())
}
