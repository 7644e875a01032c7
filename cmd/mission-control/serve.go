package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rcourtman/mission-control/internal/config"
	"github.com/rcourtman/mission-control/internal/dashboard"
	"github.com/rcourtman/mission-control/internal/identity"
	"github.com/rcourtman/mission-control/internal/inventorysync"
	"github.com/rcourtman/mission-control/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const serverShutdownTimeout = 30 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON views and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", config.DefaultListenAddr, "view server listen address (overrides MC_LISTEN_ADDR)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	trigger := inventorysync.New(rt.client,
		inventorysync.WithMessageTTL(cfg.SyncMessageTTL),
		inventorysync.WithLogger(logging.New("sync")),
	)

	views := dashboard.NewServer(dashboard.Deps{
		Hooks:    rt.hooks,
		Trigger:  trigger,
		Identity: identity.NewResolver(),
		Logger:   logging.New("dashboard"),
	})
	defer views.Close()

	// Token rotation in the env file applies without a restart.
	configWatcher, err := config.NewConfigWatcher(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher, .env changes will require restart")
	} else {
		configWatcher.OnTokenChange(rt.client.SetToken)
		if err := configWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start config watcher")
		}
		defer configWatcher.Stop()
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:           views.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", listener.Addr().String()).Msg("View server listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("view server: %w", err)
		}
		return nil
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down view server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	reloadChan := make(chan os.Signal, 1)
	signal.Notify(reloadChan, syscall.SIGHUP)
	defer signal.Stop(reloadChan)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reloadChan:
				log.Info().Msg("Received SIGHUP, reloading configuration...")
				if configWatcher != nil {
					configWatcher.ReloadConfig()
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
