package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trendjack/core/internal/app"
	"github.com/trendjack/core/internal/pkg/proctitle"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := opts.logger(cfg)
			defer log.Sync()
			if err := proctitle.Set("serve"); err != nil {
				log.Debug("process title unchanged", zap.Error(err))
			}

			a, err := app.New(log, cfg)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, log, cfg.Env)
		},
	}
}

// serve runs the listener until ctx ends or the listener fails, then
// drains requests and background work.
func serve(ctx context.Context, a *app.App, log *zap.Logger, env string) error {
	srv := &http.Server{
		Addr:              a.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", env))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("forced shutdown", zap.Error(err))
		}
		a.Shutdown(sctx)
		return nil
	})
	err := g.Wait()
	if err != nil {
		log.Error("server stopped", zap.Error(err))
	} else {
		log.Info("server exited")
	}
	return err
}
