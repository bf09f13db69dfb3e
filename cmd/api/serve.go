package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/api"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

type serveFlags struct {
	migrate bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				return runServe(cmd.Context(), a, flags)
			})
		},
	}

	cmd.Flags().BoolVar(&flags.migrate, "migrate", false, "Apply the database schema before serving")

	return cmd
}

func runServe(ctx context.Context, a *app, flags serveFlags) error {
	logger := a.logger
	logger.Info("starting panglobal API",
		zap.String("version", version),
		zap.String("port", a.cfg.Server.Port),
		zap.String("store", a.cfg.Server.Store),
	)

	if flags.migrate && a.postgres != nil {
		if err := a.postgres.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	var collector *metrics.Collector
	if a.cfg.Metrics.Enabled {
		collector = a.collector
	}

	router := api.NewRouter(api.RouterConfig{
		Auth:           api.NewAuthHandler(a.auth, logger),
		Network:        api.NewNetworkHandler(a.connections, logger),
		Forum:          api.NewForumHandler(a.forum, logger),
		Resources:      api.NewResourceHandler(a.resources, logger),
		Health:         api.NewHealthHandler(a.store, version, logger),
		JWTManager:     a.jwt,
		Users:          a.store,
		Metrics:        collector,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})
	mux := router.Setup()
	if a.cfg.Storage.Type == "local" {
		mux.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.cfg.Storage.UploadDir))))
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if a.cfg.Reconcile.Interval > 0 {
		go reconcileWorker(workerCtx, a, a.cfg.Reconcile.Interval)
	}

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	stopWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
