package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/odyssey-authz/cmd/authzd/cli"
	"github.com/odyssey-erp/odyssey-authz/internal/app"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.String("store", cfg.Store), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	if len(os.Args) > 1 && os.Args[1] == "inspect" {
		code := runInspect(ctx, store, logger, os.Args[2:])
		closeStore()
		os.Exit(code)
	}

	metrics, err := app.NewMetrics(cfg)
	if err != nil {
		logger.Error("register metrics", slog.Any("error", err))
		os.Exit(1)
	}
	rbacService := rbac.NewService(store, logger,
		rbac.WithConcurrency(cfg.ResolveConcurrency),
		rbac.WithRecorder(metrics),
	)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, UserIDHeader: cfg.UserIDHeader}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		RBACMiddleware: rbacMiddleware,
		RBACHandler:    rbacHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runInspect(ctx context.Context, store rbac.Store, logger *slog.Logger, args []string) int {
	opts, err := cli.ParseInspectFlags(args, os.Stderr)
	if err != nil {
		return 1
	}
	opts.Stdout = os.Stdout
	inspector, err := cli.NewInspectCLI(rbac.NewService(store, logger))
	if err != nil {
		logger.Error("inspect", slog.Any("error", err))
		return 1
	}
	return inspector.InspectCommand(ctx, opts)
}
