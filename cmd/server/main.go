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

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"projecthub/internal/app"
	"projecthub/internal/config"
	"projecthub/internal/httpserver"
	"projecthub/pkg/logger"
	"projecthub/pkg/reporter"
)

var version = "dev"

func main() {
	var env, configDir string
	flags := pflag.NewFlagSet("projecthub-server", pflag.ContinueOnError)
	flags.StringVar(&env, "env", "", "config environment (default $CONFIG_ENV or local)")
	flags.StringVar(&configDir, "config-dir", "", "config directory (default $CONFIG_DIR or config)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(env, configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	if err := reporter.Init(cfg.Sentry, version, log); err != nil {
		log.Warn("Sentry initialization failed", zap.Error(err))
	}
	defer reporter.Flush(2 * time.Second)

	log.Info("Starting projecthub server...",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("atomic_events", cfg.Events.Atomic),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize infrastructure", zap.Error(err))
	}
	defer infra.Close()

	deps := infra.Deps(cfg, log)
	auth := infra.AuthService(cfg, log)
	if err := app.Bootstrap(ctx, cfg, auth, log); err != nil {
		log.Fatal("Bootstrap failed", zap.Error(err))
	}

	if cfg.Sweep.Embedded {
		scheduler, err := infra.Scheduler(cfg, deps.Pipeline, log)
		if err != nil {
			log.Fatal("Failed to init sweep scheduler", zap.Error(err))
		}
		go scheduler.Start(ctx)
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpserver.NewRouter(httpserver.NewHandlers(deps, auth), auth, infra.Store, log)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅退出处理
	<-ctx.Done()
	log.Info("Shutting down projecthub server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("projecthub server shutdown complete")
}
