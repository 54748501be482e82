package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"projecthub/internal/app"
	"projecthub/internal/config"
	"projecthub/internal/events"
	"projecthub/pkg/logger"
	"projecthub/pkg/mq"
	"projecthub/pkg/outbox"
	"projecthub/pkg/reporter"
)

var version = "dev"

type options struct {
	env          string
	configDir    string
	healthAddr   string
	once         bool
	replayFailed int
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("projecthub-worker", pflag.ContinueOnError)
	flags.StringVar(&opts.env, "env", "", "config environment (default $CONFIG_ENV or local)")
	flags.StringVar(&opts.configDir, "config-dir", "", "config directory (default $CONFIG_DIR or config)")
	flags.StringVar(&opts.healthAddr, "health-addr", ":8081", "address for /healthz, /readyz and /metrics")
	flags.BoolVar(&opts.once, "once", false, "run a single overdue sweep, print its summary as JSON and exit")
	flags.IntVar(&opts.replayFailed, "replay-failed", 0, "republish up to N failed outbox events and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.env, opts.configDir)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	if err := reporter.Init(cfg.Sentry, version, log); err != nil {
		log.Warn("Sentry initialization failed", zap.Error(err))
	}
	defer reporter.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	pipeline := events.NewPipeline(cfg.Events.Atomic, log)
	scheduler, err := infra.Scheduler(cfg, pipeline, log)
	if err != nil {
		return err
	}

	if opts.once {
		summary := scheduler.Tick(ctx)
		if summary == nil {
			return errors.New("sweep did not complete, see logs")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	var publisher *mq.Publisher
	if cfg.MQ.Enabled {
		publisher, err = mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			return fmt.Errorf("failed to init publisher: %w", err)
		}
		defer publisher.Close()
		log.Info("RabbitMQ publisher ready", zap.String("exchange", cfg.MQ.Exchange))
	}

	if opts.replayFailed > 0 {
		return replay(ctx, infra, publisher, cfg, opts.replayFailed, log)
	}

	log.Info("Starting projecthub worker...",
		zap.String("version", version),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()

	if publisher != nil {
		dispatcher := newDispatcher(infra.Outbox, publisher, cfg, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Start(ctx)
		}()
	} else {
		log.Warn("MQ disabled, outbox events stay pending until a publisher is configured")
	}

	srv := healthServer(opts.healthAddr, infra.Store, publisher)
	go func() {
		log.Info("Health server starting", zap.String("addr", opts.healthAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down projecthub worker gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Health server shutdown error", zap.Error(err))
	}
	wg.Wait()

	log.Info("projecthub worker shutdown complete")
	return nil
}

func newDispatcher(store outbox.Store, publisher outbox.Publisher, cfg *config.Config, log *zap.Logger) *outbox.Dispatcher {
	return outbox.NewDispatcher(store, publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
}

func replay(ctx context.Context, infra *app.Infra, publisher *mq.Publisher, cfg *config.Config, limit int, log *zap.Logger) error {
	if publisher == nil {
		return errors.New("--replay-failed requires mq.enabled")
	}

	replayer := outbox.NewReplayService(infra.Outbox, newDispatcher(infra.Outbox, publisher, cfg, log), log)
	n, err := replayer.ReplayFailedEvents(ctx, limit)
	if err != nil {
		return err
	}
	log.Info("Replayed failed outbox events", zap.Int("replayed", n))
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthServer(addr string, store pinger, publisher *mq.Publisher) *http.Server {
	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if publisher != nil && !publisher.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}
