// Package main boots the Product Catalog Service HTTP server.
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

	"github.com/fairyhunter13/product-catalog-service/internal/audit"
	"github.com/fairyhunter13/product-catalog-service/internal/config"
	"github.com/fairyhunter13/product-catalog-service/internal/dispatch"
	httpapi "github.com/fairyhunter13/product-catalog-service/internal/http"
	"github.com/fairyhunter13/product-catalog-service/internal/obs"
	"github.com/fairyhunter13/product-catalog-service/internal/store"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		obs.Logger.Error("service_error", "error", err)
		os.Exit(1)
	}
	obs.Logger.Info("service_stopped")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCloser := obs.InitLogger(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()
	obs.Logger.Info("service_starting", "transport", cfg.DispatchTransport, "db_path", cfg.DBPath)

	if cfgPath := os.Getenv("CONFIG_FILE"); cfgPath != "" {
		stopWatch, err := config.Watch(cfgPath, func(c config.Config) {
			if err := obs.SetLevel(c.LogLevel); err != nil {
				obs.Logger.Warn("log_level_invalid", "level", c.LogLevel, "error", err)
				return
			}
			obs.Logger.Info("log_level_reloaded", "level", c.LogLevel)
		}, func(err error) {
			obs.Logger.Warn("config_reload_failed", "error", err)
		})
		if err != nil {
			obs.Logger.Warn("config_watch_disabled", "error", err)
		} else {
			defer stopWatch()
		}
	}

	db, err := store.Open(cfg.DBPath, cfg.ProductsTable, cfg.EventsTable)
	if err != nil {
		return err
	}
	defer db.Close()

	auditLog := audit.NewBoltLog(db, cfg.EventsTable)
	rec := audit.NewRecorder(auditLog, cfg.EventRetention)
	sweeper, err := audit.NewSweeper(auditLog, cfg.ExpirySweepSpec)
	if err != nil {
		return fmt.Errorf("audit sweeper %q: %w", cfg.ExpirySweepSpec, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	var (
		dispatcher dispatch.Dispatcher
		mgr        *dispatch.Manager
		producer   *dispatch.KafkaDispatcher
	)
	switch cfg.DispatchTransport {
	case config.TransportKafka:
		producer = dispatch.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.EventsTarget)
		dispatcher = producer
		consumer := dispatch.NewKafkaConsumer(cfg.KafkaBrokers, cfg.EventsTarget, cfg.KafkaGroupID,
			rec, cfg.DispatchMaxAttempts, cfg.DispatchRetryBackoff)
		g.Go(func() error {
			defer consumer.Close()
			return consumer.Run(gctx)
		})
	default:
		mgr = dispatch.NewManager(cfg, dispatch.NewQueue(128), rec)
		mgr.Start(context.Background())
		dispatcher = mgr
	}

	app := httpapi.NewApp(cfg, store.NewBolt(db, cfg.ProductsTable), dispatcher)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g.Go(func() error {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		obs.Logger.Info("shutdown_begin")
		// Finish in-flight requests first so their events are accepted.
		ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSrv()
		if err := srv.Shutdown(ctxSrv); err != nil {
			obs.Logger.Error("http_shutdown_error", "error", err)
		}
		if mgr != nil {
			mgr.CloseIntake()
			obs.Logger.Info("shutdown_drain_begin", "backlog_size", mgr.BacklogSize(), "worker_count", mgr.WorkerCount())
			ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancelDrain()
			if drained := mgr.DrainUntil(ctxDrain); !drained {
				obs.Logger.Warn("shutdown_drain_timeout")
			} else {
				obs.Logger.Info("shutdown_drain_complete")
			}
			mgr.Stop()
		}
		if producer != nil {
			if err := producer.Close(); err != nil {
				obs.Logger.Error("kafka_producer_close_error", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}
