package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/suspectwatch/internal/bridge"
	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/observability"
	"github.com/your-org/suspectwatch/internal/queue"
	"github.com/your-org/suspectwatch/internal/recognition"
	"github.com/your-org/suspectwatch/internal/storage"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting suspectwatch worker",
		"workers", cfg.Worker.Count,
		"cpu_cores", runtime.NumCPU(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(ctx); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	matcher, err := recognition.NewMatcher(cfg.Scoring, db)
	if err != nil {
		slog.Error("create matcher", "error", err)
		os.Exit(1)
	}
	if n, err := matcher.Refresh(ctx); err != nil {
		slog.Warn("load suspect index", "error", err)
	} else {
		slog.Info("suspect index loaded", "suspects", n)
	}

	pipeline := recognition.NewPipeline(matcher, cfg.Tracking, db, producer)

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	err = consumer.ConsumeObservations(ctx, "sighting-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var obs models.Observation
		if err := json.Unmarshal(msg.Data(), &obs); err != nil {
			return models.WrapError(models.KindDataConversion, "observation json", err)
		}

		if _, err := pipeline.ProcessObservation(ctx, obs); err != nil {
			return fmt.Errorf("process observation %s: %w", obs.ID, err)
		}
		return nil
	}, cfg.Worker.Count)
	if err != nil {
		slog.Error("start observation consumer", "error", err)
		os.Exit(1)
	}

	sub, err := consumer.SubscribeControl(func(msg queue.ControlMessage) {
		if msg.Command != queue.CommandReload {
			return
		}
		if n, err := matcher.Refresh(ctx); err != nil {
			slog.Warn("reload suspect index", "error", err)
		} else {
			slog.Debug("suspect index reloaded", "suspects", n, "suspect", msg.SuspectID)
		}
	})
	if err != nil {
		slog.Warn("subscribe control", "error", err)
	} else {
		defer func() { _ = sub.Unsubscribe() }()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MQTT.Broker != "" {
		mqttBridge := bridge.NewMQTTBridge(cfg.MQTT, producer)
		if err := mqttBridge.Start(gctx); err != nil {
			slog.Warn("start MQTT bridge", "error", err)
		} else {
			defer mqttBridge.Stop()
		}
	}

	// Metrics endpoint
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Worker.MetricsPort)}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	metricsSrv.Handler = mux

	g.Go(func() error {
		slog.Info("worker metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	// Periodically report queue depth
	g.Go(func() error {
		every(gctx, 10*time.Second, func() {
			if depth, err := producer.QueueDepth(gctx); err == nil {
				observability.QueueDepth.Set(float64(depth))
			}
		})
		return nil
	})

	// Full index rebuilds catch writes that missed a control message.
	g.Go(func() error {
		every(gctx, cfg.Worker.IndexRefresh, func() {
			if _, err := matcher.Refresh(gctx); err != nil {
				slog.Warn("refresh suspect index", "error", err)
			}
		})
		return nil
	})

	g.Go(func() error {
		every(gctx, cfg.Worker.CleanupInterval, func() {
			if n := pipeline.PruneIdle(); n > 0 {
				slog.Info("dropped idle device trackers", "count", n)
			}
		})
		return nil
	})

	if cfg.Worker.SnapshotRetention > 0 {
		g.Go(func() error {
			every(gctx, cfg.Worker.CleanupInterval, func() {
				if _, err := storage.PruneSnapshots(gctx, minioStore, cfg.Worker.SnapshotRetention); err != nil {
					slog.Warn("cleanup snapshots", "error", err)
				}
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("worker stopped with error", "error", err)
	}
	slog.Info("worker stopped")
}

// every runs fn on each tick until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
