package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/suspectwatch/internal/api"
	"github.com/your-org/suspectwatch/internal/api/ws"
	"github.com/your-org/suspectwatch/internal/config"
	"github.com/your-org/suspectwatch/internal/models"
	"github.com/your-org/suspectwatch/internal/observability"
	"github.com/your-org/suspectwatch/internal/pose"
	"github.com/your-org/suspectwatch/internal/queue"
	"github.com/your-org/suspectwatch/internal/recognition"
	"github.com/your-org/suspectwatch/internal/storage"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting suspectwatch API", "port", cfg.Server.Port, "scoring_mode", cfg.Scoring.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(ctx); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
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

	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create sightings consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	// Workers persist sightings; the API only fans them out to WebSocket clients.
	err = consumer.ConsumeSightings(ctx, "api-sightings", func(ctx context.Context, msg jetstream.Msg) error {
		var res models.SightingResult
		if err := json.Unmarshal(msg.Data(), &res); err != nil {
			return err
		}
		hub.BroadcastSighting(res)
		return nil
	})
	if err != nil {
		slog.Warn("start sightings consumer", "error", err)
	}

	// Writes from other API replicas or swctl.
	sub, err := consumer.SubscribeControl(func(msg queue.ControlMessage) {
		if msg.Command != queue.CommandReload {
			return
		}
		if _, err := matcher.Refresh(ctx); err != nil {
			slog.Warn("reload suspect index", "error", err)
		}
	})
	if err != nil {
		slog.Warn("subscribe control", "error", err)
	} else {
		defer func() { _ = sub.Unsubscribe() }()
	}

	poses := pose.NewRegistry(cfg.Pose.MaxSavedPoses, cfg.Pose.DistanceWeight)
	if cfg.Pose.SessionIdle > 0 {
		go func() {
			ticker := time.NewTicker(max(cfg.Pose.SessionIdle/2, time.Second))
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := poses.Prune(cfg.Pose.SessionIdle); n > 0 {
						slog.Info("dropped idle pose sessions", "count", n)
					}
				}
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		Pose:      cfg.Pose,
		DB:        db,
		Objects:   minioStore,
		Publisher: producer,
		Matcher:   matcher,
		Poses:     poses,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
