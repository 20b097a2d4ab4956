package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/alerts/internal/action"
	"github.com/gyaneshwarpardhi/alerts/internal/action/logger"
	notifyaction "github.com/gyaneshwarpardhi/alerts/internal/action/notify"
	"github.com/gyaneshwarpardhi/alerts/internal/alerts"
	"github.com/gyaneshwarpardhi/alerts/internal/api"
	"github.com/gyaneshwarpardhi/alerts/internal/bus"
	"github.com/gyaneshwarpardhi/alerts/internal/config"
	"github.com/gyaneshwarpardhi/alerts/internal/engine"
	"github.com/gyaneshwarpardhi/alerts/internal/notify"
	"github.com/gyaneshwarpardhi/alerts/internal/store"
	"github.com/gyaneshwarpardhi/alerts/internal/store/memory"
	"github.com/gyaneshwarpardhi/alerts/internal/store/postgres"
	"github.com/gyaneshwarpardhi/alerts/internal/trigger"
)

func main() {
	addr := flag.String("addr", envOr("ALERTS_ADDR", ":8080"), "HTTP listen address")
	cfgPath := flag.String("config", envOr("ALERTS_CONFIG", "configs/triggers.yaml"), "Path to triggers YAML config")
	dbURL := flag.String("database-url", os.Getenv("ALERTS_DATABASE_URL"), "Postgres URL (empty = in-memory store)")
	natsURL := flag.String("nats-url", os.Getenv("ALERTS_NATS_URL"), "NATS URL for notify actions (empty = disabled)")
	kafkaBrokers := flag.String("kafka-brokers", os.Getenv("ALERTS_KAFKA_BROKERS"), "Comma separated Kafka brokers (empty = bus disabled)")
	kafkaTopic := flag.String("kafka-topic", envOr("ALERTS_KAFKA_TOPIC", "HawkularMetricData"), "Metric data topic")
	kafkaGroup := flag.String("kafka-group", envOr("ALERTS_KAFKA_GROUP", "alerts"), "Kafka consumer group")
	logLevel := flag.String("log-level", envOr("ALERTS_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	// ── Storage ───────────────────────────────────────────────────────────────
	var st store.Store
	if *dbURL != "" {
		pg, err := postgres.New(*dbURL)
		if err != nil {
			slog.Error("failed to open postgres store", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("using postgres store")
	} else {
		st = memory.New()
		slog.Info("using in-memory store")
	}
	defer st.Close()

	// ── Notifications ─────────────────────────────────────────────────────────
	var pub notify.Publisher = &notify.NoopPublisher{}
	if *natsURL != "" {
		np, err := notify.NewNATSPublisher(*natsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "err", err)
			os.Exit(1)
		}
		pub = np
		slog.Info("notify actions publish to NATS", "url", *natsURL)
	}
	defer pub.Close()

	// ── Action registry ───────────────────────────────────────────────────────
	reg := action.NewRegistry()
	reg.Register(notifyaction.New(pub))
	reg.Register(logger.New(log))

	// ── Build initial trigger graph ───────────────────────────────────────────
	g, err := trigger.Build(cfg, reg)
	if err != nil {
		slog.Error("failed to build trigger graph", "err", err)
		os.Exit(1)
	}
	slog.Info("trigger graph built", "nodes", g.NodeCount(), "triggers", len(g.Triggers()))

	// ── Engine & service ──────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engCtx, engCancel := context.WithCancel(context.Background())
	defer engCancel()

	eng := engine.New(engCtx, g, reg, st, cfg.Engine)
	svc := alerts.New(st, eng)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	reloader := trigger.NewReloader(loader, reg, eng)
	loader.OnChange(func(*config.AlertsConfig) {
		if g := eng.Graph(); g != nil {
			slog.Info("trigger graph active", "version", g.Version(), "nodes", g.NodeCount())
		}
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── Metric bus ────────────────────────────────────────────────────────────
	busDone := make(chan struct{})
	if brokers := splitList(*kafkaBrokers); len(brokers) > 0 {
		consumer, err := bus.NewConsumer(bus.ConsumerConfig{
			Brokers: brokers,
			Topic:   *kafkaTopic,
			GroupID: *kafkaGroup,
		}, svc, log)
		if err != nil {
			slog.Error("failed to create bus consumer", "err", err)
			os.Exit(1)
		}
		go func() {
			defer close(busDone)
			defer consumer.Close()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("bus consumer stopped", "err", err)
			}
		}()
	} else {
		close(busDone)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.New(svc, eng, reloader),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop the bus consumer
	<-busDone
	eng.Shutdown() // drain queued events and actions
	engCancel()
	slog.Info("goodbye")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
