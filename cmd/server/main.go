package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/seatbus-monitor/internal/config"
	"github.com/DoyleJ11/seatbus-monitor/internal/httpapi"
	"github.com/DoyleJ11/seatbus-monitor/internal/ingest"
	"github.com/DoyleJ11/seatbus-monitor/internal/layout"
	"github.com/DoyleJ11/seatbus-monitor/internal/logging"
	"github.com/DoyleJ11/seatbus-monitor/internal/metrics"
	"github.com/DoyleJ11/seatbus-monitor/internal/mqttsub"
	"github.com/DoyleJ11/seatbus-monitor/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(exitCode(logger, run(cfg, logger)))
}

// exitCode logs a run failure and flushes the logger.
func exitCode(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	return code
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	labels, err := layout.NewLabelMap(cfg.Layout.Labels)
	if err != nil {
		return err
	}
	seatLayout, err := layout.New(cfg.Layout.Rects, labels)
	if err != nil {
		return err
	}

	// outlives the signal context so in-flight requests drain during shutdown
	st := store.NewStore(context.Background(), cfg.Seats.Count, cfg.History.Capacity)
	defer st.Close()

	m := metrics.New()
	svc := ingest.NewService(st, cfg.Seats.Count,
		ingest.WithPolicy(ingest.Policy(cfg.Server.TimestampPolicy)),
		ingest.WithLogger(logger),
		ingest.WithMetrics(m),
	)

	// Build the router *with* the store injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Store:          st,
		Ingest:         svc,
		Layout:         seatLayout,
		Log:            logger,
		Metrics:        m,
		EditMode:       cfg.Server.EditMode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.MQTT.Broker != "" {
		sub := mqttsub.New(cfg.MQTT, svc, logger)
		if err := sub.Start(ctx); err != nil {
			return err
		}
		defer sub.Stop()
		logger.Info("mqtt ingest enabled", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", cfg.MQTT.Topic))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Int("seats", cfg.Seats.Count),
			zap.Int("history_capacity", cfg.History.Capacity),
			zap.Bool("edit_mode", cfg.Server.EditMode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
