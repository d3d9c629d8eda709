package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"barberclub/internal/api"
	"barberclub/internal/availability"
	"barberclub/internal/backend"
	"barberclub/internal/booking"
	"barberclub/internal/config"
	"barberclub/internal/events"
	"barberclub/internal/locator"
	"barberclub/internal/metrics"
	"barberclub/internal/session"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BARBERCLUB_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	sessions := session.Open(cfg.Session.Path, &logger)
	defer sessions.Close()

	backup := session.NewBackupService(cfg.Session.Path, cfg.Session.Backup, &logger)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.Backend.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	window := availability.Window{
		OpenHour:     cfg.Booking.OpenHour,
		CloseHour:    cfg.Booking.CloseHour,
		SlotDuration: cfg.Booking.SlotMinutes,
	}
	engine := availability.NewEngine(window, nil)

	bus := events.NewBus()
	bus.Subscribe(events.TypeBookingSucceeded, func(e events.Event) {
		logger.Info().Int64("user_id", e.UserID).Msg("booking created")
	})
	bus.Subscribe(events.TypeBookingFailed, func(e events.Event) {
		logger.Warn().Int64("user_id", e.UserID).Msg("booking rejected")
	})

	wizard := booking.NewWizard(client, sessions, engine, bus, booking.Config{
		SessionTimeout:    cfg.SessionTimeout(),
		SuccessResetDelay: cfg.SuccessResetDelay(),
	}, &logger)

	server := api.NewServer(wizard, client, sessions, api.LocatorConfig{
		Fallback:        locator.Coordinate{Lat: cfg.Locator.FallbackLat, Lng: cfg.Locator.FallbackLng},
		DefaultRadiusKm: cfg.Locator.DefaultRadiusKm,
	}, cfg.Booking.SubmitPerMinute, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go backup.Run(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, client, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	// Expired wizard sessions are swept periodically, like the browser
	// dropping idle tabs.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := wizard.CleanupSessions(); n > 0 {
					logger.Debug().Int("removed", n).Msg("expired wizard sessions cleaned")
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Handler(),
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("barber club gateway started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("gateway server error")
	}
}

func startHealthServer(ctx context.Context, port int, client *backend.Client, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
