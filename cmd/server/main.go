package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/api"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/auth"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/backend"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/config"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/metrics"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/session"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/storage"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/ticker"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/websocket"
	"github.com/digiheadway/easy-call-track-cloud-sub003/pkg/middleware"
)

const serviceName = "calltrack-view"

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Str("api_base_url", cfg.APIBaseURL).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting call view server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open settings store")
	}

	client := backend.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout, log.Logger)
	sessions := session.NewManager(client, store, session.Options{
		Limit:                cfg.PageLimit,
		Debounce:             cfg.SettingsDebounce,
		ResetOnSegmentDelete: cfg.ResetOnSegmentDelete,
	}, log.Logger)

	hub := websocket.NewHub(log.Logger)
	go hub.Run()
	sessions.OnEvent = hub.Publish(log.Logger)

	if cfg.RefreshInterval > 0 {
		go ticker.NewTicker(sessions, cfg.RefreshInterval, log.Logger).Start(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, hub, sessions),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop auto refresh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Pending layout and filter saves go out before the store closes
	if err := sessions.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush sessions")
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close settings store")
	}

	log.Info().Msg("server stopped")
}

// newRouter wires middleware and routes
func newRouter(cfg *config.Config, hub *websocket.Hub, sessions *session.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Metrics)

	// Public routes
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/ws", websocket.NewHandler(hub, sessions, cfg, log.Logger).ServeHTTP)
		api.NewViewHandler(sessions, log.Logger).Routes(r)
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":%q}`, serviceName)
}
