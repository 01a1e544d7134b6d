// Package server wires the REST API, the call WebSocket, and the idle-session
// reaper into one HTTP server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/voxloop/voxd/internal/catalog"
	"github.com/voxloop/voxd/internal/config"
	"github.com/voxloop/voxd/internal/engine"
	"github.com/voxloop/voxd/internal/logging"
	"github.com/voxloop/voxd/internal/session"
	"github.com/voxloop/voxd/internal/vad"
	"github.com/voxloop/voxd/internal/voice"
)

// Run starts the voxd server with the given configuration. It blocks until
// the context is cancelled, then drains live calls and shuts down.
func Run(ctx context.Context, cfg config.Config) error {
	store, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	engines := engine.Build(cfg)

	registry := session.NewRegistry(cfg.Session.MaxConcurrent, cfg.Session.HistorySize, func() *vad.Detector {
		return vad.NewDetector(vad.NewEnergyClassifier(cfg.VAD.Aggressiveness), vad.Options{
			SampleRate:          cfg.Audio.SampleRate,
			FrameMs:             cfg.Audio.FrameMs,
			SilenceThresholdSec: cfg.VAD.SilenceThresholdSec,
			MinSpeechSec:        cfg.VAD.MinSpeechSec,
		})
	})

	h := &Handlers{Registry: registry, Catalog: store, Greeting: cfg.Greeting}

	r := NewRouter(h, voice.Deps{
		Registry: registry,
		Engines:  engines,
		Opts: voice.Options{
			FrameBytes:        cfg.FrameBytes(),
			Language:          cfg.Engines.Language,
			Greeting:          cfg.Greeting,
			EmergencyKeywords: cfg.EmergencyKeywords,
		},
	})

	// Reap sessions that went silent past the idle timeout.
	reaper := cron.New()
	if _, err := reaper.AddFunc("@every 30s", func() {
		if reaped := registry.ReapIdle(cfg.IdleTimeout()); len(reaped) > 0 {
			logging.Infof("reaped %d idle session(s)", len(reaped))
		}
	}); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	reaper.Start()
	defer reaper.Stop()

	// ReadTimeout/WriteTimeout are intentionally omitted; they set deadlines
	// on the underlying net.Conn and break hijacked WebSocket connections.
	// Call liveness is handled by ping/pong in the voice transport.
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	for _, s := range registry.Drain() {
		s.End(session.StatusEnded)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// NewRouter builds the chi router with all REST and WebSocket routes.
func NewRouter(h *Handlers, wsDeps voice.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(corsMiddleware)

	r.Get("/health", h.Health)
	r.Post("/api/call/start", h.StartCall)
	r.Post("/api/call/end", h.EndCall)
	r.Get("/api/services", h.ListServices)
	r.Get("/api/reservations", h.ListReservations)
	r.Post("/api/reservations", h.CreateReservation)
	r.Get("/ws/call/{sessionID}", voice.Handler(wsDeps))

	return r
}

// corsMiddleware allows browser clients on any origin; the session id is the
// capability that gates a call.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
