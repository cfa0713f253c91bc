// Package server exposes the HTTP surface: health, readiness, metrics and a
// small read-only view of tracked channels. It injects correlation IDs into
// request contexts for consistent logging.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/onnwee/tempvoice/telemetry"
)

// NewMux returns the HTTP handler with all routes.
func NewMux(deps Deps) http.Handler {
	handlers := NewHandlers(deps)

	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)

	// Channel views and admin actions
	if deps.AdminToken == "" {
		slog.Warn("ADMIN_TOKEN not set - /channels and /admin endpoints are UNPROTECTED")
	}
	mux.Handle("/channels", adminAuth(http.HandlerFunc(handlers.HandleChannels), deps.AdminToken))
	mux.Handle("/channels/history", adminAuth(http.HandlerFunc(handlers.HandleChannelHistory), deps.AdminToken))
	mux.Handle("/admin/sweep", adminAuth(http.HandlerFunc(handlers.HandleAdminSweep), deps.AdminToken))

	// Correlation ID injector inside the otelhttp span so the id lands on it too
	withCorr := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("correlation_id", corr))

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
	return otelhttp.NewHandler(withCorr, "http-server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method + " " + r.URL.Path }))
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, deps Deps, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Shutdown goroutine
	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr), slog.String("component", "http"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
