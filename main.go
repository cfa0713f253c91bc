// Command tempvoice is a Discord bot that hands out temporary voice channels.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to the Discord gateway and watches voice state changes.
//   - Creates a voice channel for every member who joins the creator channel,
//     moves them into it, and deletes tracked channels once they are empty.
//   - Optionally journals channel events to Postgres (DB_DSN).
//   - Exposes a minimal HTTP server with /healthz, /readyz, /metrics and /channels.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/tempvoice/config"
	"github.com/onnwee/tempvoice/db"
	"github.com/onnwee/tempvoice/discord"
	"github.com/onnwee/tempvoice/lifecycle"
	"github.com/onnwee/tempvoice/registry"
	"github.com/onnwee/tempvoice/server"
	"github.com/onnwee/tempvoice/telemetry"
)

const version = "1.0.0"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()
	setupLogging()

	if err := run(); err != nil {
		slog.Error("tempvoice exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// setupLogging configures the default logger from LOG_LEVEL and LOG_FORMAT.
// Defaults: level=info, format=text.
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format))
}

// run wires every component and blocks until shutdown. Deferred cleanup
// always runs before main decides the exit code.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	telemetry.Init()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRatio:    cfg.TraceSampleRatio,
		ServiceName:    "tempvoice",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("tracing init: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Error("failed to shutdown tracer provider", slog.Any("err", err))
		}
	}()

	var opts []lifecycle.Option
	var history server.History
	if cfg.JournalEnabled() {
		database, err := db.Connect(ctx, cfg.DBDsn)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.Migrate(ctx, database); err != nil {
			return fmt.Errorf("migrate db: %w", err)
		}
		journal := db.NewJournal(database)
		opts = append(opts, lifecycle.WithJournal(journal))
		history = journal
	} else {
		slog.Info("channel journal disabled (DB_DSN not set)")
	}

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("discord session setup: %w", err)
	}

	reg := registry.New()
	ctrl := lifecycle.New(lifecycle.Config{
		CreatorChannelID: cfg.CreatorChannelID,
		CategoryID:       cfg.CategoryID,
		Position:         cfg.ChannelPosition,
	}, discord.NewClient(session), reg, opts...)
	bot := discord.NewBot(session, ctrl)

	slog.Info("starting bot",
		slog.String("creator_channel", cfg.CreatorChannelID),
		slog.String("category", cfg.CategoryID),
		slog.Int("position", cfg.ChannelPosition))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })

	// HTTP server (health/readiness/metrics/channels)
	if cfg.HTTPAddr != "" {
		deps := server.Deps{
			Registry:   reg,
			Ready:      bot.Ready,
			History:    history,
			Sweeper:    ctrl,
			AdminToken: cfg.AdminToken,
		}
		g.Go(func() error { return server.Start(gctx, deps, cfg.HTTPAddr) })
	}

	err = g.Wait()
	slog.Info("shutting down", slog.Int("tracked_channels", reg.Len()))
	return err
}
