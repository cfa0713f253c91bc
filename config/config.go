// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Discord credentials and channel ids are required; use Validate before connecting.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultChannelPosition is where new channels are placed in the category.
const DefaultChannelPosition = 2

// DefaultHTTPAddr is the listen address for health and metrics.
const DefaultHTTPAddr = ":8080"

// DefaultTraceSampleRatio samples every trace when tracing is enabled.
const DefaultTraceSampleRatio = 1.0

type Config struct {
	// Discord
	DiscordToken     string
	CreatorChannelID string
	CategoryID       string
	ChannelPosition  int

	// HTTP (health/metrics); empty disables the server
	HTTPAddr   string
	AdminToken string

	// Optional channel event journal
	DBDsn string

	// Tracing; empty OTLPEndpoint disables export
	OTLPEndpoint     string
	OTLPInsecure     bool
	TraceSampleRatio float64
}

// Load reads environment variables and applies defaults. It doesn't fail if Discord settings are missing;
// call Validate() before starting the bot.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	if cfg.DiscordToken == "" {
		// legacy name used by earlier deployments
		cfg.DiscordToken = os.Getenv("TOKEN")
	}
	cfg.DiscordToken = strings.TrimPrefix(strings.TrimSpace(cfg.DiscordToken), "Bot ")
	cfg.CreatorChannelID = strings.TrimSpace(os.Getenv("CHANNEL_CREATOR_ID"))
	cfg.CategoryID = strings.TrimSpace(os.Getenv("NEW_CHANNEL_CATEGORY_ID"))

	cfg.ChannelPosition = DefaultChannelPosition
	if v := os.Getenv("NEW_CHANNEL_POSITION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid NEW_CHANNEL_POSITION %q: want a non-negative integer", v)
		}
		cfg.ChannelPosition = n
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	switch strings.ToLower(cfg.HTTPAddr) {
	case "":
		cfg.HTTPAddr = DefaultHTTPAddr
	case "off", "disabled", "none":
		cfg.HTTPAddr = ""
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.OTLPInsecure = true
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OTEL_EXPORTER_OTLP_INSECURE %q: %w", v, err)
		}
		cfg.OTLPInsecure = b
	}
	cfg.TraceSampleRatio = DefaultTraceSampleRatio
	if v := os.Getenv("OTEL_TRACES_SAMPLER_ARG"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return nil, fmt.Errorf("invalid OTEL_TRACES_SAMPLER_ARG %q: want a ratio between 0 and 1", v)
		}
		cfg.TraceSampleRatio = f
	}

	return cfg, nil
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.DiscordToken == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if c.CreatorChannelID == "" {
		missing = append(missing, "CHANNEL_CREATOR_ID")
	}
	if c.CategoryID == "" {
		missing = append(missing, "NEW_CHANNEL_CATEGORY_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing discord env: require %s", strings.Join(missing, ", "))
	}
	if c.CreatorChannelID == c.CategoryID {
		return errors.New("CHANNEL_CREATOR_ID and NEW_CHANNEL_CATEGORY_ID must differ")
	}
	return nil
}

// TracingEnabled reports whether an OTLP endpoint was configured.
func (c *Config) TracingEnabled() bool { return c.OTLPEndpoint != "" }

// JournalEnabled reports whether a Postgres DSN was configured.
func (c *Config) JournalEnabled() bool { return c.DBDsn != "" }
