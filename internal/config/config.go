// Package config loads process configuration from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultPort             = 3000
	DefaultForwardTimeout   = 5 * time.Second
	DefaultRetentionWindow  = 6 * time.Minute
	DefaultDedupMaxEntries  = 100000
	DefaultShutdownTimeout  = 10 * time.Second
	defaultIngestPathFormat = "http://localhost:%d/pets"
)

var (
	// ErrMissingToken is returned when no Discord bot token is configured.
	ErrMissingToken = errors.New("DISCORD_TOKEN is not set")
	// ErrMissingChannels is returned when the channel allow-list is empty.
	ErrMissingChannels = errors.New("CHANNEL_IDS is not set")
)

// Config is the resolved process configuration.
type Config struct {
	DiscordToken        string
	ChannelIDs          []string
	Port                int
	IngestURL           string
	ForwardTimeout      time.Duration
	RetentionWindow     time.Duration
	DedupTTL            time.Duration
	DedupMaxEntries     int
	LogLevel            slog.Level
	AWSRegion           string
	QueueURL            string
	CloudWatchNamespace string
}

// FanoutEnabled reports whether any AWS sink is configured.
func (c Config) FanoutEnabled() bool {
	return c.QueueURL != "" || c.CloudWatchNamespace != ""
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type configFile struct {
	Discord struct {
		Token      string   `yaml:"token"`
		ChannelIDs []string `yaml:"channel_ids"`
	} `yaml:"discord"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Listener struct {
		IngestURL      string `yaml:"ingest_url"`
		ForwardTimeout string `yaml:"forward_timeout"`
	} `yaml:"listener"`
	Retention struct {
		Window string `yaml:"window"`
	} `yaml:"retention"`
	Dedup struct {
		TTL        string `yaml:"ttl"`
		MaxEntries *int   `yaml:"max_entries"`
	} `yaml:"dedup"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	AWS struct {
		Region              string `yaml:"region"`
		QueueURL            string `yaml:"queue_url"`
		CloudWatchNamespace string `yaml:"cloudwatch_namespace"`
	} `yaml:"aws"`
}

// Load resolves configuration. path may be empty; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:            DefaultPort,
		ForwardTimeout:  DefaultForwardTimeout,
		RetentionWindow: DefaultRetentionWindow,
		DedupMaxEntries: DefaultDedupMaxEntries,
		LogLevel:        slog.LevelInfo,
	}

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.IngestURL == "" {
		cfg.IngestURL = fmt.Sprintf(defaultIngestPathFormat, cfg.Port)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Discord.Token != "" {
		cfg.DiscordToken = f.Discord.Token
	}
	if ids := cleanIDs(f.Discord.ChannelIDs); len(ids) > 0 {
		cfg.ChannelIDs = ids
	}
	if f.Server.Port > 0 {
		cfg.Port = f.Server.Port
	}
	if f.Listener.IngestURL != "" {
		cfg.IngestURL = f.Listener.IngestURL
	}
	if err := setDuration(&cfg.ForwardTimeout, "listener.forward_timeout", f.Listener.ForwardTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.RetentionWindow, "retention.window", f.Retention.Window); err != nil {
		return err
	}
	if err := setDuration(&cfg.DedupTTL, "dedup.ttl", f.Dedup.TTL); err != nil {
		return err
	}
	if f.Dedup.MaxEntries != nil {
		cfg.DedupMaxEntries = *f.Dedup.MaxEntries
	}
	if err := setLevel(&cfg.LogLevel, "log.level", f.Log.Level); err != nil {
		return err
	}
	if f.AWS.Region != "" {
		cfg.AWSRegion = f.AWS.Region
	}
	if f.AWS.QueueURL != "" {
		cfg.QueueURL = f.AWS.QueueURL
	}
	if f.AWS.CloudWatchNamespace != "" {
		cfg.CloudWatchNamespace = f.AWS.CloudWatchNamespace
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	if raw := os.Getenv("CHANNEL_IDS"); raw != "" {
		cfg.ChannelIDs = cleanIDs(strings.Split(raw, ","))
	}
	if raw := os.Getenv("SERVER_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse SERVER_PORT: %w", err)
		}
		cfg.Port = port
	}
	cfg.IngestURL = envString("INGEST_URL", cfg.IngestURL)
	if err := setDuration(&cfg.ForwardTimeout, "FORWARD_TIMEOUT", os.Getenv("FORWARD_TIMEOUT")); err != nil {
		return err
	}
	if err := setDuration(&cfg.RetentionWindow, "RETENTION_WINDOW", os.Getenv("RETENTION_WINDOW")); err != nil {
		return err
	}
	if err := setDuration(&cfg.DedupTTL, "DEDUP_TTL", os.Getenv("DEDUP_TTL")); err != nil {
		return err
	}
	if raw := os.Getenv("DEDUP_MAX_ENTRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("parse DEDUP_MAX_ENTRIES: %w", err)
		}
		cfg.DedupMaxEntries = n
	}
	if err := setLevel(&cfg.LogLevel, "LOG_LEVEL", os.Getenv("LOG_LEVEL")); err != nil {
		return err
	}
	cfg.AWSRegion = envString("AWS_REGION", cfg.AWSRegion)
	cfg.QueueURL = envString("SIGHTINGS_QUEUE_URL", cfg.QueueURL)
	cfg.CloudWatchNamespace = envString("CLOUDWATCH_NAMESPACE", cfg.CloudWatchNamespace)
	return nil
}

func (c Config) validate() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	if len(c.ChannelIDs) == 0 {
		return ErrMissingChannels
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ForwardTimeout <= 0 {
		return fmt.Errorf("invalid forward timeout %s", c.ForwardTimeout)
	}
	if c.RetentionWindow <= 0 {
		return fmt.Errorf("invalid retention window %s", c.RetentionWindow)
	}
	if c.DedupTTL < 0 || c.DedupMaxEntries < 0 {
		return fmt.Errorf("invalid dedup bounds ttl=%s max_entries=%d", c.DedupTTL, c.DedupMaxEntries)
	}
	return nil
}

func cleanIDs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func setDuration(dst *time.Duration, name, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*dst = d
	return nil
}

func setLevel(dst *slog.Level, name, raw string) error {
	if raw == "" {
		return nil
	}
	if err := dst.UnmarshalText([]byte(raw)); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func envString(name, fallback string) string {
	if raw := os.Getenv(name); raw != "" {
		return raw
	}
	return fallback
}
