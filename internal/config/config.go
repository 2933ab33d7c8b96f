package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Feeds    FeedsConfig    `yaml:"feeds"`
	Places   []Place        `yaml:"places"`
	Queries  QueriesConfig  `yaml:"queries"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedditConfig holds the search API credentials.
type RedditConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	UserAgent    string `yaml:"user_agent"`
}

// ScrapeConfig configures the ingestion run. The item and query delays are a
// fair-use throttling contract toward the search API, not tuning knobs: they
// may be adjusted here but the runner always honors them.
type ScrapeConfig struct {
	PostsPerQuery  int    `yaml:"posts_per_query"`
	Sort           string `yaml:"sort"`
	ItemDelay      string `yaml:"item_delay"`
	QueryDelay     string `yaml:"query_delay"`
	RequestTimeout string `yaml:"request_timeout"`
}

// ParseItemDelay returns the per-item delay as time.Duration.
func (s ScrapeConfig) ParseItemDelay() time.Duration {
	d, err := time.ParseDuration(s.ItemDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// ParseQueryDelay returns the between-queries delay as time.Duration.
func (s ScrapeConfig) ParseQueryDelay() time.Duration {
	d, err := time.ParseDuration(s.QueryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// ParseRequestTimeout returns the per-request timeout as time.Duration.
func (s ScrapeConfig) ParseRequestTimeout() time.Duration {
	d, err := time.ParseDuration(s.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FeedsConfig configures the optional tourism news feed collector.
type FeedsConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS/Atom feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Place is one gazetteer entry. List order matters: location resolution takes
// the first name that matches, so aliases must follow their canonical entry.
type Place struct {
	Name      string  `yaml:"name"`
	Type      string  `yaml:"type"` // "Ville" or "Village"
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// QueriesConfig holds the search query templates. Each template contains
// exactly one %s slot for the place name.
type QueriesConfig struct {
	Templates []string `yaml:"templates"`
}

// ScheduleConfig configures the daemon scrape interval.
type ScheduleConfig struct {
	ScrapeInterval string `yaml:"scrape_interval"`
}

// ParseScrapeInterval returns the scrape interval as time.Duration.
func (s ScheduleConfig) ParseScrapeInterval() time.Duration {
	d, err := time.ParseDuration(s.ScrapeInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AlertsConfig configures run-summary notification destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook notifications.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook notifications.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook notifications.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// PlaceNames returns the gazetteer names in configured order.
func (c *Config) PlaceNames() []string {
	names := make([]string, len(c.Places))
	for i, p := range c.Places {
		names[i] = p.Name
	}
	return names
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./atlaswatch.db"},
		Reddit: RedditConfig{
			UserAgent: "atlaswatch/1.0",
		},
		Scrape: ScrapeConfig{
			PostsPerQuery:  100,
			Sort:           "new",
			ItemDelay:      "100ms",
			QueryDelay:     "1s",
			RequestTimeout: "30s",
		},
		Feeds: FeedsConfig{
			Enabled: false,
			Feeds: []FeedItem{
				{Name: "Morocco World News", URL: "https://www.moroccoworldnews.com/feed"},
				{Name: "The North Africa Post", URL: "https://northafricapost.com/feed"},
			},
		},
		Places: []Place{
			{Name: "Marrakech", Type: "Ville", Latitude: 31.6295, Longitude: -7.9811},
			{Name: "Fes", Type: "Ville", Latitude: 34.0331, Longitude: -5.0003},
			{Name: "Agadir", Type: "Ville", Latitude: 30.4278, Longitude: -9.5981},
			{Name: "Essaouira", Type: "Ville", Latitude: 31.5085, Longitude: -9.7595},
			{Name: "El Jadida", Type: "Ville", Latitude: 33.2316, Longitude: -8.5007},
			{Name: "Marrakesh", Type: "Ville", Latitude: 31.6295, Longitude: -7.9811},
			{Name: "Kenitra", Type: "Ville", Latitude: 34.2610, Longitude: -6.5802},
			{Name: "Ifrane", Type: "Ville", Latitude: 33.5228, Longitude: -5.1106},
			{Name: "Al Hoceima", Type: "Ville", Latitude: 35.2517, Longitude: -3.9372},
			{Name: "Nador", Type: "Ville", Latitude: 35.1681, Longitude: -2.9335},
			{Name: "Saidia", Type: "Ville", Latitude: 35.0856, Longitude: -2.2389},
			{Name: "Volubilis", Type: "Village", Latitude: 34.0736, Longitude: -5.5547},
			{Name: "Taroudant", Type: "Ville", Latitude: 30.4703, Longitude: -8.8766},
			{Name: "Zagora", Type: "Ville", Latitude: 30.3306, Longitude: -5.8381},
			{Name: "Errachidia", Type: "Ville", Latitude: 31.9314, Longitude: -4.4247},
		},
		Queries: QueriesConfig{
			Templates: []string{
				"visit %s",
				"travel to %s",
				"%s tourism",
				"things to do in %s",
				"is %s safe for tourists",
				"%s travel guide",
				"%s backpacking",
				"must see in %s",
				"vacation in %s",
				"%s hotel reviews",
			},
		},
		Schedule: ScheduleConfig{ScrapeInterval: "12h"},
		Server:   ServerConfig{Port: 8080},
		Alerts:   AlertsConfig{},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if len(c.Places) == 0 {
		return fmt.Errorf("config: places list is empty")
	}
	if len(c.Queries.Templates) == 0 {
		return fmt.Errorf("config: query templates list is empty")
	}
	if c.Scrape.PostsPerQuery <= 0 {
		return fmt.Errorf("config: posts_per_query must be positive, got %d", c.Scrape.PostsPerQuery)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ATLASWATCH_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		cfg.Reddit.UserAgent = v
	}
	if v := os.Getenv("ATLASWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
