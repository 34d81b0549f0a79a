package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoding providers accepted by GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
	ProviderNone      = "none"
)

// ErrUnknownProvider is returned when GEOCODER_PROVIDER names no known provider.
var ErrUnknownProvider = errors.New("unknown geocoder provider")

// DefaultSubreddits are the communities watched when REDDIT_SUBREDDITS is unset.
var DefaultSubreddits = []string{
	"depression", "anxiety", "mentalhealth", "SuicideWatch",
	"offmychest", "lonely", "bipolar", "ptsd",
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
	AnalyzeWorkers     int

	// Geocoding configuration.
	GeocoderProvider     string
	GeocoderTimeout      time.Duration
	GeocoderRateInterval time.Duration
	GeocoderCacheSize    int
	GeocoderUserAgent    string
	NominatimURL         string
	MapboxToken          string

	// Local store and feed ingestion.
	SQLitePath     string
	Subreddits     []string
	RedditBaseURL  string
	FeedLookback   time.Duration
	FeedRetryLimit uint
}

// GeocodingEnabled reports whether a geocoding provider is configured.
func (c *Config) GeocodingEnabled() bool {
	return c.GeocoderProvider != ProviderNone
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	rateInterval, err := parsePositiveDuration("GEOCODER_RATE_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	lookback, err := parsePositiveDuration("FEED_LOOKBACK", "168h")
	if err != nil {
		return nil, err
	}

	provider, err := parseProvider(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-social-posts"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "analyzed-social-posts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "crisis-signal-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		AnalyzeWorkers:     parsePositiveInt("ANALYZE_WORKERS", 4),

		GeocoderProvider:     provider,
		GeocoderTimeout:      geocoderTimeout,
		GeocoderRateInterval: rateInterval,
		GeocoderCacheSize:    parsePositiveInt("GEOCODER_CACHE_SIZE", 1000),
		GeocoderUserAgent:    sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "crisis-signal-etl/1.0"),
		NominatimURL:         sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		MapboxToken:          os.Getenv("MAPBOX_TOKEN"),

		SQLitePath:     sharedcfg.EnvOrDefault("SQLITE_PATH", "crisis.db"),
		Subreddits:     parseList(os.Getenv("REDDIT_SUBREDDITS"), DefaultSubreddits),
		RedditBaseURL:  sharedcfg.EnvOrDefault("REDDIT_BASE_URL", "https://www.reddit.com"),
		FeedLookback:   lookback,
		FeedRetryLimit: uint(parsePositiveInt("FEED_RETRY_ATTEMPTS", 3)),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.GeocoderProvider == ProviderMapbox && cfg.MapboxToken == "" {
		return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseProvider(s string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(s)); p {
	case ProviderNominatim, ProviderMapbox, ProviderNone:
		return p, nil
	default:
		return "", fmt.Errorf("GEOCODER_PROVIDER %q: %w", s, ErrUnknownProvider)
	}
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseList(value string, fallback []string) []string {
	items := sharedcfg.ParseBrokers(value)
	if len(items) == 0 {
		return fallback
	}
	return items
}
