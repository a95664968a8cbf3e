package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Supported GEOCODER_PROVIDER values.
const (
	ProviderNominatim = "nominatim"
	ProviderGoogle    = "google"
)

// Config holds all tool settings, populated from environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	MetricsTextfile string

	// Geocoding.
	CachePath          string
	Provider           string
	GeocoderTimeout    time.Duration
	GeocoderRateLimit  float64
	NominatimURL       string
	NominatimUserAgent string
	GoogleAPIKey       string
	H3Resolution       int

	// Scraping.
	ScrapeIndexURL string
	ScrapeBaseURL  string
	ScrapeMonths   int
	ScrapeTimeout  time.Duration

	OutputDir string

	// Kafka sink, disabled when no brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether processed sightings are also published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODER_TIMEOUT", "10s"))
	if err != nil || geocoderTimeout <= 0 {
		return nil, errors.New("invalid GEOCODER_TIMEOUT")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODER_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid GEOCODER_RATE_LIMIT: must be a non-negative number")
	}

	months, err := strconv.Atoi(sharedcfg.EnvOrDefault("SCRAPE_MONTHS", "12"))
	if err != nil || months < 1 {
		return nil, errors.New("invalid SCRAPE_MONTHS: must be a positive integer")
	}

	scrapeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SCRAPE_TIMEOUT", "30s"))
	if err != nil || scrapeTimeout <= 0 {
		return nil, errors.New("invalid SCRAPE_TIMEOUT")
	}

	resolution, err := strconv.Atoi(sharedcfg.EnvOrDefault("H3_RESOLUTION", "3"))
	if err != nil || resolution < 0 || resolution > 15 {
		return nil, errors.New("invalid H3_RESOLUTION: must be 0-15")
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ""),
		ShutdownTimeout: shutdownTimeout,
		MetricsTextfile: sharedcfg.EnvOrDefault("METRICS_TEXTFILE", ""),

		CachePath:          sharedcfg.EnvOrDefault("GEOCODE_CACHE_PATH", "geocode_cache.json"),
		Provider:           sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim),
		GeocoderTimeout:    geocoderTimeout,
		GeocoderRateLimit:  rateLimit,
		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", ""),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", ""),
		GoogleAPIKey:       sharedcfg.EnvOrDefault("GOOGLE_MAPS_API_KEY", ""),
		H3Resolution:       resolution,

		ScrapeIndexURL: sharedcfg.EnvOrDefault("SCRAPE_INDEX_URL", ""),
		ScrapeBaseURL:  sharedcfg.EnvOrDefault("SCRAPE_BASE_URL", ""),
		ScrapeMonths:   months,
		ScrapeTimeout:  scrapeTimeout,

		OutputDir: sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "ufo-sightings"),
	}

	switch cfg.Provider {
	case ProviderNominatim:
	case ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, errors.New("GEOCODER_PROVIDER is google but GOOGLE_MAPS_API_KEY is not set")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q: must be %s or %s", cfg.Provider, ProviderNominatim, ProviderGoogle)
	}

	return cfg, nil
}
