package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	NarrativeTimeout   time.Duration
	PubMedTimeout      time.Duration
	MaxRequestBodySize int64

	OpenAIAPIKey string
	OpenAIModel  string
	PubMedAPIKey string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	AzureAccount   string
	AzureKey       string
	AzureContainer string

	ModelDir string

	// Scoring policy. The reward weight and alert threshold are fixed
	// constants in the default deployment but stay configurable.
	MinResolution        int
	MonteCarloSamples    int
	SearchIterations     int
	VariancePenalty      float64
	UncertaintyThreshold float64
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// ArchiveEnabled reports whether blob archiving of normalized images is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.AzureAccount != "" && c.AzureKey != "" && c.AzureContainer != ""
}

func LoadFromEnv() (*Config, error) {
	// Optional .env file, same convention as local MongoDB/OpenAI setups
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		NarrativeTimeout:   parseDurationOrDefault("NARRATIVE_TIMEOUT", 60*time.Second),
		PubMedTimeout:      parseDurationOrDefault("PUBMED_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 20*1024*1024), // 20MB

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		PubMedAPIKey: os.Getenv("PUBMED_API_KEY"),

		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017/"),
		MongoDatabase:   getEnvOrDefault("MONGO_DATABASE", "radiology_db"),
		MongoCollection: getEnvOrDefault("MONGO_COLLECTION", "ai_reports"),

		AzureAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer: os.Getenv("AZURE_CONTAINER"),

		ModelDir: getEnvOrDefault("MODEL_DIR", "models"),

		MinResolution:        int(parseIntOrDefault("MIN_RESOLUTION", 512)),
		MonteCarloSamples:    int(parseIntOrDefault("MC_SAMPLES", 5)),
		SearchIterations:     int(parseIntOrDefault("SEARCH_ITERATIONS", 3)),
		VariancePenalty:      parseFloatOrDefault("VARIANCE_PENALTY", 0.5),
		UncertaintyThreshold: parseFloatOrDefault("UNCERTAINTY_THRESHOLD", 0.1),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.NarrativeTimeout <= 0 || cfg.PubMedTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, narrative=%s, pubmed=%s)",
			cfg.RequestTimeout, cfg.NarrativeTimeout, cfg.PubMedTimeout)
	}
	if cfg.MinResolution <= 0 {
		return nil, fmt.Errorf("MIN_RESOLUTION must be > 0 (got %d)", cfg.MinResolution)
	}
	if cfg.MonteCarloSamples < 1 {
		return nil, fmt.Errorf("MC_SAMPLES must be >= 1 (got %d)", cfg.MonteCarloSamples)
	}
	if cfg.SearchIterations < 0 {
		return nil, fmt.Errorf("SEARCH_ITERATIONS must be >= 0 (got %d)", cfg.SearchIterations)
	}
	if cfg.VariancePenalty < 0 || cfg.UncertaintyThreshold < 0 {
		return nil, fmt.Errorf("VARIANCE_PENALTY and UNCERTAINTY_THRESHOLD must be >= 0")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}
