package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Enrichment   EnrichmentConfig
	Segmentation SegmentationConfig
	Audit        AuditConfig
	Pipeline     PipelineConfig
	OTEL         OTELConfig
}

// AppConfig holds process-level settings
type AppConfig struct {
	Env         string
	ServiceName string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enrichment providers
const (
	EnrichmentProviderOpenAI = "openai"
	EnrichmentProviderGemini = "gemini"
)

// EnrichmentConfig holds the text-generation / vision service configuration.
// The openai provider speaks the OpenAI chat completions protocol, so BaseURL
// may point at any compatible endpoint (Groq, OpenAI, a local gateway).
type EnrichmentConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	TextModel      string
	VisionModel    string
	RateLimitRPM   int
	RateLimitBurst int
	Timeout        time.Duration
}

// SegmentationConfig holds the segmentation model worker configuration
type SegmentationConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

// AuditConfig selects where completed assessments are logged
type AuditConfig struct {
	CSVPath         string
	PostgresEnabled bool
	EventsEnabled   bool
}

// PipelineConfig holds assessment pipeline settings
type PipelineConfig struct {
	ProtocolLibraryPath     string
	ResearchCacheTTLSeconds int
	BatchConcurrency        int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "development"),
			ServiceName: getEnv("SERVICE_NAME", "woundsense"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "woundsense"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Enrichment: EnrichmentConfig{
			Provider:       getEnv("ENRICHMENT_PROVIDER", EnrichmentProviderOpenAI),
			APIKey:         getEnv("ENRICHMENT_API_KEY", os.Getenv("GROQ_API_KEY")),
			BaseURL:        getEnv("ENRICHMENT_BASE_URL", "https://api.groq.com/openai/v1"),
			TextModel:      getEnv("ENRICHMENT_TEXT_MODEL", "llama-3.3-70b-versatile"),
			VisionModel:    getEnv("ENRICHMENT_VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
			RateLimitRPM:   getEnvAsInt("ENRICHMENT_RATE_LIMIT_RPM", 30),
			RateLimitBurst: getEnvAsInt("ENRICHMENT_RATE_LIMIT_BURST", 3),
			Timeout:        getEnvAsDuration("ENRICHMENT_TIMEOUT", 60*time.Second),
		},
		Segmentation: SegmentationConfig{
			Enabled:  getEnvAsBool("SEGMENTATION_ENABLED", false),
			Endpoint: getEnv("SEGMENTATION_ENDPOINT", "http://localhost:9000"),
			Timeout:  getEnvAsDuration("SEGMENTATION_TIMEOUT", 30*time.Second),
		},
		Audit: AuditConfig{
			CSVPath:         getEnv("AUDIT_CSV_PATH", "static/assessments_history.csv"),
			PostgresEnabled: getEnvAsBool("AUDIT_POSTGRES_ENABLED", false),
			EventsEnabled:   getEnvAsBool("AUDIT_EVENTS_ENABLED", false),
		},
		Pipeline: PipelineConfig{
			ProtocolLibraryPath:     getEnv("PROTOCOL_LIBRARY_PATH", ""),
			ResearchCacheTTLSeconds: getEnvAsInt("RESEARCH_CACHE_TTL_SECONDS", 0),
			BatchConcurrency:        getEnvAsInt("BATCH_CONCURRENCY", 4),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "woundsense"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Enrichment.Provider {
	case EnrichmentProviderOpenAI, EnrichmentProviderGemini:
	default:
		return fmt.Errorf("unknown ENRICHMENT_PROVIDER %q (want %q or %q)",
			c.Enrichment.Provider, EnrichmentProviderOpenAI, EnrichmentProviderGemini)
	}
	if c.Pipeline.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", c.Pipeline.BatchConcurrency)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
