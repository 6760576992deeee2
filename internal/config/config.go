package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Global singleton so infrastructure helpers can reach config without wiring.
var globalConfig *Config

// Config holds all environment backed configuration for velvet-server.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Auth
	JWTSecret   string        `env:"JWT_SECRET_KEY,notEmpty"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"168h"`
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`

	// Database pool
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`

	// Generation backend (vLLM, OpenAI-compatible completions API)
	GenerationBaseURL     string        `env:"VLLM_BASE_URL" envDefault:"http://localhost:8001"`
	GenerationModel       string        `env:"VLLM_MODEL" envDefault:"Almawave/Velvet-14B"`
	GenerationTimeout     time.Duration `env:"VLLM_TIMEOUT" envDefault:"300s"`
	GenerationMaxTokens   int           `env:"VLLM_MAX_TOKENS" envDefault:"2048"`
	GenerationTemperature float32       `env:"VLLM_TEMPERATURE" envDefault:"0.7"`
	GenerationTopP        float32       `env:"VLLM_TOP_P" envDefault:"0.9"`

	// Grounding collaborators
	RetrievalBaseURL   string        `env:"RETRIEVAL_BASE_URL"`
	StatisticsBaseURL  string        `env:"BCRP_BASE_URL" envDefault:"https://estadisticas.bcrp.gob.pe/estadisticas/series/api"`
	GroundingTimeout   time.Duration `env:"GROUNDING_TIMEOUT" envDefault:"5s"`
	DefaultStatsSeries []string      `env:"BCRP_DEFAULT_SERIES" envDefault:"PN01288PM" envSeparator:","`

	// Orchestration
	HistoryWindow int `env:"HISTORY_WINDOW" envDefault:"10"`
	ChatListLimit int `env:"CHAT_LIST_LIMIT" envDefault:"50"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"velvet-server"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"velvet"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
// A .env file in the working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.HistoryWindow <= 0 {
		return nil, fmt.Errorf("HISTORY_WINDOW must be positive, got %d", cfg.HistoryWindow)
	}
	if cfg.GenerationTimeout <= 0 {
		return nil, fmt.Errorf("VLLM_TIMEOUT must be positive, got %s", cfg.GenerationTimeout)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

// GetGlobal returns the global config instance.
func GetGlobal() *Config {
	return globalConfig
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
