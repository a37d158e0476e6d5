package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DevMode  bool   `env:"DEV_MODE" envDefault:"false"`

	// Storefront
	AllowedOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	StaticDir         string   `env:"STATIC_DIR"`
	FunctionBasePath  string   `env:"FUNCTION_BASE_PATH" envDefault:"/.netlify/functions"`
	ChargeDescription string   `env:"CHARGE_DESCRIPTION" envDefault:"Manual Do Milhão"`

	// HTTP client
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"50"`

	// Observability
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Pix  PixConfig
	Card CardConfig
}

// PixConfig configures the Vizzion PIX gateway.
type PixConfig struct {
	PublicKey        string        `env:"VIZZION_PUBLIC_KEY"`
	SecretKey        string        `env:"VIZZION_SECRET_KEY"`
	AccountID        string        `env:"VIZZION_ACCOUNT_ID"`
	BaseURL          string        `env:"VIZZION_API_URL" envDefault:"https://app.vizzionpay.com/api/v1"`
	CandidateTimeout time.Duration `env:"VIZZION_CANDIDATE_TIMEOUT" envDefault:"10s"`
}

// CardConfig configures the Kiwify card gateway.
type CardConfig struct {
	ClientID     string `env:"KIWIFY_CLIENT_ID"`
	ClientSecret string `env:"KIWIFY_CLIENT_SECRET"`
	BaseURL      string `env:"KIWIFY_API_URL" envDefault:"https://public-api.kiwify.com/v1"`
	// TokenSafetyMargin is subtracted from the declared token lifetime.
	TokenSafetyMargin time.Duration `env:"KIWIFY_TOKEN_SAFETY_MARGIN" envDefault:"1h"`
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
