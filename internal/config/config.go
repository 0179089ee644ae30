package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	RequestTimeoutSeconds int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	// Emergency workflow knobs. The country calling code replaces a leading
	// "0" when normalizing contact numbers; the nearby radius bounds the
	// responder proximity filter; the SMS pacing spaces consecutive compose
	// dialogs on the device.
	DefaultCountryCode string  `mapstructure:"DEFAULT_COUNTRY_CODE"`
	NearbyRadiusMeters float64 `mapstructure:"NEARBY_RADIUS_METERS"`
	SMSPacingMs        int     `mapstructure:"SMS_PACING_MS"`

	// Optional Kafka outbox for downstream dispatch integrations. Empty
	// brokers disables publishing; staged events stay in the outbox table.
	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("DEFAULT_COUNTRY_CODE", "+972")
	v.SetDefault("NEARBY_RADIUS_METERS", 200)
	v.SetDefault("SMS_PACING_MS", 1500)
	v.SetDefault("KAFKA_TOPIC", "emergency-events")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("DEFAULT_COUNTRY_CODE")
	v.BindEnv("NEARBY_RADIUS_METERS")
	v.BindEnv("SMS_PACING_MS")
	v.BindEnv("KAFKA_BROKERS")
	v.BindEnv("KAFKA_TOPIC")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.KafkaBrokers == nil {
		brokers := v.GetString("KAFKA_BROKERS")
		if brokers != "" {
			cfg.KafkaBrokers = strings.Split(brokers, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure AUTH_ISSUER for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a token verification source (issuer/JWKS or an explicit signing key) is
// required, and the emergency workflow knobs must be sane.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"one of AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q; "+
				"refusing to start without authentication configuration", c.Env)
	}

	if !strings.HasPrefix(c.DefaultCountryCode, "+") {
		return fmt.Errorf("DEFAULT_COUNTRY_CODE must start with '+', got %q", c.DefaultCountryCode)
	}
	if c.NearbyRadiusMeters <= 0 {
		return fmt.Errorf("NEARBY_RADIUS_METERS must be positive, got %v", c.NearbyRadiusMeters)
	}
	if c.SMSPacingMs < 0 {
		return fmt.Errorf("SMS_PACING_MS must not be negative, got %d", c.SMSPacingMs)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return nil
}
