package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Bot       BotConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	AI        AIConfig
	Crypto    CryptoConfig
	Dashboard DashboardConfig

	Env      string `env:"ENV" env-default:"development"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

type BotConfig struct {
	Token string `env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	// Cron spec for the recurring-transaction sweep.
	RecurringCron string `env:"RECURRING_CRON" env-default:"0 9 * * *"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DB       string `env:"POSTGRES_DB" env-default:"gastosbot"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DB, c.SSLMode)
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type AIConfig struct {
	APIKey       string `env:"GROQ_API_KEY" env-required:"true"`
	BaseURL      string `env:"GROQ_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
	Model        string `env:"GROQ_MODEL" env-default:"llama-3.3-70b-versatile"`
	VisionModel  string `env:"GROQ_VISION_MODEL" env-default:"meta-llama/llama-4-scout-17b-16e-instruct"`
	WhisperModel string `env:"GROQ_WHISPER_MODEL" env-default:"whisper-large-v3-turbo"`
}

type CryptoConfig struct {
	// Base64-encoded 32-byte key. Losing it makes stored descriptions
	// unrecoverable; there is no programmatic guard for that.
	EncryptionKey string `env:"ENCRYPTION_KEY" env-required:"true"`
}

type DashboardConfig struct {
	HTTPPort  string `env:"DASHBOARD_HTTP_PORT" env-default:"8080"`
	JWTSecret string `env:"DASHBOARD_JWT_SECRET" env-default:""`
	BaseURL   string `env:"DASHBOARD_BASE_URL" env-default:"http://localhost:8080"`
}

func LoadConfig(cfg interface{}) error {
	// .env is optional, real env vars win either way.
	_ = godotenv.Load()
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func MustLoadConfig(cfg interface{}) {
	if err := LoadConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}
