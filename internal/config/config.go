package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// CasdoorConfig holds the identity-provider settings used by the auth
// middleware.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// AIConfig holds the external inference service settings. ServiceURL
// may be empty; the workflow then skips annotation entirely.
type AIConfig struct {
	ServiceURL     string
	DefaultModel   string
	TimeoutSeconds int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	Database DatabaseConfig
	RedisURL string
	Casdoor  CasdoorConfig
	AI       AIConfig

	// MediaRoot is the directory uploaded scan images are stored under.
	MediaRoot string

	// KafkaBrokers enables the kafka event publisher when non-empty.
	KafkaBrokers []string
}

// LoadConfig reads configuration from the environment, with .env as a
// development convenience.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "radiology"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		Casdoor: CasdoorConfig{
			Endpoint:     getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
			Cert:         getEnv("CASDOOR_CERT", ""),
			Organization: getEnv("CASDOOR_ORGANIZATION", ""),
			Application:  getEnv("CASDOOR_APPLICATION", ""),
		},
		AI: AIConfig{
			ServiceURL:     getEnv("AI_SERVICE_URL", ""),
			DefaultModel:   getEnv("AI_DEFAULT_MODEL", "resnet50"),
			TimeoutSeconds: getEnvInt("AI_TIMEOUT_SECONDS", 30),
		},
		MediaRoot: getEnv("MEDIA_ROOT", "media"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration incomplete: DB_HOST and DB_NAME are required")
	}

	return cfg, nil
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
