package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Optimizer OptimizerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	JWT       JWTConfig
	CORS      CORSConfig
	MQTT      MQTTConfig
}

type ServerConfig struct {
	Port        int
	MaxUploadMB int
}

// OptimizerConfig points at the external optimization service. Sub-paths
// /optimize and /predict are appended to BaseURL.
type OptimizerConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MockFallback bool
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type SessionConfig struct {
	TTL time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type CORSConfig struct {
	AllowedOrigins string
}

// MQTTConfig is optional; an empty URL disables signal publication.
type MQTTConfig struct {
	URL         string
	TopicPrefix string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUploadMB, err := getIntEnv("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}

	optimizerTimeout, err := getIntEnv("OPTIMIZER_TIMEOUT_SEC", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_TIMEOUT_SEC: %w", err)
	}
	if optimizerTimeout <= 0 {
		return nil, fmt.Errorf("invalid OPTIMIZER_TIMEOUT_SEC: must be positive, got %d", optimizerTimeout)
	}

	mockFallback, err := getBoolEnv("OPTIMIZER_MOCK_FALLBACK", true)
	if err != nil {
		return nil, fmt.Errorf("invalid OPTIMIZER_MOCK_FALLBACK: %w", err)
	}

	dbEnabled, err := getBoolEnv("DB_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_ENABLED: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	sessionTTL, err := getIntEnv("SESSION_TTL_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        serverPort,
			MaxUploadMB: maxUploadMB,
		},
		Optimizer: OptimizerConfig{
			BaseURL:      strings.TrimRight(getEnv("OPTIMIZER_URL", "http://127.0.0.1:5000"), "/"),
			Timeout:      time.Duration(optimizerTimeout) * time.Second,
			MockFallback: mockFallback,
		},
		Database: DatabaseConfig{
			Enabled:  dbEnabled,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "optiflow"),
			Password: getEnv("DB_PASSWORD", "optiflow_dev_password"),
			Name:     getEnv("DB_NAME", "optiflow"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Session: SessionConfig{
			TTL: time.Duration(sessionTTL) * time.Hour,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "optiflow-dev-secret"),
			ExpiryHours: jwtExpiry,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		MQTT: MQTTConfig{
			URL:         getEnv("MQTT_URL", ""),
			TopicPrefix: strings.TrimRight(getEnv("MQTT_TOPIC_PREFIX", "optiflow/signals"), "/"),
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
