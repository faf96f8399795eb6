package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"SERVER_PORT", "MAX_UPLOAD_MB",
	"OPTIMIZER_URL", "OPTIMIZER_TIMEOUT_SEC", "OPTIMIZER_MOCK_FALLBACK",
	"DB_ENABLED", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	"SESSION_TTL_HOURS", "JWT_SECRET", "JWT_EXPIRY_HOURS",
	"CORS_ALLOWED_ORIGINS", "MQTT_URL", "MQTT_TOPIC_PREFIX",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		os.Unsetenv(key)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "optiflow",
		Password: "secret",
		Name:     "optiflow",
		SSLMode:  "disable",
	}
	dsn := db.GetDSN()

	expected := "host=localhost port=5432 user=optiflow password=secret dbname=optiflow sslmode=disable"
	if dsn != expected {
		t.Errorf("GetDSN() = %q, want %q", dsn, expected)
	}
}

func TestGetDSNCustomValues(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "admin",
		Password: "p@ss",
		Name:     "mydb",
		SSLMode:  "require",
	}
	dsn := db.GetDSN()

	if !strings.Contains(dsn, "host=db.example.com") {
		t.Errorf("DSN missing host, got: %s", dsn)
	}
	if !strings.Contains(dsn, "port=5433") {
		t.Errorf("DSN missing port, got: %s", dsn)
	}
	if !strings.Contains(dsn, "sslmode=require") {
		t.Errorf("DSN missing sslmode, got: %s", dsn)
	}
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.local", Port: 6380}
	if got := r.Addr(); got != "cache.local:6380" {
		t.Errorf("Addr() = %q, want %q", got, "cache.local:6380")
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("TEST_CONFIG_VAR")
	if got := getEnv("TEST_CONFIG_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}

	os.Setenv("TEST_CONFIG_VAR", "custom")
	defer os.Unsetenv("TEST_CONFIG_VAR")
	if got := getEnv("TEST_CONFIG_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %q, want %q", got, "custom")
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Run("fallback when unset", func(t *testing.T) {
		os.Unsetenv("TEST_INT_VAR")
		got, err := getIntEnv("TEST_INT_VAR", 8080)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 8080 {
			t.Errorf("getIntEnv() = %d, want %d", got, 8080)
		}
	})

	t.Run("parses valid int", func(t *testing.T) {
		os.Setenv("TEST_INT_VAR", "9090")
		defer os.Unsetenv("TEST_INT_VAR")
		got, err := getIntEnv("TEST_INT_VAR", 8080)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 9090 {
			t.Errorf("getIntEnv() = %d, want %d", got, 9090)
		}
	})

	t.Run("error on invalid int", func(t *testing.T) {
		os.Setenv("TEST_INT_VAR", "not_int")
		defer os.Unsetenv("TEST_INT_VAR")
		_, err := getIntEnv("TEST_INT_VAR", 8080)
		if err == nil {
			t.Error("expected error for invalid int value")
		}
	})
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    bool
		wantErr bool
	}{
		{"unset uses fallback", "", true, false},
		{"false", "false", false, false},
		{"zero", "0", false, false},
		{"true", "true", true, false},
		{"garbage", "maybe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				os.Unsetenv("TEST_BOOL_VAR")
			} else {
				os.Setenv("TEST_BOOL_VAR", tt.value)
				defer os.Unsetenv("TEST_BOOL_VAR")
			}
			got, err := getBoolEnv("TEST_BOOL_VAR", true)
			if (err != nil) != tt.wantErr {
				t.Fatalf("getBoolEnv() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("getBoolEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB != 10 {
		t.Errorf("Server.MaxUploadMB = %d, want 10", cfg.Server.MaxUploadMB)
	}
	if cfg.Optimizer.BaseURL != "http://127.0.0.1:5000" {
		t.Errorf("Optimizer.BaseURL = %q", cfg.Optimizer.BaseURL)
	}
	if cfg.Optimizer.Timeout != 30*time.Second {
		t.Errorf("Optimizer.Timeout = %s, want 30s", cfg.Optimizer.Timeout)
	}
	if !cfg.Optimizer.MockFallback {
		t.Error("Optimizer.MockFallback should default to true")
	}
	if !cfg.Database.Enabled {
		t.Error("Database.Enabled should default to true")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want 6379", cfg.Redis.Port)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL = %s, want 24h", cfg.Session.TTL)
	}
	if cfg.JWT.ExpiryHours != 24 {
		t.Errorf("JWT.ExpiryHours = %d, want 24", cfg.JWT.ExpiryHours)
	}
	if cfg.CORS.AllowedOrigins != "*" {
		t.Errorf("CORS.AllowedOrigins = %q, want %q", cfg.CORS.AllowedOrigins, "*")
	}
	if cfg.MQTT.URL != "" {
		t.Errorf("MQTT.URL = %q, want empty", cfg.MQTT.URL)
	}
	if cfg.MQTT.TopicPrefix != "optiflow/signals" {
		t.Errorf("MQTT.TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
}

func TestLoadConfigCustom(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("SERVER_PORT", "3000")
	os.Setenv("OPTIMIZER_URL", "http://optimizer:5001/")
	os.Setenv("OPTIMIZER_TIMEOUT_SEC", "10")
	os.Setenv("OPTIMIZER_MOCK_FALLBACK", "false")
	os.Setenv("DB_HOST", "db.prod")
	os.Setenv("JWT_EXPIRY_HOURS", "48")
	os.Setenv("MQTT_TOPIC_PREFIX", "city/signals/")
	defer clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Optimizer.BaseURL != "http://optimizer:5001" {
		t.Errorf("Optimizer.BaseURL = %q, trailing slash should be trimmed", cfg.Optimizer.BaseURL)
	}
	if cfg.Optimizer.Timeout != 10*time.Second {
		t.Errorf("Optimizer.Timeout = %s, want 10s", cfg.Optimizer.Timeout)
	}
	if cfg.Optimizer.MockFallback {
		t.Error("Optimizer.MockFallback should be false")
	}
	if cfg.Database.Host != "db.prod" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.prod")
	}
	if cfg.JWT.ExpiryHours != 48 {
		t.Errorf("JWT.ExpiryHours = %d, want 48", cfg.JWT.ExpiryHours)
	}
	if cfg.MQTT.TopicPrefix != "city/signals" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "city/signals")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SERVER_PORT", "invalid"},
		{"OPTIMIZER_TIMEOUT_SEC", "0"},
		{"OPTIMIZER_TIMEOUT_SEC", "soon"},
		{"OPTIMIZER_MOCK_FALLBACK", "perhaps"},
		{"REDIS_PORT", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearConfigEnv(t)
			os.Setenv(tt.key, tt.value)
			defer os.Unsetenv(tt.key)

			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
