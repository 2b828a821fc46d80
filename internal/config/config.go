package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Config holds application configuration.
// Store credentials are optional here: a missing value makes the store
// fail on first use, not at startup.
type Config struct {
	RedisURL      string
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	PineconeAPIKey      string
	PineconeEnvironment string

	LogLevel   slog.Level
	ListenAddr string

	// Sweep only
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

type ErrMissingRequiredEnvVar struct {
	Name string
}

func (e *ErrMissingRequiredEnvVar) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

type ErrInvalidEnvVar struct {
	Name  string
	Value string
}

func (e *ErrInvalidEnvVar) Error() string {
	return fmt.Sprintf("environment variable %q has invalid value %q", e.Name, e.Value)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ErrInvalidEnvVar{Name: key, Value: v}
	}
	return n, nil
}

// Load reads configuration from environment variables.
// Only malformed values are errors.
func Load() (*Config, error) {
	config := Config{
		RedisURL:            getEnv("REDIS_URL", os.Getenv("UPSTASH_REDIS_URL")),
		RedisHost:           os.Getenv("REDIS_HOST"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		PineconeAPIKey:      os.Getenv("PINECONE_API_KEY"),
		PineconeEnvironment: os.Getenv("PINECONE_ENVIRONMENT"),
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
		MinIOEndpoint:       os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:         os.Getenv("MINIO_BUCKET"),
		MinIOUseSSL:         os.Getenv("MINIO_USE_SSL") == "true",
	}

	var err error
	if config.RedisPort, err = getEnvInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if config.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	level := getEnv("LOG_LEVEL", "info")
	if err := config.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, &ErrInvalidEnvVar{Name: "LOG_LEVEL", Value: level}
	}

	return &config, nil
}

// RequireBucket checks the settings the sweep needs to reach the output
// bucket.
func (c *Config) RequireBucket() error {
	required := []struct {
		name  string
		value string
	}{
		{"MINIO_ENDPOINT", c.MinIOEndpoint},
		{"MINIO_ACCESS_KEY", c.MinIOAccessKey},
		{"MINIO_SECRET_KEY", c.MinIOSecretKey},
		{"MINIO_BUCKET", c.MinIOBucket},
	}
	for _, r := range required {
		if r.value == "" {
			return &ErrMissingRequiredEnvVar{Name: r.name}
		}
	}
	return nil
}
