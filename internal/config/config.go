package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Imports  ImportConfig
	Hint     HintConfig
	CORS     CORSConfig
	Privacy  PrivacyConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// ImportConfig holds the directories used by the file import pipeline.
// Uploaded files land in Inbox and are moved to Processed or Failed
// depending on the outcome of the confirm step.
type ImportConfig struct {
	InboxPath     string
	ProcessedPath string
	FailedPath    string
}

// HintConfig holds configuration for the optional external AI hint
// collaborator. When BaseURL is empty the capability is disabled and
// all callers use their deterministic fallbacks.
type HintConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// PrivacyConfig holds configuration for the tokenization layer.
// Key is a base64 fernet key used to encrypt original values at rest.
type PrivacyConfig struct {
	Key string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8000"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/spendah.db"),
		},
		Imports: ImportConfig{
			InboxPath:     getEnv("IMPORT_INBOX_PATH", "./data/imports/inbox"),
			ProcessedPath: getEnv("IMPORT_PROCESSED_PATH", "./data/imports/processed"),
			FailedPath:    getEnv("IMPORT_FAILED_PATH", "./data/imports/failed"),
		},
		Hint: HintConfig{
			BaseURL: getEnv("HINT_BASE_URL", ""),
			APIKey:  getEnv("HINT_API_KEY", ""),
			Timeout: getEnvDuration("HINT_TIMEOUT_SECONDS", 5) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://localhost",
			},
		},
		Privacy: PrivacyConfig{
			Key: getEnv("PRIVACY_KEY", ""),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvDuration reads an integer environment variable as a time.Duration count.
func getEnvDuration(key string, defaultValue int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultValue)
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return time.Duration(defaultValue)
	}
	return time.Duration(n)
}
