package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Database
	DatabasePath string

	// AI
	OpenAIAPIKey string
	ModelName    string
	MaxTokens    int
	Temperature  float64

	// Twilio
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Owner contact, used as the SMS fallback destination
	OwnerPhoneNumber string

	// Sessions
	SessionTTLMinutes int

	// CLI / local memory
	DataDir       string
	ReferencesDir string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		DatabasePath:      getEnv("DATABASE_PATH", "thoth.db"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		ModelName:         getEnv("MODEL_NAME", "gpt-4.1-2025-04-14"),
		MaxTokens:         getEnvInt("MAX_TOKENS", 1024),
		Temperature:       getEnvFloat("TEMPERATURE", 0.7),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		OwnerPhoneNumber:  getEnv("OWNER_PHONE_NUMBER", "+18073587137"),
		SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 43200),
		DataDir:           getEnv("DATA_DIR", "data"),
		ReferencesDir:     getEnv("REFERENCES_DIR", "references"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("MODEL_NAME is required")
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	// The OpenAI key and Twilio credentials are checked at call time so the
	// server can start without them; the affected turns fail with a
	// configuration error instead.
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
