package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sync core.
type Config struct {
	Environment     string
	RedisURL        string
	SessionDBPath   string
	AuthTokenSecret string

	EmailProvider   string
	EmailFrom       string
	EmailFromName   string
	SESRegion       string
	SESAccessKeyID  string
	SESSecretKey    string
}

// Load loads configuration from environment variables. It attempts to load
// a .env file outside production; in production the system environment is
// the only source.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found or couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment:     env,
		RedisURL:        os.Getenv("REDIS_URL"),
		SessionDBPath:   os.Getenv("SESSION_DB_PATH"),
		AuthTokenSecret: os.Getenv("AUTH_TOKEN_SECRET"),
		EmailProvider:   os.Getenv("EMAIL_PROVIDER"),
		EmailFrom:       os.Getenv("EMAIL_FROM"),
		EmailFromName:   os.Getenv("EMAIL_FROM_NAME"),
		SESRegion:       os.Getenv("SES_REGION"),
		SESAccessKeyID:  os.Getenv("SES_ACCESS_KEY_ID"),
		SESSecretKey:    os.Getenv("SES_SECRET_ACCESS_KEY"),
	}

	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.SessionDBPath == "" {
		cfg.SessionDBPath = "session.db"
	}
	if cfg.EmailProvider == "" {
		cfg.EmailProvider = "noop"
	}

	return cfg, nil
}
