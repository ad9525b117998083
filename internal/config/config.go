// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Store backend selectors.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SecretKey   string
	Store       string
	DataDir     string
	DatabaseURL string
	ListenAddr  string
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is folded in first, if present
// (real environment wins). CLIENTDESK_SECRET_KEY is required always;
// CLIENTDESK_DATABASE_URL is required when CLIENTDESK_STORE is "postgres".
// Optional variables with defaults: CLIENTDESK_STORE (file),
// CLIENTDESK_DATA_DIR (data), CLIENTDESK_LISTEN_ADDR (127.0.0.1:8080).
func Load() (*Config, error) {
	// Best effort; a missing .env file is the normal case in production.
	_ = godotenv.Load()

	secretKey := os.Getenv("CLIENTDESK_SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("CLIENTDESK_SECRET_KEY is required")
	}

	store := StoreFile
	if v, ok := os.LookupEnv("CLIENTDESK_STORE"); ok {
		switch v {
		case StoreFile, StorePostgres:
			store = v
		default:
			return nil, fmt.Errorf("CLIENTDESK_STORE must be %q or %q, got %q", StoreFile, StorePostgres, v)
		}
	}

	databaseURL := os.Getenv("CLIENTDESK_DATABASE_URL")
	if store == StorePostgres && databaseURL == "" {
		return nil, fmt.Errorf("CLIENTDESK_DATABASE_URL is required when CLIENTDESK_STORE=postgres")
	}

	dataDir := "data"
	if v, ok := os.LookupEnv("CLIENTDESK_DATA_DIR"); ok && v != "" {
		dataDir = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("CLIENTDESK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	return &Config{
		SecretKey:   secretKey,
		Store:       store,
		DataDir:     dataDir,
		DatabaseURL: databaseURL,
		ListenAddr:  listenAddr,
	}, nil
}
