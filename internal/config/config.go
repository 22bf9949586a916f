package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSyncOffsetMs is the animation scheduling delay used when
// SYNC_OFFSET_MS is unset.
const DefaultSyncOffsetMs = 300

type Config struct {
	ServerAddr     string
	DatabaseDSN    string
	SigningKey     []byte
	AllowedOrigins []string
	SyncOffset     time.Duration
	DecayInterval  time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		SyncOffset:     DefaultSyncOffsetMs * time.Millisecond,
		DecayInterval:  time.Hour,
	}, nil
}

// FromEnv builds a Config from environment variables, loading a .env file
// first if one is present.
func FromEnv() (*Config, error) {
	godotenv.Load()

	cfg, err := NewConfig(
		getEnv("SERVER_ADDR", ":8000"),
		os.Getenv("DATABASE_DSN"),
		os.Getenv("SIGNING_SECRET"),
		splitAndTrim(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	)
	if err != nil {
		return nil, err
	}

	cfg.SyncOffset = time.Duration(getEnvInt("SYNC_OFFSET_MS", DefaultSyncOffsetMs)) * time.Millisecond
	cfg.DecayInterval = time.Duration(getEnvInt("DECAY_INTERVAL_MINUTES", 60)) * time.Minute

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
