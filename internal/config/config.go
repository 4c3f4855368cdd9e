package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         string
	SnapshotPath string // local sqlite cache
	RemoteURL    string // optional JSON webhook remote
	DatabaseURL  string // optional Postgres remote (takes precedence)
	JWTSecret    string

	CascadeOnRemove bool

	TelegramToken  string
	TelegramChatID int64
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		SnapshotPath:    getEnv("SNAPSHOT_PATH", "lunchvote.db"),
		RemoteURL:       os.Getenv("REMOTE_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		CascadeOnRemove: getEnvBool("CASCADE_ON_REMOVE", false),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:  getEnvInt64("TELEGRAM_CHAT_ID", 0),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
