package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Storage modes selectable via STORAGE_MODE.
const (
	ModeEmbedded = "embedded"
	ModeSQL      = "sql"
)

// Slot backends selectable via SLOT_BACKEND.
const (
	SlotRedis  = "redis"
	SlotFile   = "file"
	SlotMemory = "memory"
)

// Config keeps runtime settings for the server.
type Config struct {
	Addr        string
	StorageMode string
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration

	SlotBackend string
	SlotKey     string
	SlotPath    string
	RedisAddr   string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		Addr:        strings.TrimSpace(os.Getenv("ADDR")),
		StorageMode: strings.TrimSpace(os.Getenv("STORAGE_MODE")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:    parseHours(strings.TrimSpace(os.Getenv("TOKEN_TTL_HOURS"))),
		SlotBackend: strings.TrimSpace(os.Getenv("SLOT_BACKEND")),
		SlotKey:     strings.TrimSpace(os.Getenv("SLOT_KEY")),
		SlotPath:    strings.TrimSpace(os.Getenv("SLOT_PATH")),
		RedisAddr:   strings.TrimSpace(os.Getenv("REDIS_ADDR")),
	}

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.StorageMode == "" {
		cfg.StorageMode = ModeSQL
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskboard.db"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.SlotBackend == "" {
		cfg.SlotBackend = SlotFile
	}
	if cfg.SlotKey == "" {
		cfg.SlotKey = "taskboard:snapshot"
	}
	if cfg.SlotPath == "" {
		cfg.SlotPath = "taskboard.snapshot"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}

	switch cfg.StorageMode {
	case ModeEmbedded, ModeSQL:
	default:
		return cfg, fmt.Errorf("STORAGE_MODE must be %q or %q", ModeEmbedded, ModeSQL)
	}
	switch cfg.SlotBackend {
	case SlotRedis, SlotFile, SlotMemory:
	default:
		return cfg, fmt.Errorf("SLOT_BACKEND must be %q, %q or %q", SlotRedis, SlotFile, SlotMemory)
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func parseHours(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
