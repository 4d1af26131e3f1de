package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backend names accepted in LADDER_STORE.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type AppConfig struct {
	StoreBackend string
	StateFile    string
	RedisURL     string
	DatabaseURL  string

	// Seed triple for newly registered players.
	DefaultRating     float64
	DefaultDeviation  float64
	DefaultVolatility float64

	// Optional directory with YAML overrides for user-facing messages.
	MsgDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		StoreBackend:      StoreFile,
		StateFile:         "ladder.json",
		DefaultRating:     1500,
		DefaultDeviation:  350,
		DefaultVolatility: 0.06,
	}

	if v := strings.TrimSpace(os.Getenv("LADDER_STORE")); v != "" {
		cfg.StoreBackend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("LADDER_STATE_FILE")); v != "" {
		cfg.StateFile = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MsgDir = strings.TrimSpace(os.Getenv("LADDER_MSG_DIR"))

	if v := strings.TrimSpace(os.Getenv("LADDER_DEFAULT_RATING")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid LADDER_DEFAULT_RATING %q", v)
		}
		cfg.DefaultRating = f
	}
	if v := strings.TrimSpace(os.Getenv("LADDER_DEFAULT_RD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid LADDER_DEFAULT_RD %q", v)
		}
		cfg.DefaultDeviation = f
	}
	if v := strings.TrimSpace(os.Getenv("LADDER_DEFAULT_VOL")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid LADDER_DEFAULT_VOL %q", v)
		}
		cfg.DefaultVolatility = f
	}

	switch cfg.StoreBackend {
	case StoreFile:
		if cfg.StateFile == "" {
			return nil, fmt.Errorf("LADDER_STATE_FILE is required for the file store")
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("unknown LADDER_STORE %q", cfg.StoreBackend)
	}

	return cfg, nil
}
