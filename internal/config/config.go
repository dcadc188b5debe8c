// Package config assembles the runtime configuration from the process
// environment, an optional .env file, and an optional TOML rules file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/xylophonehero/hearts/engine"
)

// Config is the resolved service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// JWTSecret signs the guest tokens.
	JWTSecret string
	// RedisAddr enables the action historian when non-empty.
	RedisAddr string
	// DatabaseURL enables result persistence when non-empty.
	DatabaseURL string
	// Rules are the table rules applied to every new room.
	Rules engine.Rules
}

// rulesFile is the TOML shape of an optional rules override file.
type rulesFile struct {
	PassingMode   string `toml:"passing_mode"`
	PassCount     int    `toml:"pass_count"`
	EndScore      int    `toml:"end_score"`
	SettleDelayMS int    `toml:"settle_delay_ms"`
}

// Load reads .env (if present), then the environment, then the rules file
// named by HEARTS_RULES_FILE (if set).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        envOr("HEARTS_ADDR", ":8080"),
		JWTSecret:   envOr("HEARTS_JWT_SECRET", "dev-secret-change-me"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Rules:       engine.DefaultRules(),
	}

	if path := os.Getenv("HEARTS_RULES_FILE"); path != "" {
		if err := loadRules(path, &cfg.Rules); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func loadRules(path string, rules *engine.Rules) error {
	var rf rulesFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		return fmt.Errorf("decode rules file %s: %w", path, err)
	}
	switch rf.PassingMode {
	case "", "request":
		rules.PassingMode = engine.PassRequest
	case "timed":
		rules.PassingMode = engine.PassTimed
	case "off":
		rules.PassingMode = engine.PassOff
	default:
		return fmt.Errorf("rules file %s: unknown passing_mode %q", path, rf.PassingMode)
	}
	if rf.PassCount > 0 {
		rules.PassCount = rf.PassCount
	}
	if rf.EndScore > 0 {
		rules.EndScore = rf.EndScore
	}
	if rf.SettleDelayMS > 0 {
		rules.SettleDelay = time.Duration(rf.SettleDelayMS) * time.Millisecond
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
