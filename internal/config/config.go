package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings for the web console and the CLI.
type Config struct {
	ListenAddr    string
	APIBase       string // empty: derived from the page host
	SessionSecret string // empty: random keys per process
	SecureCookies bool
	APITimeout    time.Duration // 0: no timeout
	RateBurst     int
	RatePerSec    int
	MaxBodyBytes  int64
	TokenFile     string
	Debug         bool
}

// Default returns the settings used when no environment is set.
func Default() Config {
	return Config{
		ListenAddr:   ":8001",
		RateBurst:    40,
		RatePerSec:   20,
		MaxBodyBytes: 1 << 20,
		TokenFile:    defaultTokenFile(),
	}
}

// Load reads AURA_* environment variables on top of Default.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if v := strings.TrimSpace(getenv("AURA_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(getenv("AURA_API_BASE")); v != "" {
		cfg.APIBase = strings.TrimRight(v, "/")
	}
	cfg.SessionSecret = strings.TrimSpace(getenv("AURA_SESSION_SECRET"))
	if v := strings.TrimSpace(getenv("AURA_TOKEN_FILE")); v != "" {
		cfg.TokenFile = v
	}

	var err error
	if cfg.SecureCookies, err = boolVar(getenv, "AURA_SECURE_COOKIES", cfg.SecureCookies); err != nil {
		return Config{}, err
	}
	if cfg.Debug, err = boolVar(getenv, "AURA_DEBUG", cfg.Debug); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = intVar(getenv, "AURA_RATE_BURST", cfg.RateBurst); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = intVar(getenv, "AURA_RATE_PER_SEC", cfg.RatePerSec); err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(getenv("AURA_API_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("config: AURA_API_TIMEOUT: invalid duration %q", v)
		}
		cfg.APITimeout = d
	}
	return cfg, nil
}

func boolVar(getenv func(string) string, key string, def bool) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: %s: must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".aura_token"
	}
	return dir + string(os.PathSeparator) + "aura" + string(os.PathSeparator) + "token"
}
