package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr              string
	DatabaseURL       string
	DataPath          string
	CatalogPath       string
	MacroTickEvery    time.Duration
	MicroTickEvery    time.Duration
	ShockTickEvery    time.Duration
	SessionSweepEvery time.Duration
}

type WorkerConfig struct {
	DatabaseURL    string
	DataPath       string
	CatalogPath    string
	MacroTickEvery time.Duration
	MicroTickEvery time.Duration
	ShockTickEvery time.Duration
	RunOnce        bool
}

type CLIConfig struct {
	APIBaseURL string
	AccountID  string
}

func LoadAPIFromEnv() APIConfig {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("COINMINT_API_ADDR", ":8080")
	}

	return APIConfig{
		Addr:              addr,
		DatabaseURL:       strings.TrimSpace(os.Getenv("COINMINT_DATABASE_URL")),
		DataPath:          envDefault("COINMINT_DATA_PATH", "coinmint.db"),
		CatalogPath:       strings.TrimSpace(os.Getenv("COINMINT_CATALOG_PATH")),
		MacroTickEvery:    envDurationDefault("COINMINT_MACRO_TICK_EVERY", time.Hour),
		MicroTickEvery:    envDurationDefault("COINMINT_MICRO_TICK_EVERY", 2*time.Minute),
		ShockTickEvery:    envDurationDefault("COINMINT_SHOCK_TICK_EVERY", 10*time.Minute),
		SessionSweepEvery: envDurationDefault("COINMINT_SESSION_SWEEP_EVERY", 15*time.Second),
	}
}

func LoadWorkerFromEnv() WorkerConfig {
	return WorkerConfig{
		DatabaseURL:    strings.TrimSpace(os.Getenv("COINMINT_DATABASE_URL")),
		DataPath:       envDefault("COINMINT_DATA_PATH", "coinmint.db"),
		CatalogPath:    strings.TrimSpace(os.Getenv("COINMINT_CATALOG_PATH")),
		MacroTickEvery: envDurationDefault("COINMINT_MACRO_TICK_EVERY", time.Hour),
		MicroTickEvery: envDurationDefault("COINMINT_MICRO_TICK_EVERY", 2*time.Minute),
		ShockTickEvery: envDurationDefault("COINMINT_SHOCK_TICK_EVERY", 10*time.Minute),
		RunOnce:        envBoolDefault("COINMINT_WORKER_RUN_ONCE", false),
	}
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("COIN_API_BASE_URL", "http://localhost:8080"), "/"),
		AccountID:  strings.TrimSpace(os.Getenv("COIN_ACCOUNT")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
