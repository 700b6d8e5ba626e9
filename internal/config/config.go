package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	HTTPTimeout time.Duration
	LogLevel    slog.Level

	// MMMAPIURL is the upstream MMM data API. Empty means reference data only.
	MMMAPIURL string
	// ReferenceData is a YAML dataset path. Empty means the embedded dataset.
	ReferenceData string
	// DatabaseURL enables the Postgres results store.
	DatabaseURL string

	GuardrailPct  float64
	ChartMaxSpend float64
	ChartSteps    int
	VolumeRate    float64
	ValueRate     float64
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

func FromEnv() Config {
	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	return Config{
		Port:          envOr("PORT", "8080"),
		HTTPTimeout:   to,
		LogLevel:      lvl,
		MMMAPIURL:     os.Getenv("MMM_API_URL"),
		ReferenceData: os.Getenv("REFERENCE_DATA"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		GuardrailPct:  envFloat("GUARDRAIL_THRESHOLD_PCT", 50),
		ChartMaxSpend: envFloat("CHART_MAX_SPEND", 800000),
		ChartSteps:    int(envFloat("CHART_STEPS", 100)),
		VolumeRate:    envFloat("VOLUME_RATE", 0.08),
		ValueRate:     envFloat("VALUE_RATE", 2.4),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envFloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}
