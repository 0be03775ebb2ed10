package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pachaqtec/transit-planner/models"
)

// Config holds all runtime configuration for the planner server.
type Config struct {
	Server   ServerConfig
	Geocoder GeocoderConfig
	Planner  PlannerConfig
	Network  NetworkConfig
}

type ServerConfig struct {
	Port        string
	Environment string // development or production
	LogLevel    string // debug, info, warn, error
}

type GeocoderConfig struct {
	BaseURL    string
	Timeout    time.Duration
	DebounceMS time.Duration
	CacheTTL   time.Duration
	// ViewBox bounds every geocoder lookup to the metropolitan area.
	ViewBox models.BoundingBox
}

type PlannerConfig struct {
	// TransferRadiusMeters is the maximum projected distance between a
	// cable-car station and a minibus polyline for the station to count as
	// a transfer point.
	TransferRadiusMeters float64
}

type NetworkConfig struct {
	// File is the JSON export produced by the data-loading collaborator.
	File string
}

// Load reads configuration from the environment, with .env as a fallback.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvDefault("PORT", "8080"),
			Environment: getenvDefault("ENVIRONMENT", "development"),
			LogLevel:    getenvDefault("LOG_LEVEL", "info"),
		},
		Geocoder: GeocoderConfig{
			BaseURL: getenvDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			ViewBox: models.BoundingBox{
				MinLat: getenvFloat("VIEWBOX_MIN_LAT", -16.62),
				MinLng: getenvFloat("VIEWBOX_MIN_LNG", -68.25),
				MaxLat: getenvFloat("VIEWBOX_MAX_LAT", -16.42),
				MaxLng: getenvFloat("VIEWBOX_MAX_LNG", -68.00),
			},
		},
		Planner: PlannerConfig{
			TransferRadiusMeters: getenvFloat("TRANSFER_RADIUS_METERS", 800),
		},
		Network: NetworkConfig{
			File: getenvDefault("NETWORK_FILE", "data/network.json"),
		},
	}

	timeoutSec, err := getenvInt("GEOCODER_TIMEOUT_SEC", 5)
	if err != nil {
		return nil, err
	}
	cfg.Geocoder.Timeout = time.Duration(timeoutSec) * time.Second

	debounceMS, err := getenvInt("SUGGESTION_DEBOUNCE_MS", 350)
	if err != nil {
		return nil, err
	}
	if debounceMS < 300 || debounceMS > 500 {
		return nil, fmt.Errorf("SUGGESTION_DEBOUNCE_MS must be within 300-500, got %d", debounceMS)
	}
	cfg.Geocoder.DebounceMS = time.Duration(debounceMS) * time.Millisecond

	cacheSec, err := getenvInt("SUGGESTION_CACHE_TTL_SEC", 300)
	if err != nil {
		return nil, err
	}
	cfg.Geocoder.CacheTTL = time.Duration(cacheSec) * time.Second

	if cfg.Planner.TransferRadiusMeters <= 0 {
		return nil, fmt.Errorf("TRANSFER_RADIUS_METERS must be positive")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
