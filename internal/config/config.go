package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Well-known file names inside the clean directory. The tables are fully
// regenerated each run; the ledger is append-only; the model is overwritten.
const (
	RecentTable = "data.csv"
	FullTable   = "fulldata.csv"
	ScoresFile  = "model_scores.csv"
	ModelFile   = "best_model.json"
)

// AppConfig is the process-wide configuration, built once at startup and
// passed into components. Components never read the environment themselves.
type AppConfig struct {
	// OpenWeatherMap-compatible endpoint and credentials.
	APIKey  string `validate:"required"`
	BaseURL string `validate:"required,url"`

	// Cities to fetch, from the JSON-encoded CITIES variable.
	Cities []string `validate:"required,min=1,dive,required"`

	// Directory roots for raw snapshots and clean tables.
	RawDir   string `validate:"required"`
	CleanDir string `validate:"required"`

	// Outbound HTTP behaviour.
	HTTPTimeout  time.Duration `validate:"gt=0"`
	RetryBackoff time.Duration `validate:"gte=0"`

	// Snapshot readiness wait after a fetch.
	SensorPoke    time.Duration `validate:"gt=0"`
	SensorTimeout time.Duration `validate:"gt=0"`

	// RecentWindow is how many of the newest snapshots feed data.csv.
	RecentWindow int `validate:"gt=0"`

	// Retention is how many files each managed directory keeps at cleanup.
	Retention int `validate:"gt=0"`

	// Training parameters.
	Folds      int   `validate:"gte=2"`
	ForestSize int   `validate:"gt=0"`
	Seed       int64

	// ScheduleInterval is the period of the recurring pipeline run.
	ScheduleInterval time.Duration `validate:"gt=0"`
}

// Load reads configuration from the environment with sensible defaults,
// loading a .env file first when one is present. The API key and the city
// list are required; their absence is a fatal configuration error.
func Load() (*AppConfig, error) {
	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &AppConfig{
		APIKey:           os.Getenv("WEATHER_API_KEY"),
		BaseURL:          getenvDefault("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather"),
		RawDir:           getenvDefault("RAW_DIR", "raw_files"),
		CleanDir:         getenvDefault("CLEAN_DIR", "clean_data"),
		RecentWindow:     getenvInt("RECENT_WINDOW", 20),
		Retention:        getenvInt("RETENTION", 20),
		Folds:            getenvInt("CV_FOLDS", 3),
		ForestSize:       getenvInt("FOREST_SIZE", 100),
		Seed:             int64(getenvInt("TRAIN_SEED", 1)),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getenvDuration("RETRY_BACKOFF", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SensorPoke, err = getenvDuration("SENSOR_POKE_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SensorTimeout, err = getenvDuration("SENSOR_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScheduleInterval, err = getenvDuration("SCHEDULE_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY is not set")
	}

	citiesRaw := os.Getenv("CITIES")
	if citiesRaw == "" {
		return nil, fmt.Errorf("CITIES is not set")
	}
	if err := json.Unmarshal([]byte(citiesRaw), &cfg.Cities); err != nil {
		return nil, fmt.Errorf("invalid JSON in CITIES: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
