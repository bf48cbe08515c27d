package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weather-pipeline/internal/cleanup"
	"weather-pipeline/internal/config"
	"weather-pipeline/internal/fetch"
	"weather-pipeline/internal/model"
	"weather-pipeline/internal/store"
	"weather-pipeline/internal/train"
	"weather-pipeline/internal/transform"
	"weather-pipeline/internal/validate"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	base := t.TempDir()
	return &config.AppConfig{
		APIKey:           "k",
		BaseURL:          "http://unset",
		Cities:           []string{"paris", "london"},
		RawDir:           filepath.Join(base, "raw_files"),
		CleanDir:         filepath.Join(base, "clean_data"),
		HTTPTimeout:      time.Second,
		RetryBackoff:     time.Millisecond,
		SensorPoke:       10 * time.Millisecond,
		SensorTimeout:    100 * time.Millisecond,
		RecentWindow:     20,
		Retention:        20,
		Folds:            3,
		ForestSize:       5,
		Seed:             1,
		ScheduleInterval: time.Minute,
	}
}

func newTestRunner(t *testing.T, cfg *config.AppConfig, providerURL string) (*Runner, *store.FS) {
	t.Helper()

	fsStore, err := store.NewFS(cfg.RawDir, cfg.CleanDir, config.ScoresFile)
	require.NoError(t, err)

	log := zap.NewNop()
	fetcher := fetch.New(
		&http.Client{Timeout: cfg.HTTPTimeout},
		providerURL,
		cfg.APIKey,
		cfg.Cities,
		fetch.RetryPolicy{MaxRetries: 1, Backoff: cfg.RetryBackoff},
		fsStore,
		log,
	)
	transformer := transform.New(fsStore, fsStore, log)
	opts := model.Options{Trees: cfg.ForestSize, Seed: cfg.Seed}
	trainer := train.NewTrainer(fsStore, config.FullTable, cfg.Folds, opts, log)
	selector := train.NewSelector(fsStore, config.FullTable, config.ModelFile, opts, log)
	cleaner := cleanup.New([]string{cfg.RawDir, cfg.CleanDir}, []string{".json", ".csv"}, cfg.Retention, log)

	return NewRunner(cfg, fetcher, transformer, trainer, selector, cleaner, fsStore, fsStore, log), fsStore
}

// seedSnapshots writes n historical snapshots so that, together with the one
// the fetch stage adds, each city has enough timestamps for training.
func seedSnapshots(t *testing.T, s *store.FS, cities []string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		stamp := fmt.Sprintf("2026-08-01_10-%02d", i)
		payloads := make([]json.RawMessage, 0, len(cities))
		for ci, city := range cities {
			payloads = append(payloads, json.RawMessage(fmt.Sprintf(
				`{"name":%q,"main":{"temp":%g,"pressure":1010}}`, city, float64(10+5*ci)+0.5*float64(i))))
		}
		require.NoError(t, s.WriteSnapshot(stamp, payloads))
	}
}

func providerServer(cities map[string]float64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("q")
		temp, ok := cities[city]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"name":%q,"main":{"temp":%g,"pressure":1011}}`, city, temp)
	}))
}

func TestRunEndToEnd(t *testing.T) {
	srv := providerServer(map[string]float64{"paris": 17.5, "london": 13.0})
	defer srv.Close()

	cfg := testConfig(t)
	runner, fsStore := newTestRunner(t, cfg, srv.URL)
	seedSnapshots(t, fsStore, cfg.Cities, 14)

	require.NoError(t, runner.Run(context.Background()))

	// 14 seeded + 1 fetched snapshots.
	stems, err := fsStore.ListSnapshots()
	require.NoError(t, err)
	assert.Len(t, stems, 15)

	// Both tables regenerated, full table passes validation.
	recent, err := fsStore.ReadTable(config.RecentTable)
	require.NoError(t, err)
	assert.Len(t, recent, 30, "15 snapshots x 2 cities")
	require.NoError(t, validate.File(fsStore.TablePath(config.FullTable)))

	// A decodable best model was persisted.
	data, err := os.ReadFile(fsStore.TablePath(config.ModelFile))
	require.NoError(t, err)
	m, err := model.Decode(data)
	require.NoError(t, err)
	assert.Contains(t, model.Kinds, m.Kind())

	// Exactly one ledger line was appended.
	ledger, err := os.ReadFile(fsStore.TablePath(config.ScoresFile))
	require.NoError(t, err)
	assert.Equal(t, 1, countLines(ledger))
}

func TestRunFailsWhenNoSnapshotAppears(t *testing.T) {
	srv := providerServer(nil) // every city 404s, fetch drops them all
	defer srv.Close()

	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg, srv.URL)

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait_for_snapshot")
}

func TestRunFailsValidationOnOutOfRangeTemperature(t *testing.T) {
	srv := providerServer(map[string]float64{"paris": 75, "london": 75})
	defer srv.Close()

	cfg := testConfig(t)
	runner, fsStore := newTestRunner(t, cfg, srv.URL)
	seedSnapshots(t, fsStore, cfg.Cities, 14)

	// The fetched snapshot carries an implausible 75°C reading.
	err := runner.Run(context.Background())
	require.ErrorIs(t, err, validate.ErrOutOfRange)
	assert.Contains(t, err.Error(), "validate")

	// The pipeline stopped before training: no model artifact exists.
	_, statErr := os.Stat(fsStore.TablePath(config.ModelFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunInsufficientHistoryFailsTraining(t *testing.T) {
	srv := providerServer(map[string]float64{"paris": 17.5, "london": 13.0})
	defer srv.Close()

	cfg := testConfig(t)
	runner, fsStore := newTestRunner(t, cfg, srv.URL)
	// 5 seeded + 1 fetched timestamps per city: not enough for the shift window.
	seedSnapshots(t, fsStore, cfg.Cities, 5)

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train_")
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
