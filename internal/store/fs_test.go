package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-pipeline/internal/weather"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	base := t.TempDir()
	s, err := NewFS(filepath.Join(base, "raw_files"), filepath.Join(base, "clean_data"), "model_scores.csv")
	require.NoError(t, err)
	return s
}

func TestFSSnapshotRoundTrip(t *testing.T) {
	s := newTestFS(t)

	payloads := []json.RawMessage{
		json.RawMessage(`{"name":"paris","main":{"temp":20,"pressure":1010}}`),
		json.RawMessage(`{"name":"london","main":{"temp":15,"pressure":1005}}`),
	}
	require.NoError(t, s.WriteSnapshot("2026-08-01_10-00", payloads))

	got, err := s.ReadSnapshot("2026-08-01_10-00")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, string(payloads[0]), string(got[0]))
}

func TestFSListSnapshotsNewestFirst(t *testing.T) {
	s := newTestFS(t)
	for _, stamp := range []string{"2026-08-01_10-01", "2026-08-01_09-59", "2026-08-01_10-00"} {
		require.NoError(t, s.WriteSnapshot(stamp, []json.RawMessage{json.RawMessage(`{}`)}))
	}

	stems, err := s.ListSnapshots()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-01_10-01", "2026-08-01_10-00", "2026-08-01_09-59"}, stems)
}

func TestFSListIgnoresForeignFiles(t *testing.T) {
	s := newTestFS(t)
	require.NoError(t, s.WriteSnapshot("2026-08-01_10-00", []json.RawMessage{json.RawMessage(`{}`)}))
	require.NoError(t, os.WriteFile(filepath.Join(s.RawDir(), "notes.txt"), []byte("x"), 0o644))

	stems, err := s.ListSnapshots()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-01_10-00"}, stems)
}

func TestFSTableRoundTrip(t *testing.T) {
	s := newTestFS(t)

	rows := []weather.FlatRecord{
		{Temperature: 21.5, City: "paris", Pressure: 1013, Date: "2026-08-01_10-00"},
		{Temperature: -3.25, City: "oslo", Pressure: 990.5, Date: "2026-08-01_10-01"},
	}
	require.NoError(t, s.WriteTable("fulldata.csv", rows))

	got, err := s.ReadTable("fulldata.csv")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestFSReadMissingTable(t *testing.T) {
	s := newTestFS(t)
	_, err := s.ReadTable("fulldata.csv")
	require.Error(t, err)
	assert.True(t, IsNotExist(err))
}

func TestFSWriteTableOverwrites(t *testing.T) {
	s := newTestFS(t)
	require.NoError(t, s.WriteTable("data.csv", []weather.FlatRecord{
		{Temperature: 1, City: "a", Pressure: 1, Date: "d1"},
		{Temperature: 2, City: "b", Pressure: 2, Date: "d2"},
	}))
	require.NoError(t, s.WriteTable("data.csv", []weather.FlatRecord{
		{Temperature: 3, City: "c", Pressure: 3, Date: "d3"},
	}))

	got, err := s.ReadTable("data.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].City)
}

func TestFSAppendScoreFormat(t *testing.T) {
	s := newTestFS(t)

	ts := time.Date(2026, 8, 1, 10, 30, 45, 0, time.UTC)
	require.NoError(t, s.AppendScore(weather.ScoreEntry{Timestamp: ts, Kind: "linear", Score: -5.04321}))
	require.NoError(t, s.AppendScore(weather.ScoreEntry{Timestamp: ts, Kind: "random-forest", Score: -2.5}))

	data, err := os.ReadFile(s.TablePath("model_scores.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2, "ledger is append-only")
	assert.Equal(t, "2026-08-01 10:30,linear,-5.0432", lines[0])
	assert.Equal(t, "2026-08-01 10:30,random-forest,-2.5000", lines[1])
}

func TestFSScoreLedgerUsesConfiguredName(t *testing.T) {
	base := t.TempDir()
	s, err := NewFS(filepath.Join(base, "raw_files"), filepath.Join(base, "clean_data"), "scores_ledger.csv")
	require.NoError(t, err)

	ts := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.AppendScore(weather.ScoreEntry{Timestamp: ts, Kind: "linear", Score: -1}))

	_, err = os.Stat(s.TablePath("scores_ledger.csv"))
	require.NoError(t, err)
	_, err = os.Stat(s.TablePath("model_scores.csv"))
	assert.True(t, os.IsNotExist(err), "ledger name is not hard-coded")
}

func TestFSWriteArtifact(t *testing.T) {
	s := newTestFS(t)
	require.NoError(t, s.WriteArtifact("best_model.json", []byte(`{"kind":"linear"}`)))

	data, err := os.ReadFile(s.TablePath("best_model.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"linear"}`, string(data))
}

func TestFSNoPartialFileOnWrite(t *testing.T) {
	s := newTestFS(t)
	require.NoError(t, s.WriteSnapshot("2026-08-01_10-00", []json.RawMessage{json.RawMessage(`{}`)}))

	entries, err := os.ReadDir(s.RawDir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "no temp files may remain")
	}
}
