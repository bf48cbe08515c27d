package store

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"weather-pipeline/internal/weather"
)

const (
	snapshotExt = ".json"

	tableHeaderTemperature = "temperature"
	tableHeaderCity        = "city"
	tableHeaderPressure    = "pressure"
	tableHeaderDate        = "date"
)

// FS persists snapshots and tables on the local filesystem: timestamped JSON
// files under the raw directory, CSV tables and artifacts under the clean
// directory. Writes go through a temp file and rename so a crash never
// leaves a partial snapshot or table behind.
type FS struct {
	rawDir     string
	cleanDir   string
	scoresFile string
}

var (
	_ weather.SnapshotStore = (*FS)(nil)
	_ weather.TableStore    = (*FS)(nil)
)

// NewFS creates both directories if needed and returns the store. scoresFile
// names the ledger file AppendScore writes under the clean directory.
func NewFS(rawDir, cleanDir, scoresFile string) (*FS, error) {
	for _, dir := range []string{rawDir, cleanDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	return &FS{rawDir: rawDir, cleanDir: cleanDir, scoresFile: scoresFile}, nil
}

// RawDir returns the raw snapshot directory root.
func (s *FS) RawDir() string { return s.rawDir }

// CleanDir returns the clean table directory root.
func (s *FS) CleanDir() string { return s.cleanDir }

func (s *FS) WriteSnapshot(stamp string, payloads []json.RawMessage) error {
	data, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", stamp, err)
	}
	return writeFileAtomic(filepath.Join(s.rawDir, stamp+snapshotExt), data)
}

func (s *FS) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(s.rawDir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var stems []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(e.Name(), snapshotExt))
	}

	// Newest first; the stamp layout sorts lexicographically in time order.
	sort.Sort(sort.Reverse(sort.StringSlice(stems)))
	return stems, nil
}

func (s *FS) ReadSnapshot(stem string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.rawDir, stem+snapshotExt))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", stem, err)
	}
	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", stem, err)
	}
	return payloads, nil
}

func (s *FS) WriteTable(name string, rows []weather.FlatRecord) error {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{tableHeaderTemperature, tableHeaderCity, tableHeaderPressure, tableHeaderDate}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing table %s: %w", name, err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatFloat(r.Temperature, 'f', -1, 64),
			r.City,
			strconv.FormatFloat(r.Pressure, 'f', -1, 64),
			r.Date,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing table %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing table %s: %w", name, err)
	}

	return writeFileAtomic(s.TablePath(name), []byte(sb.String()))
}

func (s *FS) ReadTable(name string) ([]weather.FlatRecord, error) {
	f, err := os.Open(s.TablePath(name))
	if err != nil {
		return nil, fmt.Errorf("opening table %s: %w", name, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		col[h] = i
	}
	for _, h := range []string{tableHeaderTemperature, tableHeaderCity, tableHeaderPressure, tableHeaderDate} {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("table %s: missing column %q", name, h)
		}
	}

	rows := make([]weather.FlatRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		temp, err := strconv.ParseFloat(rec[col[tableHeaderTemperature]], 64)
		if err != nil {
			return nil, fmt.Errorf("table %s: bad temperature %q: %w", name, rec[col[tableHeaderTemperature]], err)
		}
		pressure, err := strconv.ParseFloat(rec[col[tableHeaderPressure]], 64)
		if err != nil {
			return nil, fmt.Errorf("table %s: bad pressure %q: %w", name, rec[col[tableHeaderPressure]], err)
		}
		rows = append(rows, weather.FlatRecord{
			Temperature: temp,
			City:        rec[col[tableHeaderCity]],
			Pressure:    pressure,
			Date:        rec[col[tableHeaderDate]],
		})
	}
	return rows, nil
}

func (s *FS) TablePath(name string) string {
	return filepath.Join(s.cleanDir, name)
}

func (s *FS) AppendScore(entry weather.ScoreEntry) error {
	f, err := os.OpenFile(s.TablePath(s.scoresFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening score ledger: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s,%s,%.4f\n", entry.Timestamp.Format("2006-01-02 15:04"), entry.Kind, entry.Score)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending to score ledger: %w", err)
	}
	return nil
}

func (s *FS) WriteArtifact(name string, data []byte) error {
	return writeFileAtomic(s.TablePath(name), data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// IsNotExist reports whether err indicates a missing file or table.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
