// Package transform flattens raw snapshots into tabular CSV rows.
package transform

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"weather-pipeline/internal/weather"
)

// cityPayload is the subset of the provider document the table needs.
// Pointer fields distinguish "absent" from zero values so records missing an
// expected key can be skipped.
type cityPayload struct {
	Name *string `json:"name"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
}

// Transformer reads snapshots and regenerates a clean CSV table.
type Transformer struct {
	snapshots weather.SnapshotStore
	tables    weather.TableStore
	log       *zap.Logger
}

func New(snapshots weather.SnapshotStore, tables weather.TableStore, log *zap.Logger) *Transformer {
	return &Transformer{snapshots: snapshots, tables: tables, log: log}
}

// Transform flattens the nFiles newest snapshots (all of them when nFiles is
// zero) into the named table. Unreadable snapshots and records missing an
// expected key are logged and skipped. When no rows result, no table is
// written and Transform returns (0, nil): downstream stages must check for
// the table themselves.
func (t *Transformer) Transform(ctx context.Context, nFiles int, name string) (int, error) {
	stems, err := t.snapshots.ListSnapshots()
	if err != nil {
		return 0, err
	}
	if len(stems) == 0 {
		t.log.Warn("no snapshots found, table not created", zap.String("table", name))
		return 0, nil
	}
	if nFiles > 0 && nFiles < len(stems) {
		stems = stems[:nFiles]
	}

	var rows []weather.FlatRecord
	for _, stem := range stems {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		payloads, err := t.snapshots.ReadSnapshot(stem)
		if err != nil {
			t.log.Warn("skipping unreadable snapshot", zap.String("snapshot", stem), zap.Error(err))
			continue
		}

		for _, payload := range payloads {
			row, ok := t.flatten(stem, payload)
			if !ok {
				continue
			}
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		t.log.Warn("no valid weather records found, table not created", zap.String("table", name))
		return 0, nil
	}

	if err := t.tables.WriteTable(name, rows); err != nil {
		return 0, err
	}

	t.log.Info("table written", zap.String("table", name), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// flatten extracts one FlatRecord from a raw per-city payload. The date is
// the snapshot stem, not anything from the payload itself.
func (t *Transformer) flatten(stem string, payload json.RawMessage) (weather.FlatRecord, bool) {
	var p cityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		t.log.Warn("skipping undecodable record", zap.String("snapshot", stem), zap.Error(err))
		return weather.FlatRecord{}, false
	}
	if p.Name == nil || p.Main == nil || p.Main.Temp == nil || p.Main.Pressure == nil {
		t.log.Warn("skipping record with missing keys", zap.String("snapshot", stem))
		return weather.FlatRecord{}, false
	}
	return weather.FlatRecord{
		Temperature: *p.Main.Temp,
		City:        *p.Name,
		Pressure:    *p.Main.Pressure,
		Date:        stem,
	}, true
}
