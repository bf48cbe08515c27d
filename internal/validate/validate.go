// Package validate sanity-checks a clean CSV table before training.
package validate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Temperature bounds in degrees Celsius considered physically plausible.
const (
	TempMin = -80
	TempMax = 60
)

var (
	ErrEmptyTable     = errors.New("table is empty")
	ErrMalformedTable = errors.New("table is malformed")
	ErrMissingValues  = errors.New("table contains missing values")
	ErrOutOfRange     = errors.New("temperature values out of expected range")
)

// File checks the CSV table at path: it must exist, contain at least one
// data row, carry a temperature column, hold no empty or NaN cell anywhere,
// and keep every temperature within [TempMin, TempMax]. Pure check, no side
// effects. A missing file is reported with an error wrapping fs.ErrNotExist;
// a header without a temperature column wraps ErrMalformedTable.
func File(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("validating %s: %w", path, err)
	}

	if len(records) < 2 {
		return fmt.Errorf("validating %s: %w", path, ErrEmptyTable)
	}

	header := records[0]
	tempCol := -1
	for i, h := range header {
		if h == "temperature" {
			tempCol = i
		}
	}
	if tempCol < 0 {
		return fmt.Errorf("validating %s: no temperature column: %w", path, ErrMalformedTable)
	}

	for line, rec := range records[1:] {
		if len(rec) < len(header) {
			return fmt.Errorf("validating %s: row %d is short: %w", path, line+1, ErrMissingValues)
		}
		for col, cell := range rec {
			if strings.TrimSpace(cell) == "" || strings.EqualFold(cell, "nan") {
				return fmt.Errorf("validating %s: row %d column %q: %w", path, line+1, header[col], ErrMissingValues)
			}
		}

		temp, err := strconv.ParseFloat(rec[tempCol], 64)
		if err != nil || math.IsNaN(temp) {
			return fmt.Errorf("validating %s: row %d: bad temperature %q: %w", path, line+1, rec[tempCol], ErrMissingValues)
		}
		if temp < TempMin || temp > TempMax {
			return fmt.Errorf("validating %s: row %d: temperature %.1f: %w", path, line+1, temp, ErrOutOfRange)
		}
	}
	return nil
}
