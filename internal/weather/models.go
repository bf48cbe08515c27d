package weather

import (
	"time"
)

// StampLayout is the minute-granularity layout used to name snapshots.
// It sorts lexicographically in time order, which the transformer and the
// cleaner rely on when they order files by name.
const StampLayout = "2006-01-02_15-04"

// Stamp formats t as a snapshot name stem.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// FlatRecord is one tabular row derived from a snapshot entry.
// Date is the snapshot name stem the record came from, never a timestamp
// taken from the provider payload.
type FlatRecord struct {
	Temperature float64
	City        string
	Pressure    float64
	Date        string
}

// ScoreEntry is one line of the append-only model score ledger.
type ScoreEntry struct {
	Timestamp time.Time
	Kind      string
	Score     float64
}
