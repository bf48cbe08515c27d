package weather

import (
	"encoding/json"
)

// SnapshotStore is the contract for the raw snapshot location. A snapshot is
// an ordered list of per-city provider payloads captured in one fetch run,
// named by a minute-granularity stamp. Snapshots are immutable once written.
type SnapshotStore interface {
	// WriteSnapshot persists payloads under the given stamp. Implementations
	// must not leave a partial snapshot behind on failure.
	WriteSnapshot(stamp string, payloads []json.RawMessage) error

	// ListSnapshots returns all snapshot stems sorted descending, newest first.
	ListSnapshots() ([]string, error)

	// ReadSnapshot returns the payloads stored under stem.
	ReadSnapshot(stem string) ([]json.RawMessage, error)
}

// TableStore is the contract for the clean data location: regenerated CSV
// tables, the append-only score ledger, and the persisted model artifact.
type TableStore interface {
	// WriteTable replaces the named table with rows.
	WriteTable(name string, rows []FlatRecord) error

	// ReadTable returns all rows of the named table. A missing table is
	// reported with an error wrapping fs.ErrNotExist.
	ReadTable(name string) ([]FlatRecord, error)

	// TablePath returns the location of the named table for callers that
	// operate on files directly, such as the validator.
	TablePath(name string) string

	// AppendScore appends one entry to the score ledger.
	AppendScore(entry ScoreEntry) error

	// WriteArtifact replaces the named opaque artifact, e.g. the serialized
	// best model.
	WriteArtifact(name string, data []byte) error
}
