package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	version_id  TEXT PRIMARY KEY,
	parent_id   TEXT,
	unit        INTEGER NOT NULL,
	seq         INTEGER NOT NULL,
	state_json  TEXT NOT NULL,
	patch_json  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	UNIQUE (unit, seq),
	FOREIGN KEY (parent_id) REFERENCES snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS generation_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id  TEXT NOT NULL,
	unit        INTEGER NOT NULL,
	seq         INTEGER NOT NULL,
	trigger_type TEXT NOT NULL,
	ratio       REAL NOT NULL,
	adds        INTEGER NOT NULL,
	removes     INTEGER NOT NULL,
	replaces    INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	unit        INTEGER PRIMARY KEY,
	version_id  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshots(version_id)
);
`

// #endregion schema

// #region store-struct
// Store persists snapshot chains in SQLite. Each unit has an active pointer to
// its most recent snapshot.
type Store struct {
	db *sql.DB
}

// ErrNoSnapshot is returned when a unit has no active snapshot.
var ErrNoSnapshot = errors.New("no snapshot")

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// PRAGMAs are per connection; one connection keeps foreign_keys in force.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region commit-snapshot
// CommitFunc runs inside the commit transaction once the snapshot row and the
// active pointer are written. An error rolls the whole commit back.
type CommitFunc func(tx *sql.Tx, rec SnapshotRecord) error

// CommitSnapshot inserts a snapshot and moves the unit's active pointer to it
// atomically. A missing VersionID or CreatedAt is filled in; the stored
// record is returned. Hooks share the transaction.
func (s *Store) CommitSnapshot(rec SnapshotRecord, hooks ...CommitFunc) (SnapshotRecord, error) {
	if rec.VersionID == "" {
		rec.VersionID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.PatchJSON == "" {
		rec.PatchJSON = "[]"
	}
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}

	_, err = tx.Exec(
		`INSERT INTO snapshots (version_id, parent_id, unit, seq, state_json, patch_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, rec.Unit, rec.Seq, string(stateJSON), rec.PatchJSON,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_snapshot (unit, version_id) VALUES (?, ?)
		 ON CONFLICT(unit) DO UPDATE SET version_id = excluded.version_id`,
		rec.Unit, rec.VersionID,
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("set active: %w", err)
	}

	for _, hook := range hooks {
		if err := hook(tx, rec); err != nil {
			return SnapshotRecord{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return SnapshotRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit-snapshot

// #region get-current
// GetCurrent reads a unit's active snapshot. It wraps ErrNoSnapshot when the
// unit has none.
func (s *Store) GetCurrent(unit int) (SnapshotRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_snapshot WHERE unit = ?`, unit).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, fmt.Errorf("unit %d: %w", unit, ErrNoSnapshot)
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
const snapshotColumns = `version_id, parent_id, unit, seq, state_json, patch_json, created_at`

// GetVersion retrieves a snapshot by ID.
func (s *Store) GetVersion(id string) (SnapshotRecord, error) {
	row := s.db.QueryRow(`SELECT `+snapshotColumns+` FROM snapshots WHERE version_id = ?`, id)
	rec, err := scanSnapshot(row)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner, extra ...any) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var parentID sql.NullString
	var stateJSON, createdStr string

	dest := append([]any{&rec.VersionID, &parentID, &rec.Unit, &rec.Seq, &stateJSON, &rec.PatchJSON, &createdStr}, extra...)
	if err := row.Scan(dest...); err != nil {
		return SnapshotRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return SnapshotRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion get-version

// #region lineage
// Lineage returns the chain ending at versionID, oldest snapshot first.
func (s *Store) Lineage(versionID string) ([]SnapshotRecord, error) {
	rows, err := s.db.Query(`
		WITH RECURSIVE chain(version_id, parent_id, depth) AS (
			SELECT version_id, parent_id, 0 FROM snapshots WHERE version_id = ?
			UNION ALL
			SELECT s.version_id, s.parent_id, c.depth + 1
			FROM snapshots s JOIN chain c ON s.version_id = c.parent_id
		)
		SELECT s.version_id, s.parent_id, s.unit, s.seq, s.state_json, s.patch_json, s.created_at
		FROM chain c JOIN snapshots s ON s.version_id = c.version_id
		ORDER BY c.depth DESC`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("lineage %s: %w", versionID, err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("version %s: %w", versionID, ErrNoSnapshot)
	}
	return records, nil
}

// #endregion lineage

// #region list-versions
// ListVersions returns the most recent snapshots with their generation_log
// fields, newest first. unit <= 0 lists every unit.
func (s *Store) ListVersions(unit, limit int) ([]SnapshotSummary, error) {
	rows, err := s.db.Query(`
		SELECT s.version_id, s.parent_id, s.unit, s.seq, s.state_json, s.patch_json, s.created_at,
		       COALESCE(g.trigger_type, ''), COALESCE(g.ratio, 0), COALESCE(g.adds, 0),
		       COALESCE(g.removes, 0), COALESCE(g.replaces, 0)
		FROM snapshots s
		LEFT JOIN generation_log g ON g.version_id = s.version_id
		WHERE ? <= 0 OR s.unit = ?
		ORDER BY s.created_at DESC, s.unit DESC, s.seq DESC
		LIMIT ?`, unit, unit, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var sum SnapshotSummary
		rec, err := scanSnapshot(rows, &sum.Trigger, &sum.Ratio, &sum.Adds, &sum.Removes, &sum.Replaces)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.SnapshotRecord = rec
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion list-versions

// #region units
// Units lists every unit that has an active snapshot.
func (s *Store) Units() ([]int, error) {
	rows, err := s.db.Query(`SELECT unit FROM active_snapshot ORDER BY unit`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []int
	for rows.Next() {
		var u int
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// #endregion units

// #region reset
// Reset deletes every snapshot and log row.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"active_snapshot", "generation_log", "snapshots"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// #endregion reset
