package logging

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var errNoVersion = errors.New("version id is required")

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// #region log-transition
// LogTransition writes a provenance entry to the generation_log table. Pass
// the snapshot's commit transaction to keep both rows atomic.
func LogTransition(db Execer, entry TransitionEntry) error {
	if entry.VersionID == "" {
		return fmt.Errorf("log transition: %w", errNoVersion)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO generation_log (version_id, unit, seq, trigger_type, ratio, adds, removes, replaces, skipped, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.Unit,
		entry.Seq,
		triggerOrDefault(entry.TriggerType),
		entry.Ratio,
		entry.Adds,
		entry.Removes,
		entry.Replaces,
		entry.Skipped,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}

// #endregion log-transition

// #region helpers
func triggerOrDefault(s string) string {
	if s == "" {
		return TriggerNext
	}
	return s
}

// #endregion helpers
