package state

import "time"

// #region snapshot-record
// SnapshotRecord is one persisted state snapshot of a generation unit, linked
// to the snapshot it was derived from.
type SnapshotRecord struct {
	VersionID string
	ParentID  string // "" for the first snapshot of a unit
	Unit      int
	Seq       int // 1-based position in the unit's chain
	State     Tree
	PatchJSON string // RFC 6902 patch from the parent state ({} for Seq 1)
	CreatedAt time.Time
}

// #endregion snapshot-record

// #region snapshot-summary
// SnapshotSummary pairs a snapshot with its generation_log row fields.
type SnapshotSummary struct {
	SnapshotRecord
	Trigger  string
	Ratio    float64
	Adds     int
	Removes  int
	Replaces int
}

// #endregion snapshot-summary
