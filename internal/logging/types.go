package logging

import "time"

// Trigger names recorded in generation_log.trigger_type.
const (
	TriggerGenerate = "generate"
	TriggerNext     = "generate_next"
)

// #region transition-entry
// TransitionEntry is a single row in the generation_log table.
type TransitionEntry struct {
	VersionID   string
	Unit        int
	Seq         int
	TriggerType string  // TriggerGenerate | TriggerNext
	Ratio       float64 // dataset size for generate, change rate for generate_next
	Adds        int
	Removes     int
	Replaces    int
	Skipped     int // included leaves with no generation rule
	CreatedAt   time.Time
}

// #endregion transition-entry
