// Package output lays generated snapshots out on disk:
//
//	<dir>/<prefix>_<unit>/<unit>_<seq>.json          state
//	<dir>/<prefix>_<unit>/patches/<unit>_<seq>.json  patch from the previous state
//
// Units and sequence numbers start at 1.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

const (
	patchDir = "patches"
	indent   = "    "
)

// #region writer
// Writer owns one output directory.
type Writer struct {
	dir    string
	prefix string
}

// NewWriter returns a writer rooted at dir. An empty prefix defaults to "car".
func NewWriter(dir, prefix string) *Writer {
	if prefix == "" {
		prefix = "car"
	}
	return &Writer{dir: dir, prefix: prefix}
}

// Dir returns the output root as given.
func (w *Writer) Dir() string { return w.dir }

// Abs returns the absolute output root.
func (w *Writer) Abs() string {
	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return w.dir
	}
	return abs
}

// Prepare creates the output root. With clean set, an existing root is
// removed first; removed reports whether there was one.
func (w *Writer) Prepare(clean bool) (removed bool, err error) {
	if clean {
		info, statErr := os.Stat(w.dir)
		if statErr == nil && info.IsDir() {
			if err := os.RemoveAll(w.dir); err != nil {
				return false, fmt.Errorf("remove %s: %w", w.dir, err)
			}
			removed = true
		}
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return removed, fmt.Errorf("create %s: %w", w.dir, err)
	}
	return removed, nil
}

// UnitDir is the directory holding a unit's states.
func (w *Writer) UnitDir(unit int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%d", w.prefix, unit))
}

// StatePath is the state file of snapshot seq of unit.
func (w *Writer) StatePath(unit, seq int) string {
	return filepath.Join(w.UnitDir(unit), fileName(unit, seq))
}

// PatchPath is the patch file that produced snapshot seq of unit.
func (w *Writer) PatchPath(unit, seq int) string {
	return filepath.Join(w.UnitDir(unit), patchDir, fileName(unit, seq))
}

func fileName(unit, seq int) string { return fmt.Sprintf("%d_%d.json", unit, seq) }

// WriteSnapshot writes a state and its patch. Both files are complete on disk
// before it returns.
func (w *Writer) WriteSnapshot(unit, seq int, tree state.Tree, p patch.Patch) error {
	if unit < 1 || seq < 1 {
		return fmt.Errorf("write snapshot: unit %d seq %d must be >= 1", unit, seq)
	}
	if err := os.MkdirAll(filepath.Join(w.UnitDir(unit), patchDir), 0o755); err != nil {
		return fmt.Errorf("create unit dir: %w", err)
	}
	if err := writeJSON(w.StatePath(unit, seq), tree); err != nil {
		return err
	}
	return writeJSON(w.PatchPath(unit, seq), p)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", indent)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// #endregion writer

// #region reader
// Entry is one snapshot read back from disk.
type Entry struct {
	Unit  int
	Seq   int
	State state.Tree
	Patch patch.Patch
}

// ErrNoSnapshots is returned when a unit directory holds no state files.
var ErrNoSnapshots = errors.New("no snapshots")

// ReadUnit loads every snapshot of unit in sequence order.
func (w *Writer) ReadUnit(unit int) ([]Entry, error) {
	seqs, err := w.sequences(unit)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, fmt.Errorf("read unit %d: %w", unit, ErrNoSnapshots)
	}

	entries := make([]Entry, 0, len(seqs))
	for _, seq := range seqs {
		tree, err := readState(w.StatePath(unit, seq))
		if err != nil {
			return nil, err
		}
		p, err := readPatch(w.PatchPath(unit, seq))
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Unit: unit, Seq: seq, State: tree, Patch: p})
	}
	return entries, nil
}

// Units lists the unit numbers present under the output root, ascending.
func (w *Writer) Units() ([]int, error) {
	dirs, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", w.dir, err)
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(w.prefix) + `_(\d+)$`)
	var units []int
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if m := re.FindStringSubmatch(d.Name()); m != nil {
			n, _ := strconv.Atoi(m[1])
			units = append(units, n)
		}
	}
	slices.Sort(units)
	return units, nil
}

func (w *Writer) sequences(unit int) ([]int, error) {
	files, err := os.ReadDir(w.UnitDir(unit))
	if err != nil {
		return nil, fmt.Errorf("read unit %d: %w", unit, err)
	}
	re := regexp.MustCompile(`^` + strconv.Itoa(unit) + `_(\d+)\.json$`)
	var seqs []int
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if m := re.FindStringSubmatch(f.Name()); m != nil {
			n, _ := strconv.Atoi(m[1])
			seqs = append(seqs, n)
		}
	}
	slices.Sort(seqs)
	return seqs, nil
}

func readState(path string) (state.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return state.Tree{}, fmt.Errorf("read %s: %w", path, err)
	}
	tree, err := state.Decode(bytes.NewReader(data))
	if err != nil {
		return state.Tree{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

func readPatch(path string) (patch.Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := patch.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// #endregion reader
