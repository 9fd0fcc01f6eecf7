package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #region command

func newInspectCmd(root *rootOptions) *cobra.Command {
	var dbPath, version string
	var unit, last int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List stored snapshots and their generation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := root.loadConfig()
				if err != nil {
					return err
				}
				dbPath = cfg.Store.Path
			}
			if dbPath == "" {
				return errors.New("--db is required")
			}
			store, err := state.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if version != "" {
				return runDetailMode(cmd.OutOrStdout(), store, version)
			}
			return runListMode(cmd.OutOrStdout(), store, unit, last, jsonOut)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&dbPath, "db", "", "snapshot database")
	fl.IntVar(&unit, "unit", 0, "only this unit (0 = all)")
	fl.IntVar(&last, "last", 20, "show N most recent snapshots")
	fl.StringVar(&version, "version", "", "print one snapshot's state and patch")
	fl.BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region list-mode

type listRow struct {
	VersionID string  `json:"version_id"`
	ParentID  string  `json:"parent_id,omitempty"`
	Unit      int     `json:"unit"`
	Seq       int     `json:"seq"`
	Trigger   string  `json:"trigger"`
	Ratio     float64 `json:"ratio"`
	Leaves    int     `json:"leaves"`
	Adds      int     `json:"adds"`
	Removes   int     `json:"removes"`
	Replaces  int     `json:"replaces"`
	CreatedAt string  `json:"created_at"`
}

func runListMode(out io.Writer, store *state.Store, unit, last int, jsonOut bool) error {
	versions, err := store.ListVersions(unit, last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(out, "no snapshots found")
		return nil
	}

	// store returns newest first, reverse for chronological
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[len(versions)-1-i] = listRow{
			VersionID: v.VersionID,
			ParentID:  v.ParentID,
			Unit:      v.Unit,
			Seq:       v.Seq,
			Trigger:   v.Trigger,
			Ratio:     v.Ratio,
			Leaves:    v.State.Len(),
			Adds:      v.Adds,
			Removes:   v.Removes,
			Replaces:  v.Replaces,
			CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(out, rows)
	}
	return printListTable(out, rows)
}

func printListTable(out io.Writer, rows []listRow) error {
	fmt.Fprintf(out, "%-12s  %4s  %4s  %-13s  %5s  %6s  %5s  %5s  %5s  %s\n",
		"Version", "Unit", "Seq", "Trigger", "Ratio", "Leaves", "Add", "Rm", "Repl", "Time")
	fmt.Fprintf(out, "%-12s+-%4s+-%4s+-%-13s+-%5s+-%6s+-%5s+-%5s+-%5s+-%s\n",
		"------------", "----", "----", "-------------", "-----", "------", "-----", "-----", "-----", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(out, "%-12s  %4d  %4d  %-13s  %5.2f  %6d  %5d  %5d  %5d  %s\n",
			shortID(r.VersionID), r.Unit, r.Seq, r.Trigger, r.Ratio, r.Leaves, r.Adds, r.Removes, r.Replaces, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(out io.Writer, store *state.Store, versionID string) error {
	rec, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Version: %s\n", rec.VersionID)
	if rec.ParentID != "" {
		fmt.Fprintf(out, "Parent:  %s\n", rec.ParentID)
	}
	fmt.Fprintf(out, "Unit:    %d\nSeq:     %d\nLeaves:  %d\nCreated: %s\n\n",
		rec.Unit, rec.Seq, rec.State.Len(), rec.CreatedAt.Format("2006-01-02T15:04:05Z"))

	fmt.Fprintln(out, "State:")
	if err := printJSON(out, rec.State); err != nil {
		return err
	}
	fmt.Fprintln(out, "\nPatch:")
	return printJSON(out, json.RawMessage(rec.PatchJSON))
}

// #endregion detail-mode

// #region helpers

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// #endregion helpers
