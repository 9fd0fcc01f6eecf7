package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/vss-synth/internal/output"
	"github.com/danielpatrickdp/vss-synth/internal/replay"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #region command

func newReplayCmd() *cobra.Command {
	var dir, prefix, dbPath string
	var unit int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-apply recorded patches and compare with the recorded states",
		Long: `Replay starts every unit from {} and applies its patches in order, checking
that each result equals the state written next to the patch.

Sources:
  --dir   an output directory written by generate
  --db    a snapshot database written by generate --db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (dir == "") == (dbPath == "") {
				return errors.New("exactly one of --dir or --db is required")
			}
			chains, err := loadChains(dir, prefix, dbPath, unit)
			if err != nil {
				return err
			}
			return runReplay(cmd.OutOrStdout(), chains, verbose)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&dir, "dir", "", "output directory to replay")
	fl.StringVar(&prefix, "prefix", "car", "unit directory prefix")
	fl.StringVar(&dbPath, "db", "", "snapshot database to replay")
	fl.IntVar(&unit, "unit", 0, "replay a single unit (0 = all)")
	fl.BoolVarP(&verbose, "verbose", "v", false, "print every step")
	return cmd
}

// #endregion command

// #region sources

type chain struct {
	unit  int
	steps []replay.Step
}

func loadChains(dir, prefix, dbPath string, only int) ([]chain, error) {
	if dir != "" {
		return loadDirChains(output.NewWriter(dir, prefix), only)
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return loadStoreChains(store, only)
}

func loadDirChains(w *output.Writer, only int) ([]chain, error) {
	units := []int{only}
	if only == 0 {
		var err error
		if units, err = w.Units(); err != nil {
			return nil, err
		}
	}
	chains := make([]chain, 0, len(units))
	for _, u := range units {
		entries, err := w.ReadUnit(u)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain{unit: u, steps: replay.FromEntries(entries)})
	}
	return chains, nil
}

func loadStoreChains(store *state.Store, only int) ([]chain, error) {
	units := []int{only}
	if only == 0 {
		var err error
		if units, err = store.Units(); err != nil {
			return nil, err
		}
	}
	chains := make([]chain, 0, len(units))
	for _, u := range units {
		cur, err := store.GetCurrent(u)
		if err != nil {
			return nil, err
		}
		lineage, err := store.Lineage(cur.VersionID)
		if err != nil {
			return nil, err
		}
		steps, err := replay.FromLineage(lineage)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain{unit: u, steps: steps})
	}
	return chains, nil
}

// #endregion sources

// #region report

func runReplay(out io.Writer, chains []chain, verbose bool) error {
	if len(chains) == 0 {
		return errors.New("nothing to replay")
	}

	failed := 0
	for _, c := range chains {
		results := replay.Replay(c.steps)
		summary := replay.Summarize(results, replay.Final(c.steps))

		fmt.Fprintf(out, "unit %d: %d steps, %d match, %d mismatch, %d apply errors, %d leaves at tip\n",
			c.unit, summary.TotalSteps, summary.Matches, summary.Mismatches, summary.ApplyErrors, summary.FinalState.Len())
		for _, r := range results {
			if verbose || r.Action != replay.ActionMatch {
				fmt.Fprintf(out, "  %-40s %-12s +%d -%d ~%d %s\n",
					r.ID, r.Action, r.Ops.Adds, r.Ops.Removes, r.Ops.Replaces, r.Reason)
			}
		}
		if !summary.OK() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d units did not replay cleanly", failed, len(chains))
	}
	return nil
}

// #endregion report
