package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/vss-synth/internal/patch"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

func newDiffCmd() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "diff OLD.json NEW.json",
		Short: "Print the JSON patch between two state files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := readStateFile(args[0])
			if err != nil {
				return err
			}
			updated, err := readStateFile(args[1])
			if err != nil {
				return err
			}
			p, err := patch.Compute(old, updated)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if summary {
				s := patch.Summarize(p)
				fmt.Fprintf(out, "%d operations: %d add, %d remove, %d replace\n", s.Total(), s.Adds, s.Removes, s.Replaces)
				return nil
			}
			return printJSON(out, p)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print operation counts only")
	return cmd
}

func readStateFile(path string) (state.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return state.Tree{}, err
	}
	defer f.Close()
	tree, err := state.Decode(f)
	if err != nil {
		return state.Tree{}, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}
