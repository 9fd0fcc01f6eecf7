package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/vss-synth/internal/config"
	"github.com/danielpatrickdp/vss-synth/internal/eval"
	"github.com/danielpatrickdp/vss-synth/internal/generator"
	"github.com/danielpatrickdp/vss-synth/internal/metrics"
	"github.com/danielpatrickdp/vss-synth/internal/orchestrator"
	"github.com/danielpatrickdp/vss-synth/internal/output"
	"github.com/danielpatrickdp/vss-synth/internal/progress"
	"github.com/danielpatrickdp/vss-synth/internal/schema"
	"github.com/danielpatrickdp/vss-synth/internal/state"
)

// #region flags

type generateFlags struct {
	dataset    string
	units      int
	snapshots  int
	changeRate float64
	size       float64
	seed       uint64
	outDir     string
	prefix     string
	noClean    bool
	dbPath     string
	resume     bool
	verify     bool
	textfile   string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate snapshot chains for a number of cars",
		Long: `Generate n_cars chains of n_files snapshots. The first snapshot of every car
includes each schema leaf with probability --size; every later snapshot
regenerates each scalar leaf of its predecessor with probability --change_rate.

Layout:
  <output>/car_<i>/<i>_<j>.json           state j of car i
  <output>/car_<i>/patches/<i>_<j>.json   patch from state j-1 (j=1: from {})`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runGenerate(cmd, cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.dataset, "dataset", "", "path to the VSS JSON or YAML schema")
	fl.IntVar(&f.units, "n_cars", 0, "number of cars to generate")
	fl.IntVar(&f.snapshots, "n_files", 0, "number of JSON files per car")
	fl.Float64Var(&f.changeRate, "change_rate", 0, "change rate for each car (default 0.2)")
	fl.Float64Var(&f.size, "size", 0, "dataset size ratio 0.0-1.0 (default 1.0)")
	fl.Uint64Var(&f.seed, "seed", 0, "seed for a reproducible run")
	fl.StringVar(&f.outDir, "output", "", "output directory (default ./output)")
	fl.StringVar(&f.prefix, "prefix", "", "unit directory prefix (default car)")
	fl.BoolVar(&f.noClean, "no-clean", false, "keep an existing output directory")
	fl.StringVar(&f.dbPath, "db", "", "also record snapshots in this SQLite database")
	fl.BoolVar(&f.resume, "resume", false, "continue every car from its last snapshot in --db")
	fl.BoolVar(&f.verify, "verify", false, "check every snapshot against the schema and its patch")
	fl.StringVar(&f.textfile, "metrics-textfile", "", "write Prometheus metrics to this file")
	return cmd
}

// apply copies the flags the user set over the loaded config.
func (f *generateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("dataset") {
		cfg.Schema = f.dataset
	}
	if changed("n_cars") {
		cfg.Units = f.units
	}
	if changed("n_files") {
		cfg.Snapshots = f.snapshots
	}
	if changed("change_rate") {
		cfg.ChangeRate = f.changeRate
	}
	if changed("size") {
		cfg.Size = f.size
	}
	if changed("seed") {
		seed := f.seed
		cfg.Seed = &seed
	}
	if changed("output") {
		cfg.Output.Dir = f.outDir
	}
	if changed("prefix") {
		cfg.Output.Prefix = f.prefix
	}
	if f.noClean || f.resume {
		cfg.Output.Clean = false
	}
	if changed("db") {
		cfg.Store.Path = f.dbPath
	}
	if changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.textfile
	}
}

// #endregion flags

// #region run

func runGenerate(cmd *cobra.Command, cfg *config.Config, f *generateFlags) error {
	out := cmd.OutOrStdout()
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Running with arguments:")
	fmt.Fprintln(out, "--dataset:", cfg.Schema)
	fmt.Fprintln(out, "--n_cars:", cfg.Units)
	fmt.Fprintln(out, "--n_files:", cfg.Snapshots)
	fmt.Fprintln(out, "--change_rate:", cfg.ChangeRate)
	fmt.Fprintf(out, "--size: %v\n\n", cfg.Size)

	store, err := openStore(cfg, f.resume)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	w := output.NewWriter(cfg.Output.Dir, cfg.Output.Prefix)
	fmt.Fprint(out, "Checking for existing output directory...")
	removed, err := w.Prepare(cfg.Output.Clean)
	if err != nil {
		return err
	}
	switch {
	case removed:
		fmt.Fprint(out, "\nDirectory found. Removing...removed successfully.\n\n")
	case cfg.Output.Clean:
		fmt.Fprint(out, "not found.\n\n")
	default:
		fmt.Fprint(out, "kept.\n\n")
	}

	sch, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		return err
	}

	seed := rand.Uint64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	logger.Info("schema loaded", "source", sch.Source(), "leaves", sch.Len(), "seed", seed)

	gen, err := generator.New(sch, generator.NewRand(seed), generator.WithLogger(logger))
	if err != nil {
		return err
	}

	m := metrics.New()
	fmt.Fprintf(out, "Generating %d cars with %d files each...\n", cfg.Units, cfg.Snapshots)
	bar := progress.New(cmd.ErrOrStderr(), cfg.Units*cfg.Snapshots, "Progress")
	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(m),
		orchestrator.WithProgress(bar),
	}
	if store != nil {
		opts = append(opts, orchestrator.WithStore(store))
	}
	if f.verify {
		opts = append(opts, orchestrator.WithEval(eval.NewEvalHarness(eval.DefaultEvalConfig()), eval.NewIndex(gen.Leaves())))
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	o := orchestrator.NewOrchestrator(gen, w, opts...)
	sum, runErr := o.Run(ctx, orchestrator.RunConfig{
		Units:      cfg.Units,
		Snapshots:  cfg.Snapshots,
		Size:       cfg.Size,
		ChangeRate: cfg.ChangeRate,
		Resume:     f.resume,
	})
	bar.Finish()

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(out, "Saved to %s! Exiting...\n", w.Abs())
	if sum.EvalFailures > 0 {
		return fmt.Errorf("%d snapshots failed verification", sum.EvalFailures)
	}
	return nil
}

// openStore opens the configured store, or returns nil without one. A clean
// run starts new lineages; a run that neither cleans nor resumes needs an
// empty store, since its chains restart at seq 1.
func openStore(cfg *config.Config, resume bool) (*state.Store, error) {
	if cfg.Store.Path == "" {
		return nil, nil
	}
	store, err := state.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.Output.Clean:
		err = store.Reset()
	case !resume:
		var units []int
		units, err = store.Units()
		if err == nil && len(units) > 0 {
			err = fmt.Errorf("store %s already holds snapshots for %d units: pass --resume to extend them or drop --no-clean to start over", cfg.Store.Path, len(units))
		}
	}
	if err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// #endregion run
