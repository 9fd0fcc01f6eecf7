// Command vssgen generates synthetic vehicle signal datasets: chains of
// random state snapshots derived from a VSS schema, each paired with the
// RFC 6902 patch that produces it from its predecessor.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/vss-synth/internal/config"
	"github.com/danielpatrickdp/vss-synth/internal/logging"
)

// #region main

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region root

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "vssgen",
		Short: "Generate synthetic VSS state snapshots and JSON patches",
		Long: `vssgen walks a Vehicle Signal Specification schema and produces, for every
generated unit (car), a chain of random state snapshots together with the
RFC 6902 JSON patch leading to each snapshot from the previous one.

Examples:
  vssgen generate --dataset ./vss_rel_4.2.json --n_cars 10 --n_files 50
  vssgen replay --dir ./output
  vssgen inspect --db ./vss.db --last 20
  vssgen diff output/car_1/1_1.json output/car_1/1_2.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newReplayCmd(),
		newInspectCmd(opts),
		newDiffCmd(),
	)
	return cmd
}

// loadConfig layers the config file, the environment and the persistent flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLogger(w, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

// #endregion root
