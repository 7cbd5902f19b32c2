package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/chartmeta/internal/config"
	"github.com/okian/chartmeta/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		// Logger isn't available yet.
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig loads the layered config and applies the flag overrides and
// the log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("chart-dir") {
		cfg.ChartDir, _ = flags.GetString("chart-dir")
	}
	if flags.Changed("output") {
		cfg.OutputCSV, _ = flags.GetString("output")
	}
	if flags.Changed("sqlite") {
		cfg.SQLitePath, _ = flags.GetString("sqlite")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   usageLine,
		Short: "Extract score metadata from rhythm game charts",
		Long: `chartmeta reads the five difficulty charts of a song, simulates a full
combo run with and without fever, and appends one row per run to a CSV file.`,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, out, args)
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.String("chart-dir", "", "directory holding <song>/<difficulty> charts")
	pf.String("output", "", "CSV file rows are appended to")
	pf.String("sqlite", "", "also store rows in this SQLite database")

	root.AddCommand(newServeCmd(), newSubmitCmd(out))
	return root
}
