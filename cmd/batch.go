package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/chartmeta/internal/adapters/chartfs"
	app "github.com/okian/chartmeta/internal/app"
	"github.com/okian/chartmeta/pkg/logger"
)

const usageLine = "chartmeta <song directory> <easy> <normal> <hard> <expert> <master>"

// runBatch scores one song. Any argument count other than six prints the
// usage and does nothing.
func runBatch(cmd *cobra.Command, out io.Writer, args []string) error {
	if len(args) != 1+len(chartfs.Difficulties) {
		_, _ = fmt.Fprintf(out, "Usage: %s\n", usageLine)
		return nil
	}
	song := args[0]
	levels, err := parseLevels(args[1:])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log := logger.Get()
	svc := app.New(
		app.WithLogger(log),
		app.WithChartDir(cfg.ChartDir),
		app.WithOutputCSV(cfg.OutputCSV),
		app.WithSQLitePath(cfg.SQLitePath),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithMaxChartBytes(cfg.MaxChartBytes),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	report, err := svc.RunBatch(ctx, song, levels)
	if stopErr := svc.Stop(ctx); stopErr != nil {
		log.Error(ctx, "service stop failed", logger.Error(stopErr))
	}
	if err != nil {
		return err
	}
	for _, f := range report.Failed {
		logger.ForChart(log, logger.Chart{Song: song, Diff: f.Job.Diff, Fever: f.Job.Fever}).
			Warn(ctx, "chart skipped", logger.Error(f.Err))
	}
	return nil
}

// parseLevels maps the positional difficulty levels onto
// chartfs.Difficulties.
func parseLevels(args []string) (map[string]int, error) {
	levels := make(map[string]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("level for %s: %w", chartfs.Difficulties[i], err)
		}
		levels[chartfs.Difficulties[i]] = n
	}
	return levels, nil
}
