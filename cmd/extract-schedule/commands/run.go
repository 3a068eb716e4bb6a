package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/components/chrono"
	"schedule-extractor/internal/components/telemetry"
	"schedule-extractor/internal/history"
	"schedule-extractor/internal/pipeline"
	libtelemetry "schedule-extractor/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Acquire the schedule container and write the record.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd)
		return run(cmd.Context(), cfg)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.String("url", "", "The page to acquire.")
	flags.String("container", "", "The id of the schedule container element.")
	flags.Int("attempts", 0, "The maximum number of acquisition attempts.")
	flags.Duration("delay", 0, "The delay before the first retry.")
	flags.StringP("out", "o", "", "The directory artifacts are written to.")
	flags.String("db", "", "Also store the record in this sqlite history database.")
	flags.String("chrome", "", "Path to the chrome executable.")
	flags.String("remote", "", "Connect to an already running browser's devtools websocket instead of launching one.")
	flags.Bool("no-sandbox", false, "Launch chrome without its sandbox.")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides the loaded config with the flags that were set
// explicitly.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Lookup("url") == nil {
		return
	}
	if flags.Changed("url") {
		cfg.URL, _ = flags.GetString("url")
	}
	if flags.Changed("container") {
		cfg.ContainerID, _ = flags.GetString("container")
	}
	if flags.Changed("attempts") {
		cfg.MaxAttempts, _ = flags.GetInt("attempts")
	}
	if flags.Changed("delay") {
		delay, _ := flags.GetDuration("delay")
		cfg.InitialDelay = delay.String()
	}
	if flags.Changed("out") {
		cfg.OutputDir, _ = flags.GetString("out")
	}
	if flags.Changed("db") {
		cfg.HistoryDb, _ = flags.GetString("db")
	}
	if flags.Changed("chrome") {
		cfg.Chrome.ExecPath, _ = flags.GetString("chrome")
	}
	if flags.Changed("remote") {
		cfg.Chrome.RemoteURL, _ = flags.GetString("remote")
	}
	if flags.Changed("no-sandbox") {
		cfg.Chrome.NoSandbox, _ = flags.GetBool("no-sandbox")
	}
}

func run(ctx context.Context, cfg Config) error {
	opts, err := cfg.options()
	if err != nil {
		return err
	}
	perfInterval, err := cfg.perfStatsInterval()
	if err != nil {
		return err
	}
	engine, err := cfg.engine()
	if err != nil {
		return err
	}

	otel, err := libtelemetry.SetupFromEnv(ctx, "extract-schedule")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}()
	if perfInterval > 0 {
		libtelemetry.InstrumentPerfStats(ctx, perfInterval)
	}

	var store *history.Store
	if cfg.HistoryDb != "" {
		store, err = history.Open(cfg.HistoryDb, chrono.NewStandardTime())
		if err != nil {
			return err
		}
		defer store.Close()
	}

	tel := telemetry.SlogAPI{}
	artifacts := cfg.artifacts()
	processor := pipeline.New(artifacts, tel)
	controller := acquire.NewController(
		engine,
		artifacts,
		processor,
		chrono.NewStandardTime(),
		tel,
		opts,
	)

	slog.Info("acquiring schedule", "url", opts.URL, "max_attempts", opts.MaxAttempts)
	result, err := controller.Acquire(ctx)
	if err != nil {
		slog.Error("schedule extraction failed", "attempts", result.Attempts, "err", err)
		return err
	}

	record := processor.Record()
	slog.Info(
		"schedule extracted",
		"attempts", result.Attempts,
		"dates", record.Len(),
		"events", record.EventCount(),
		"record", artifacts.RecordPath(),
	)

	if store != nil {
		id, err := store.SaveRun(ctx, history.Run{
			URL:         opts.URL,
			Attempts:    result.Attempts,
			MarkupBytes: len(result.Markup),
		}, record)
		if err != nil {
			slog.Warn("failed to save run to history", "db", cfg.HistoryDb, "err", err)
			return nil
		}
		slog.Info("saved run to history", "db", cfg.HistoryDb, "run", id)
	}
	return nil
}
