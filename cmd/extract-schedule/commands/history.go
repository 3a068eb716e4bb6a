package commands

import (
	"fmt"
	"io"
	"schedule-extractor/internal/components/chrono"
	"schedule-extractor/internal/history"
	"schedule-extractor/internal/schedule"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs, print a stored record or the events a channel carried in the latest run.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("db") {
			cfg.HistoryDb, _ = cmd.Flags().GetString("db")
		}
		if cfg.HistoryDb == "" {
			return fmt.Errorf("no history database, pass --db or set history_db")
		}
		limit, _ := cmd.Flags().GetInt("limit")
		channel, _ := cmd.Flags().GetString("channel")
		runId, _ := cmd.Flags().GetInt64("run")

		store, err := history.Open(cfg.HistoryDb, chrono.NewStandardTime())
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if runId > 0 {
			record, err := store.Record(ctx, runId)
			if err != nil {
				return err
			}
			renderRecord(cmd.OutOrStdout(), record, recordFilter{})
			return nil
		}

		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if channel == "" {
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		}
		if len(runs) == 0 {
			return history.ErrRunNotFound
		}

		events, err := store.EventsOnChannel(ctx, runs[0].ID, channel)
		if err != nil {
			return err
		}
		renderChannelEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("db", "", "The sqlite history database.")
	historyCmd.Flags().Int("limit", 20, "The maximum number of runs to list.")
	historyCmd.Flags().Int64("run", 0, "Print the record stored with this run.")
	historyCmd.Flags().String("channel", "", "Show the events carried by this channel id in the latest run.")
	rootCmd.AddCommand(historyCmd)
}

func renderRuns(w io.Writer, runs []history.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run", "Acquired", "URL", "Attempts", "Dates", "Events"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.AcquiredAt.Local().Format(time.DateTime),
			r.URL,
			r.Attempts,
			r.Dates,
			r.Events,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderChannelEvents(w io.Writer, events []history.ChannelEvent) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Category", "Time", "Event", "Channel"})
	for _, e := range events {
		t.AppendRow(table.Row{
			e.Date,
			schedule.CategoryLabel(e.Category),
			e.Time,
			e.Description,
			e.ChannelName,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
