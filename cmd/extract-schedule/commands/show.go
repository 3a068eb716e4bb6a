package commands

import (
	"fmt"
	"io"
	"schedule-extractor/internal/schedule"
	"schedule-extractor/lib/textutil"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [record.json]",
	Short: "Print a record as a table, defaults to the record of the last run.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.artifacts().RecordPath()
		if len(args) == 1 {
			path = args[0]
		}
		dates, _ := cmd.Flags().GetStringSlice("date")
		categories, _ := cmd.Flags().GetStringSlice("category")

		record, err := readRecordFile(path)
		if err != nil {
			return err
		}
		renderRecord(cmd.OutOrStdout(), record, recordFilter{
			dates:      dates,
			categories: categories,
		})
		return nil
	},
}

func init() {
	showCmd.Flags().StringSlice("date", nil, "Only show dates containing any of these (case and whitespace insensitive).")
	showCmd.Flags().StringSlice("category", nil, "Only show categories containing any of these (case and whitespace insensitive).")
	rootCmd.AddCommand(showCmd)
}

type recordFilter struct {
	dates      []string
	categories []string
}

func formatChannels(channels []schedule.Channel) string {
	parts := make([]string, len(channels))
	for i, c := range channels {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Id)
	}
	return textutil.Truncate(strings.Join(parts, ", "), 80)
}

func renderRecord(w io.Writer, record *schedule.Record, filter recordFilter) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Category", "Time", "Event", "Channels"})

	shown := 0
	for _, date := range record.Dates() {
		if !textutil.MatchName(date, filter.dates) {
			continue
		}
		categories, _ := record.Date(date)
		for _, category := range categories.Names() {
			if !textutil.MatchName(category, filter.categories) {
				continue
			}
			label := schedule.CategoryLabel(category)
			for _, event := range categories.Events(category) {
				t.AppendRow(table.Row{
					date,
					label,
					event.Time,
					event.Description,
					formatChannels(event.Channels),
				})
				shown++
			}
		}
	}

	t.AppendFooter(table.Row{"", "", "", "Events", shown})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
