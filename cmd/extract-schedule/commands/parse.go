package commands

import (
	"fmt"
	"io"
	"os"
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/components/telemetry"
	"schedule-extractor/internal/schedule"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <container.html>",
	Short: "Convert saved container markup into a record without a browser.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		markup, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		record, err := schedule.Parse(string(markup), telemetry.SlogAPI{})
		if err != nil {
			return err
		}

		if out == "" {
			err = record.WriteJSON(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		}
		return acquire.WriteFileAtomic(out, record.WriteJSON)
	},
}

func init() {
	parseCmd.Flags().StringP("out", "o", "", "Write the record to this file instead of stdout.")
	rootCmd.AddCommand(parseCmd)
}

func readRecordFile(path string) (*schedule.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRecord(f)
}

func readRecord(r io.Reader) (*schedule.Record, error) {
	record, err := schedule.ReadJSON(r)
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
