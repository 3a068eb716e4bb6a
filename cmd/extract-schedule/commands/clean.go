package commands

import (
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the artifacts of a previous run from the output directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("out") {
			cfg.OutputDir, _ = cmd.Flags().GetString("out")
		}
		cleanOutput(cfg.artifacts(), telemetry.SlogAPI{})
		return nil
	},
}

func init() {
	cleanCmd.Flags().StringP("out", "o", "", "The directory artifacts are written to.")
	rootCmd.AddCommand(cleanCmd)
}

// cleanOutput is best effort like the cleanup before a run, files that could
// not be removed are reported through tel and do not fail the command.
func cleanOutput(artifacts acquire.Artifacts, tel telemetry.API) {
	err := artifacts.Clean(tel)
	if err != nil {
		tel.ReportDebug("some previous files were kept", artifacts.Dir)
	}
}
