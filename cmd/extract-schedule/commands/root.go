package commands

import (
	"context"
	"fmt"
	"os"
	"schedule-extractor/lib/configutil"
	"schedule-extractor/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool

	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "extract-schedule",
	Short: "extract-schedule renders the schedule page in a headless browser and converts it to JSON.",
	Long: `extract-schedule renders the schedule page in a headless browser, saves the
schedule container's markup and converts it into a date -> category -> events
JSON document. Without a subcommand it behaves like "run".`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)

		var err error
		cfg, err = configutil.ReadWithDefaults(*configPath, defaultConfig())
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The json5 config file, config.local.json5 next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
