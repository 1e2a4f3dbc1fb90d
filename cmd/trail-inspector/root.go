package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/turbot/trail-inspector/config"
	"github.com/turbot/trail-inspector/constants"
)

// Build the cobra command that handles our command line tool.
func rootCommand() *cobra.Command {
	var (
		limit      int
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "Fetch CloudTrail log objects and print their records",
		Long: `Fetches up to --limit new CloudTrail log objects from the trail bucket,
then prints one tab separated line per record:
event time, event name, user identity ARN, event source, user agent, source IP address.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				cfg.Limit = &limit
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	rootCmd.Flags().IntVar(&limit, "limit", constants.DefaultFetchLimit, "maximum number of new log objects to fetch")
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to the config file (default "+constants.DefaultConfigPath+")")

	return rootCmd
}

func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
