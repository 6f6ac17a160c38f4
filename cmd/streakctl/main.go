package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "streakctl",
	Short: "Operate the streakd commit scheduler",
	Long: `streakctl works against the same stores and queues as the streakd service.

Examples:
  streakctl process 6f1c...        # run one pending commit now
  streakctl tick                   # process every due commit once
  streakctl trigger 6f1c...        # ask the running service to run a commit
  streakctl cleanup --user 42      # drop a user's pending commits
  streakctl status                 # scheduler flag and due backlog
  streakctl scheduler disable      # pause the loop on every instance
  streakctl migrate                # create tables for the configured store`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.load()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cli.close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cli.configFile, "config", "c", os.Getenv("STREAKD_CONFIG"), "config file (default ./streakd.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(schedulerCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
