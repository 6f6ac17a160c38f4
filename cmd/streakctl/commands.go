package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	commonsConfig "streakd/commons/config"
	cache "streakd/internal/cache/iface"
	"streakd/internal/config"
	triggerIface "streakd/internal/consumer/trigger_queue/iface"
	triggerImpl "streakd/internal/consumer/trigger_queue/impl"
	"streakd/internal/dto"
	"streakd/internal/queue/sqs"
	"streakd/internal/repository/dynamodb"
	"streakd/internal/service"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <job-id>",
	Short: "Run one pending commit now, ignoring its scheduled time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		scheduler, err := cli.scheduler(ctx)
		if err != nil {
			return err
		}

		result := scheduler.ProcessCommitByID(ctx, args[0])
		if err := printJSON(cmd.OutOrStdout(), dto.ProcessCommitResponse{
			JobID:   args[0],
			Success: result.Success,
			Message: result.Message,
		}); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("commit %s not processed", args[0])
		}
		return nil
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Process every due commit once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		scheduler, err := cli.scheduler(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), dto.NewTickResponse(scheduler.ProcessScheduledCommits(ctx)))
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <job-id>",
	Short: "Queue a run-now request for the service's trigger consumer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cli.settings.Events.TriggerQueueURL
		if url == "" {
			return fmt.Errorf("events.trigger_queue_url is not configured")
		}
		client, err := cli.sqsClient()
		if err != nil {
			return err
		}

		consumer := triggerImpl.NewTriggerConsumer(cli.log, nil, sqs.NewSQSPublisher(client, url, cli.log))
		if err := consumer.SendMessage(cmd.Context(), triggerIface.TriggerMessage{JobID: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", args[0])
		return nil
	},
}

var cleanupUser string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete a user's pending commits and cancel their active bulk schedules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cleanupUser) == "" {
			return fmt.Errorf("--user is required")
		}
		ctx := cmd.Context()
		commits, err := cli.commitService(ctx)
		if err != nil {
			return err
		}

		res, err := commits.CleanupPendingCommits(ctx, cleanupUser)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), dto.CleanupPendingResponse{
			DeletedCount:       res.DeletedCount,
			CancelledSchedules: res.CancelledSchedules,
		})
	},
}

type statusOutput struct {
	ConfigEnabled  bool   `json:"config_enabled"`
	ClusterEnabled *bool  `json:"cluster_enabled,omitempty"`
	TickInFlight   *bool  `json:"tick_in_flight,omitempty"`
	Store          string `json:"store"`
	DueCandidates  int    `json:"due_candidates"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the scheduler flag and the due backlog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := statusOutput{
			ConfigEnabled: cli.settings.Scheduler.Enabled,
			Store:         cli.settings.Store.Driver,
		}

		if len(cli.settings.Zookeeper.Servers) > 0 {
			coord, err := cli.coordinator()
			if err != nil {
				return err
			}
			data, err := coord.GetNode(cli.settings.Zookeeper.TogglePath)
			if err == nil {
				if enabled, perr := strconv.ParseBool(strings.TrimSpace(string(data))); perr == nil {
					out.ClusterEnabled = &enabled
				}
			}
		}

		if cli.settings.Redis.Addr != "" {
			c, err := cli.redis()
			if err != nil {
				return err
			}
			_, err = c.Get(ctx, service.DefaultTickLeaseKey)
			switch {
			case err == nil:
				held := true
				out.TickInFlight = &held
			case errors.Is(err, cache.ErrKeyNotFound):
				held := false
				out.TickInFlight = &held
			default:
				return err
			}
		}

		stores, err := cli.openStores(ctx)
		if err != nil {
			return err
		}
		candidates, err := stores.Jobs.ListDueCandidates(ctx, cli.settings.Scheduler.BatchSize)
		if err != nil {
			return err
		}
		out.DueCandidates = len(candidates)
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var schedulerCmd = &cobra.Command{
	Use:       "scheduler <enable|disable>",
	Short:     "Enable or disable the scheduler loop on every instance",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "enable":
			enabled = true
		case "disable":
		default:
			return fmt.Errorf("unknown action %q, want enable or disable", args[0])
		}

		coord, err := cli.coordinator()
		if err != nil {
			return err
		}
		toggle := service.NewClusterToggle(coord, cli.settings.Zookeeper.TogglePath, nil, cli.log)
		if err := toggle.Set(enabled); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scheduler %sd\n", args[0])
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the tables of the configured store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cli.settings.Store.Driver == config.StoreDynamoDB {
			cfg, err := cli.aws()
			if err != nil {
				return err
			}
			client := commonsConfig.ProvideDynamoDBClient(cfg, cli.settings)
			if err := dynamodb.EnsureTables(ctx, client, cli.log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "dynamodb tables ready")
			return nil
		}

		// opening a sql store migrates it
		if _, err := cli.openStores(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s store ready\n", cli.settings.Store.Driver)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupUser, "user", "u", "", "user id whose pending commits are removed")
}
