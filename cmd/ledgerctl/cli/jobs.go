package cli

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/practice-ledger/jobs"
)

func newJobsCommand(factory Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}
	trigger := &cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a supported task with its default payload",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskLedgerIntegrityScan, jobs.TaskIdempotencyCleanup},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, factory, func(deps *Deps) error {
				if deps.Tasks == nil {
					return errors.New("jobs: client not configured")
				}
				task, err := buildTask(args[0])
				if err != nil {
					return err
				}
				info, err := deps.Tasks.EnqueueContext(cmd.Context(), task, asynq.Queue(jobs.QueueDefault))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", args[0], info.ID)
				return nil
			})
		},
	}
	cmd.AddCommand(trigger)
	return cmd
}

func buildTask(name string) (*asynq.Task, error) {
	switch name {
	case jobs.TaskLedgerIntegrityScan:
		return jobs.NewIntegrityScanTask(jobs.IntegrityScanPayload{})
	case jobs.TaskIdempotencyCleanup:
		return jobs.NewIdempotencyCleanupTask(jobs.DefaultCleanupRetention)
	default:
		return nil, fmt.Errorf("jobs: unsupported task %s", name)
	}
}
