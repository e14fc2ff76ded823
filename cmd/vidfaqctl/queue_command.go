package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/binyominzeev/vidfaq/internal/config"
	"github.com/binyominzeev/vidfaq/internal/queue"
)

// depthReader reports caption queue backlogs
type depthReader interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

func newQueueCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show caption queue depths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			q, err := queue.New(cfg.Queue)
			if err != nil {
				return err
			}
			defer q.Close()

			return printDepths(cmd, q)
		},
	}
}

func printDepths(cmd *cobra.Command, q depthReader) error {
	pending, err := q.GetQueueDepth()
	if err != nil {
		return fmt.Errorf("read %s depth: %w", queue.CaptionQueueName, err)
	}
	dead, err := q.GetDLQDepth()
	if err != nil {
		return fmt.Errorf("read %s depth: %w", queue.DeadLetterQueueName, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-20s %d\n", queue.CaptionQueueName, pending)
	fmt.Fprintf(out, "%-20s %d\n", queue.DeadLetterQueueName, dead)
	return nil
}
