package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/queue"
)

// NewInjectCmd creates the inject command.
func NewInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject <domain>...",
		Short: "Push domains to the front of a live run's queue",
		Long: `Inject inserts domains at the front of an initialized run's queue, so the
next free worker picks them up before the remaining backlog. Useful for
re-crawling sites that failed, or prioritizing sites mid-run without
restarting the supervisors.

Examples:
  # Re-crawl two sites next
  consentscan inject --data-root /data/top-1000 example.com example.org`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInjectCmd,
	}

	cmd.Flags().StringP("data-root", "d", config.New().DataRoot,
		"Initialized run data root")

	return cmd
}

// runInjectCmd executes the inject command.
func runInjectCmd(cmd *cobra.Command, args []string) error {
	dataRoot, err := cmd.Flags().GetString("data-root")
	if err != nil {
		return err
	}

	cfg, err := config.LoadSnapshot(dataRoot)
	if err != nil {
		if errors.Is(err, config.ErrSnapshotNotFound) {
			return fmt.Errorf("%s is not an initialized run (run 'consentscan init' first)", dataRoot)
		}
		return err
	}

	q := queue.NewQueue(cfg.QueuePath(), cfg.LockTimeout)
	if err := q.Inject(cmd.Context(), args...); err != nil {
		return fmt.Errorf("inject domains: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Injected %d domain(s) at the front of the queue: %s\n",
		len(args), strings.Join(args, ", "))
	return nil
}
