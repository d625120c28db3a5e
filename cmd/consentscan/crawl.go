package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/log"
	"github.com/consentscan/consentscan/internal/model"
	"github.com/consentscan/consentscan/internal/queue"
	"github.com/consentscan/consentscan/internal/report"
	"github.com/consentscan/consentscan/internal/supervisor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a supervisor draining the site queue",
		Long: `Crawl runs a supervisor over an initialized data root. The supervisor pops
domains from the shared queue and spawns one worker process per domain,
keeping a bounded number in flight. Each worker gets a hard session
deadline; a worker that overruns it is terminated gracefully, then killed.

Multiple supervisors on machines sharing the data root drain the same
queue concurrently; the file locks are the only coordination they need.

When the queue is empty the supervisor prints a run summary.

Examples:
  # Crawl an initialized run
  consentscan crawl --data-root /data/top-1000

  # Write a markdown run report when done
  consentscan crawl --data-root /data/top-1000 --markdown --output report.md`,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("data-root", "d", config.New().DataRoot,
		"Initialized run data root")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write run summary to specified file path")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
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
	cfg.Verbose = getVerboseFlag(cmd)

	logger := log.New(os.Stderr, cfg.Verbose)

	// A termination signal stops popping new domains and lets in-flight
	// workers run their own termination handlers.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queue.NewQueue(cfg.QueuePath(), cfg.LockTimeout)
	results := queue.NewResults(cfg.ResultsPath(), cfg.LockTimeout)

	if err := supervisor.New(cfg, q, results, logger).Run(ctx); err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	// The summary reads whatever the results file holds, so even an
	// interrupted run reports the sites it finished.
	snapshot, err := results.Snapshot(context.Background())
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	return outputSummary(cmd, model.NewRunSummary(snapshot))
}

// outputSummary writes the run summary in the requested format.
func outputSummary(cmd *cobra.Command, summary *model.RunSummary) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	output := cmd.OutOrStdout()
	if path, err := cmd.Flags().GetString("output"); err != nil {
		return err
	} else if path != "" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case jsonOutput:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case markdownOutput:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(getVerboseFlag(cmd)))
	}

	_, err = writer.Write(summary)
	return err
}
