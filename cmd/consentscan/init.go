package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/queue"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a crawl run and seed its site queue",
		Long: `Init creates the run's data directory, writes the configuration snapshot,
and seeds the site queue from a newline-separated site list.

The snapshot fixes the run's settings once: every supervisor and worker
that later joins the run reads the same configuration from the data root,
so a run can never drift mid-flight.

Examples:
  # Initialize a compliance run
  consentscan init --sites top-1000.txt --name top-1000

  # Initialize a classification run with a cookie database
  consentscan init --sites top-1000.txt --algorithm classification \
    --cookie-db open-cookie-database.csv --blocklist strictly_necessary

  # Crawl deeper and with more workers
  consentscan init --sites top-1000.txt --depth 2 --workers 8`,
		RunE: runInitCmd,
	}

	addConfigFlags(cmd)
	cmd.Flags().StringP("sites", "s", "",
		"Newline-separated site list to seed the queue from (required)")
	if err := cmd.MarkFlagRequired("sites"); err != nil {
		panic(err)
	}

	return cmd
}

// addConfigFlags registers the run-configuration flags shared by init.
// Defaults come from the config package so flag help and snapshot defaults
// never disagree.
func addConfigFlags(cmd *cobra.Command) {
	defaults := config.New()

	cmd.Flags().StringP("data-root", "d", defaults.DataRoot,
		"Directory holding all run state and artifacts")
	cmd.Flags().StringP("name", "n", "",
		"Run name recorded in the snapshot")
	cmd.Flags().StringP("algorithm", "a", string(defaults.Algorithm),
		"Session algorithm: compliance or classification")
	cmd.Flags().String("cookie-db", "",
		"Cookie classification source (.csv, .json, .db, or .sqlite)")
	cmd.Flags().Int("depth", defaults.Depth,
		"Traversal depth for compliance collection (0 = landing page only)")
	cmd.Flags().Int("fetch-attempts", defaults.FetchAttempts,
		"Retries per page fetch")
	cmd.Flags().StringSlice("blocklist", defaults.Blocklist,
		"Cookie classes stripped during classification replays")
	cmd.Flags().Int("total-actions", defaults.TotalActions,
		"Classification action budget per site")
	cmd.Flags().Int("clickstream-length", defaults.ClickstreamLength,
		"Actions per clickstream")
	cmd.Flags().IntP("workers", "w", defaults.Workers,
		"Concurrent worker processes per supervisor")
	cmd.Flags().Duration("load-timeout", defaults.LoadTimeout,
		"Page-load timeout for the first fetch attempt")
	cmd.Flags().Duration("session-timeout", defaults.SessionTimeout,
		"Hard per-site deadline before the supervisor escalates")
	cmd.Flags().Duration("termination-grace", defaults.TerminationGrace,
		"Grace period between SIGTERM and SIGKILL")
	cmd.Flags().Duration("lock-timeout", defaults.LockTimeout,
		"Queue/results lock acquisition timeout")
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()

	var err error

	cfg.DataRoot, err = cmd.Flags().GetString("data-root")
	if err != nil {
		return nil, err
	}

	cfg.Name, err = cmd.Flags().GetString("name")
	if err != nil {
		return nil, err
	}

	algorithm, err := cmd.Flags().GetString("algorithm")
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = config.Algorithm(algorithm)

	cfg.CookieDBPath, err = cmd.Flags().GetString("cookie-db")
	if err != nil {
		return nil, err
	}

	cfg.Depth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.FetchAttempts, err = cmd.Flags().GetInt("fetch-attempts")
	if err != nil {
		return nil, err
	}

	cfg.Blocklist, err = cmd.Flags().GetStringSlice("blocklist")
	if err != nil {
		return nil, err
	}

	cfg.TotalActions, err = cmd.Flags().GetInt("total-actions")
	if err != nil {
		return nil, err
	}

	cfg.ClickstreamLength, err = cmd.Flags().GetInt("clickstream-length")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.LoadTimeout, err = cmd.Flags().GetDuration("load-timeout")
	if err != nil {
		return nil, err
	}

	cfg.SessionTimeout, err = cmd.Flags().GetDuration("session-timeout")
	if err != nil {
		return nil, err
	}

	cfg.TerminationGrace, err = cmd.Flags().GetDuration("termination-grace")
	if err != nil {
		return nil, err
	}

	cfg.LockTimeout, err = cmd.Flags().GetDuration("lock-timeout")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	cfg.SiteListPath, err = cmd.Flags().GetString("sites")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	sites, err := config.LoadSiteList(cfg.SiteListPath)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		return fmt.Errorf("site list %s contains no sites", cfg.SiteListPath)
	}

	// WriteSnapshot creates the data root.
	if err := cfg.WriteSnapshot(); err != nil {
		return err
	}

	q := queue.NewQueue(cfg.QueuePath(), cfg.LockTimeout)
	if err := q.Seed(cmd.Context(), sites); err != nil {
		return fmt.Errorf("seed queue: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized run in %s\n", cfg.DataRoot)
	fmt.Fprintf(cmd.OutOrStdout(), "  algorithm: %s\n", cfg.Algorithm)
	fmt.Fprintf(cmd.OutOrStdout(), "  sites:     %d queued\n", len(sites))
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'consentscan crawl --data-root %s' to start crawling.\n", cfg.DataRoot)

	return nil
}
