package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/consentscan/consentscan/internal/banner"
	"github.com/consentscan/consentscan/internal/config"
	"github.com/consentscan/consentscan/internal/cookiedb"
	"github.com/consentscan/consentscan/internal/driver"
	"github.com/consentscan/consentscan/internal/log"
	"github.com/consentscan/consentscan/internal/queue"
	"github.com/consentscan/consentscan/internal/session"
)

// NewWorkerCmd creates the worker command.
// Hidden: supervisors spawn it as a re-exec of the binary, one process per
// domain, so a crashed or killed browser can never take a run down with it.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Crawl a single domain (spawned by a supervisor)",
		Hidden: true,
		RunE:   runWorkerCmd,
	}

	cmd.Flags().String("domain", "", "Domain to crawl (required)")
	cmd.Flags().String("data-root", "", "Initialized run data root (required)")
	for _, flag := range []string{"domain", "data-root"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}

	return cmd
}

// runWorkerCmd executes one crawl session and merges its result.
//
// The supervisor's graceful-termination signal cancels the session context;
// the session returns its partial result promptly and the worker flushes it
// with the terminated flag set. Only the flush itself runs on a fresh
// context, because the result of a terminated session is still a result.
func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return err
	}
	dataRoot, err := cmd.Flags().GetString("data-root")
	if err != nil {
		return err
	}

	cfg, err := config.LoadSnapshot(dataRoot)
	if err != nil {
		return err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	logger := log.New(os.Stderr, cfg.Verbose).With("domain", domain)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cookiedb.Load(ctx, cfg.CookieDBPath)
	if err != nil {
		return fmt.Errorf("load cookie database: %w", err)
	}

	sess := session.New(cfg, driver.NewChrome, banner.NewWordlist(logger), store, logger)
	result := sess.Run(ctx, domain)
	if ctx.Err() != nil {
		result.Terminated = true
		logger.Warn("session terminated by signal, flushing partial result")
	}

	mergeCtx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout)
	defer cancel()

	results := queue.NewResults(cfg.ResultsPath(), cfg.LockTimeout)
	if err := results.Merge(mergeCtx, result); err != nil {
		return fmt.Errorf("merge result for %s: %w", domain, err)
	}
	return nil
}
