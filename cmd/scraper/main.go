// Command scraper runs crex scraping jobs from cron or a shell.
//
// Usage:
//
//	crex-scraper run sync-match-list
//	crex-scraper run scrape-detail --match-id 42
//	crex-scraper dispatch trigger-live
//	crex-scraper dispatches --limit 20
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/riskibarqy/crex-scraper/internal/app"
	"github.com/riskibarqy/crex-scraper/internal/config"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
	"github.com/riskibarqy/crex-scraper/internal/usecase"
)

const closeTimeout = 2 * time.Minute

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "crex-scraper",
		Short:         "crex fixture and live match scraper",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(dispatchCmd())
	root.AddCommand(dispatchesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var matchID int64
	cmd := &cobra.Command{
		Use:       "run <job>",
		Short:     "Run a job in this process and print its result",
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobNameArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseJob(args[0], matchID)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, logger *logging.Logger) error {
				start := time.Now()
				result, err := a.Orchestrator.Run(ctx, usecase.JobUnit{Name: name, MatchID: matchID})
				if err != nil {
					return err
				}
				logger.Info("job finished", "job", name, "duration", time.Since(start).Round(time.Millisecond))
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().Int64Var(&matchID, "match-id", 0, "match id for scrape-detail")
	return cmd
}

func dispatchCmd() *cobra.Command {
	var matchID int64
	cmd := &cobra.Command{
		Use:       "dispatch <job>",
		Short:     "Submit a job to the configured work queue",
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobNameArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := parseJob(args[0], matchID)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, logger *logging.Logger) error {
				handle, err := a.Orchestrator.Dispatch(ctx, name, matchID)
				if err != nil {
					return err
				}
				logger.Info("job dispatched", "job", name, "handle_id", handle.ID())

				result, err := handle.Wait(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().Int64Var(&matchID, "match-id", 0, "match id for scrape-detail")
	return cmd
}

func dispatchesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dispatches",
		Short: "List recent job dispatches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App, _ *logging.Logger) error {
				events, err := a.Orchestrator.RecentDispatches(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, events)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of dispatches to show")
	return cmd
}

func parseJob(value string, matchID int64) (usecase.JobName, error) {
	name, ok := usecase.ParseJobName(value)
	if !ok {
		return "", fmt.Errorf("unknown job %q", value)
	}
	if name == usecase.JobScrapeDetail && matchID <= 0 {
		return "", fmt.Errorf("--match-id is required for %s", name)
	}
	return name, nil
}

func jobNameArgs() []string {
	return []string{
		string(usecase.JobSyncMatchList),
		string(usecase.JobRefreshLive),
		string(usecase.JobScrapeDetail),
		string(usecase.JobTriggerLive),
		string(usecase.JobCleanup),
	}
}

// withApp wires the application, runs fn and drains queued work before exit.
func withApp(parent context.Context, fn func(context.Context, *app.App, *logging.Logger) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel).With("service", cfg.ServiceName, "component", "cli")
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	runErr := fn(ctx, a, logger)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Warn("close app", "error", err)
	}

	return runErr
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
