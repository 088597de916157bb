package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dementor/internal/cache"
	"dementor/internal/config"
	"dementor/internal/extract"
	"dementor/internal/fetch"
	"dementor/internal/match"
	"dementor/internal/model"
	"dementor/internal/notify"
	"dementor/internal/pipeline"
	"dementor/internal/report"
)

func init() {
	scanCmd := &cobra.Command{
		Use:   "scan [path|owner/repo|url]...",
		Short: "Scan source trees or repositories for vulnerable dependencies",
		Long: `Scan walks each given path (or clones each given repository) for
dependency manifests, extracts a canonical dependency set per scan unit and
matches every resolved dependency against the OSV database. Reports are
written to the output directory, one file per unit and format.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}

	scanCmd.Flags().Int("workers", 0, "Concurrent matching workers (default from config)")
	scanCmd.Flags().Duration("timeout", 0, "Matching timeout per scan unit")
	scanCmd.Flags().Int("retries", 0, "Advisory lookup attempts per dependency")
	scanCmd.Flags().StringP("output", "o", "", "Report formats: json,csv,txt,html,xml or all")
	scanCmd.Flags().String("output-dir", "", "Directory for report files")
	scanCmd.Flags().Bool("fetch-only", false, "Clone or update repositories, then stop")
	scanCmd.Flags().Bool("parse-only", false, "Extract dependencies, skip vulnerability matching")
	scanCmd.Flags().Bool("scan-only", false, "Match from stored dependencies, skip extraction")
	scanCmd.Flags().Bool("prune", false, "After fetching, keep only manifest files in each checkout")
	scanCmd.Flags().Bool("fail-critical", false, "Exit non-zero when critical findings exist")

	viper.BindPFlag("workers", scanCmd.Flags().Lookup("workers"))
	viper.BindPFlag("unit_timeout", scanCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("retries", scanCmd.Flags().Lookup("retries"))
	viper.BindPFlag("output", scanCmd.Flags().Lookup("output"))
	viper.BindPFlag("output_dir", scanCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("fetch_only", scanCmd.Flags().Lookup("fetch-only"))
	viper.BindPFlag("parse_only", scanCmd.Flags().Lookup("parse-only"))
	viper.BindPFlag("scan_only", scanCmd.Flags().Lookup("scan-only"))
	viper.BindPFlag("prune", scanCmd.Flags().Lookup("prune"))
	viper.BindPFlag("fail_critical", scanCmd.Flags().Lookup("fail-critical"))

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := config.Snapshot()
	if settings.ParseOnly && settings.ScanOnly {
		return fmt.Errorf("--parse-only and --scan-only are mutually exclusive")
	}

	roots, err := resolveRoots(ctx, settings, args)
	if err != nil {
		return err
	}
	if settings.FetchOnly {
		for _, r := range roots {
			fmt.Println(r)
		}
		return nil
	}

	formats, err := report.ParseFormats(settings.Output)
	if err != nil {
		return err
	}

	store, err := cache.NewStore(cache.StoreConfig{
		Type:             settings.Store.Type,
		ConnectionString: settings.Store.ConnectionString,
	})
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	source := match.NewOSVSource()
	if settings.OSVURL != "" {
		source.APIURL = settings.OSVURL
	}
	matcher := match.NewMatcher(source)
	matcher.Retry = match.RetryPolicy{
		Attempts: settings.Retries,
		Backoff:  settings.RetryBackoff,
	}

	p := pipeline.New(extract.NewCoordinator(), matcher, pipeline.Options{
		Workers:     settings.Workers,
		UnitTimeout: settings.UnitTimeout,
		ParseOnly:   settings.ParseOnly,
		ScanOnly:    settings.ScanOnly,
	})
	p.Store = store

	run, runErr := p.Run(ctx, roots)
	if run == nil {
		return runErr
	}

	if err := store.SaveRun(ctx, *run); err != nil {
		slog.Error("failed to record run history", "error", err)
	}

	if !settings.ParseOnly {
		writer := report.NewWriter(settings.OutputDir)
		for _, unit := range run.Units {
			if unit.Status == model.StatusFailed {
				continue
			}
			paths, err := writer.WriteAll(unit, formats)
			if err != nil {
				return fmt.Errorf("write reports for %s: %w", unit.Unit, err)
			}
			for _, path := range paths {
				fmt.Println(path)
			}
		}
		notifyRun(ctx, settings, *run)
	}

	fmt.Fprintln(os.Stderr, notify.Summarize(*run))

	if runErr != nil {
		return runErr
	}
	if run.Failed() {
		exit(1)
	}
	if settings.FailCritical && hasCritical(*run) {
		fmt.Fprintln(os.Stderr, "Critical findings present, failing the run.")
		exit(2)
	}
	return nil
}

// resolveRoots turns each argument into a local scan root, cloning remote
// repositories into the work directory first. In scan-only mode the args are
// stored unit names (or the root paths of the original run), looked up in the
// result store, so they pass through untouched.
func resolveRoots(ctx context.Context, settings config.Settings, args []string) ([]string, error) {
	if settings.ScanOnly {
		return args, nil
	}

	fetcher := fetch.NewFetcher(settings.WorkDir)

	var roots []string
	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			roots = append(roots, arg)
			continue
		}
		src, err := fetch.ParseSource(arg, settings.GitHubToken)
		if err != nil {
			return nil, fmt.Errorf("%q is neither a directory nor a repository: %w", arg, err)
		}
		dir, err := fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		if settings.Prune {
			if err := fetch.Prune(dir); err != nil {
				return nil, err
			}
		}
		roots = append(roots, dir)
	}
	return roots, nil
}

func notifyRun(ctx context.Context, settings config.Settings, run model.RunResult) {
	if !settings.Slack.Enabled {
		return
	}
	notifier, err := notify.NewSlackNotifier(settings.Slack.Token, settings.Slack.Channel)
	if err != nil {
		slog.Error("slack notifier not configured", "error", err)
		return
	}
	if err := notifier.NotifyRun(ctx, run); err != nil {
		slog.Error("slack notification failed", "error", err)
	}
}

func hasCritical(run model.RunResult) bool {
	for _, u := range run.Units {
		for _, f := range u.Findings {
			if f.Severity == model.SeverityCritical {
				return true
			}
		}
	}
	return false
}
