package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"dementor/internal/cache"
	"dementor/internal/report"
)

func init() {
	reportCmd := &cobra.Command{
		Use:   "report [unit]",
		Short: "Show stored scan history, or re-render a unit's last result",
		Long: `Without arguments, report lists the recent run history from the result
store. With a unit name, it re-renders that unit's stored result in the
requested formats without rescanning.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReport,
	}

	reportCmd.Flags().Int("limit", 10, "How many runs to list")
	reportCmd.Flags().StringP("output", "o", "", "Report formats when re-rendering a unit")
	reportCmd.Flags().String("output-dir", "", "Directory for report files")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	store, err := cache.NewStore(cache.StoreConfig{
		Type:             viper.GetString("store.type"),
		ConnectionString: viper.GetString("store.connection_string"),
	})
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if len(args) == 1 {
		return renderStoredUnit(ctx, cmd.Flags(), store, args[0])
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("load run history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tUNITS\tFINDINGS")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.Started.Format("2006-01-02 15:04:05"),
			r.Finished.Sub(r.Started).Round(time.Second),
			r.Units,
			r.Findings)
	}
	return w.Flush()
}

func renderStoredUnit(ctx context.Context, flags *pflag.FlagSet, store cache.Store, unit string) error {
	result, err := store.LoadUnit(ctx, unit)
	if err != nil {
		return err
	}

	formatFlag, _ := flags.GetString("output")
	if formatFlag == "" {
		formatFlag = viper.GetString("output")
	}
	formats, err := report.ParseFormats(formatFlag)
	if err != nil {
		return err
	}

	dir, _ := flags.GetString("output-dir")
	if dir == "" {
		dir = viper.GetString("output_dir")
	}

	paths, err := report.NewWriter(dir).WriteAll(*result, formats)
	if err != nil {
		return err
	}
	for _, path := range paths {
		fmt.Println(path)
	}
	return nil
}
