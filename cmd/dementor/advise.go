package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dementor/internal/cache"
	"dementor/internal/registry"
)

func init() {
	adviseCmd := &cobra.Command{
		Use:   "advise <unit>",
		Short: "Suggest upgrades for a scanned unit's findings",
		Long: `Advise reads a unit's stored scan result and prints one upgrade
recommendation per finding: the minimal version that clears the advisory and
the latest version the ecosystem's registry publishes. The registry lookup is
advisory; a package the registry does not know still gets a recommendation
from the fix version alone.`,
		Args: cobra.ExactArgs(1),
		RunE: runAdvise,
	}

	rootCmd.AddCommand(adviseCmd)
}

func runAdvise(cmd *cobra.Command, args []string) error {
	store, err := cache.NewStore(cache.StoreConfig{
		Type:             viper.GetString("store.type"),
		ConnectionString: viper.GetString("store.connection_string"),
	})
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	result, err := store.LoadUnit(ctx, args[0])
	if err != nil {
		return err
	}
	if len(result.Findings) == 0 {
		fmt.Printf("No findings recorded for %s.\n", result.Unit)
		return nil
	}

	client := registry.NewClient()
	for _, f := range result.Findings {
		fmt.Println(client.Recommend(ctx, f).String())
	}
	return nil
}
