package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cyberstreams/intelcore/internal/feed"
	"github.com/cyberstreams/intelcore/internal/repository"
	"github.com/spf13/cobra"
)

func SourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage feed sources",
		Long:  "Seed, list and toggle the authorized feed sources",
	}

	cmd.AddCommand(SourcesSeedCmd())
	cmd.AddCommand(SourcesListCmd())
	cmd.AddCommand(SourcesEnableCmd())
	cmd.AddCommand(SourcesDisableCmd())

	return cmd
}

func SourcesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Upsert the default European CERT sources",
		Long:  "Insert or refresh the built-in source list. Enabled flags of existing sources are preserved",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			// All or nothing: a half-seeded source list is worse than none.
			err = repository.NewTxRunner(pool).WithTx(ctx, func(repos repository.TxRepositories) error {
				for _, src := range feed.DefaultSources() {
					if err := repos.Sources().Upsert(ctx, src); err != nil {
						return fmt.Errorf("failed to upsert source %s: %w", src.ID, err)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Printf("Seeded %d sources\n", len(feed.DefaultSources()))
			return nil
		},
	}
}

func SourcesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all feed sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			pool, err := getDBPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			sources, err := repository.NewSourceRepository(pool).List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sources: %w", err)
			}

			if outputFormat == "json" {
				data := make([]map[string]interface{}, len(sources))
				for i, src := range sources {
					data[i] = map[string]interface{}{
						"id":       src.ID,
						"name":     src.Name,
						"feed_url": src.FeedURL,
						"enabled":  src.Enabled,
					}
				}
				jsonBytes, _ := json.MarshalIndent(data, "", "  ")
				fmt.Println(string(jsonBytes))
				return nil
			}

			for _, src := range sources {
				state := "enabled"
				if !src.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-16s %-40s %s\n", src.ID, src.Name, state)
			}
			return nil
		},
	}

	addOutputFlag(cmd.Flags())

	return cmd
}

func SourcesEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a feed source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setSourceEnabled(args[0], true)
		},
	}
}

func SourcesDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a feed source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setSourceEnabled(args[0], false)
		},
	}
}

func setSourceEnabled(id string, enabled bool) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewSourceRepository(pool).SetEnabled(ctx, id, enabled); err != nil {
		return fmt.Errorf("failed to update source %s: %w", id, err)
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("Source %s %s\n", id, state)
	return nil
}
