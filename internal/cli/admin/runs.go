package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyberstreams/intelcore/internal/repository"
	"github.com/spf13/cobra"
)

func RunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runRunsList(outputFormat, limit)
		},
	}

	addOutputFlag(cmd.Flags())
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

func runRunsList(outputFormat string, limit int) error {
	ctx := context.Background()

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	runs, err := repository.NewRunRepository(pool).ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(runs))
		for i, run := range runs {
			entry := map[string]interface{}{
				"id":               run.ID,
				"status":           run.Status,
				"started_at":       run.StartedAt,
				"items_processed":  run.ItemsProcessed,
				"misp_created":     run.MispCreated,
				"opencti_created":  run.OpenCTICreated,
				"vector_upserted":  run.VectorUpserted,
				"bundles_archived": run.BundlesArchived,
			}
			if run.FinishedAt != nil {
				entry["finished_at"] = run.FinishedAt
			}
			if run.Error != "" {
				entry["error"] = run.Error
			}
			data[i] = entry
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Printf("%s  %-9s  %s  %s  items=%d misp=%d opencti=%d vectors=%d bundles=%d\n",
			run.ID, run.Status, run.StartedAt.Format(time.RFC3339), duration,
			run.ItemsProcessed, run.MispCreated, run.OpenCTICreated,
			run.VectorUpserted, run.BundlesArchived)
		if run.Error != "" {
			fmt.Printf("  error: %s\n", run.Error)
		}
	}
	return nil
}
