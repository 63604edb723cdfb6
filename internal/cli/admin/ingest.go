package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cyberstreams/intelcore/internal/config"
	"github.com/cyberstreams/intelcore/internal/database"
	"github.com/cyberstreams/intelcore/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// IngestCmd returns the one-shot ingestion command. A failed run makes the
// process exit non-zero.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one feed ingestion pass",
		Long:  "Collect enabled feeds, dedup observables, synthesize indicators and fan out to the configured destinations",
		RunE:  runIngest,
	}

	addOutputFlag(cmd.Flags())

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: cfg.SentrySampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := runMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	ingestor, err := buildIngestor(ctx, cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to build ingestion pipeline: %w", err)
	}

	result, err := ingestor.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"run_id":           result.RunID,
			"status":           result.Status,
			"items_processed":  result.Counters.ItemsProcessed,
			"misp_created":     result.Counters.MispCreated,
			"opencti_created":  result.Counters.OpenCTICreated,
			"vector_upserted":  result.Counters.VectorUpserted,
			"bundles_archived": result.Counters.BundlesArchived,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Run %s %s: %d items, %d misp, %d opencti, %d vectors, %d bundles archived\n",
			result.RunID, result.Status,
			result.Counters.ItemsProcessed, result.Counters.MispCreated,
			result.Counters.OpenCTICreated, result.Counters.VectorUpserted,
			result.Counters.BundlesArchived)
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}
