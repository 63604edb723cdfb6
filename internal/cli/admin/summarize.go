package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cyberstreams/intelcore/internal/config"
	"github.com/cyberstreams/intelcore/internal/pipeline"
	"github.com/spf13/cobra"
)

// SummarizeCmd returns the summarize command. Text is read from the given
// file, or from stdin when no file is passed.
func SummarizeCmd() *cobra.Command {
	var (
		title    string
		language string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize a threat report and federate the result",
		Long:  "Generate an unverified summary with extracted CVEs and push it to the configured MISP, OpenCTI and vector destinations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd, args, title, language, tags)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Report title")
	cmd.Flags().StringVarP(&language, "language", "l", "en", "Summary language (en or da)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags attached to the summary (repeatable)")
	addOutputFlag(cmd.Flags())

	return cmd
}

func runSummarize(cmd *cobra.Command, args []string, title, language string, tags []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")

	var (
		text []byte
		err  error
	)
	if len(args) == 1 {
		text, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
	} else {
		text, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	summarizer, err := buildSummaryPipeline(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to build summary pipeline: %w", err)
	}

	record, err := summarizer.Summarize(ctx, pipeline.SummaryInput{
		Text:     strings.TrimSpace(string(text)),
		Title:    title,
		Language: language,
		Tags:     tags,
	})
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":                record.ID,
			"summary":           record.Summary,
			"confidence":        record.Confidence,
			"cves":              record.CVEs,
			"embeddings_stored": record.EmbeddingsStored,
			"created_at":        record.CreatedAt,
			"tags":              record.Tags,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Println(record.Summary)
	fmt.Printf("confidence=%.2f cves=%s embeddings_stored=%t\n",
		record.Confidence, strings.Join(record.CVEs, ","), record.EmbeddingsStored)
	return nil
}
