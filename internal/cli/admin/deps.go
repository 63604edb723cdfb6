package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cyberstreams/intelcore/internal/config"
	"github.com/cyberstreams/intelcore/internal/feed"
	"github.com/cyberstreams/intelcore/internal/misp"
	"github.com/cyberstreams/intelcore/internal/openai"
	"github.com/cyberstreams/intelcore/internal/opencti"
	"github.com/cyberstreams/intelcore/internal/pipeline"
	"github.com/cyberstreams/intelcore/internal/repository"
	"github.com/cyberstreams/intelcore/internal/storage"
	"github.com/cyberstreams/intelcore/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// buildVectorAdapter constructs the primary vector store adapter from config.
// The pgvector provider reuses the application pool instead of HTTP.
func buildVectorAdapter(cfg *config.Config, pool *pgxpool.Pool) (vectorstore.Adapter, error) {
	return vectorstore.New(vectorstore.Config{
		Provider:   vectorstore.Provider(cfg.VectorProvider),
		URL:        cfg.VectorURL,
		APIKey:     cfg.VectorAPIKey,
		Collection: cfg.VectorCollection,
		TopK:       cfg.VectorTopK,
		TenantID:   cfg.VectorTenantID,
		SessionID:  cfg.VectorSessionID,
		Namespace:  cfg.VectorNamespace,
		Encryption: encryptionSettings(cfg),
	}, vectorstore.Deps{Pool: pool})
}

func encryptionSettings(cfg *config.Config) *vectorstore.EncryptionSettings {
	if cfg.VectorEncryptionKeyID == "" && cfg.VectorEncryptionMode == "" {
		return nil
	}
	return &vectorstore.EncryptionSettings{
		Enabled: true,
		KeyID:   cfg.VectorEncryptionKeyID,
		Mode:    cfg.VectorEncryptionMode,
	}
}

func buildSecondaryAdapter(cfg *config.Config, pool *pgxpool.Pool) (vectorstore.Adapter, error) {
	if !cfg.HasSecondaryVector() {
		return nil, nil
	}
	return vectorstore.New(vectorstore.Config{
		Provider:   vectorstore.Provider(cfg.SecondaryVectorProvider),
		URL:        cfg.SecondaryVectorURL,
		APIKey:     cfg.SecondaryVectorAPIKey,
		TopK:       cfg.VectorTopK,
		TenantID:   cfg.VectorTenantID,
		SessionID:  cfg.VectorSessionID,
		Namespace:  cfg.VectorNamespace,
		Encryption: encryptionSettings(cfg),
	}, vectorstore.Deps{Pool: pool})
}

// buildIngestor wires every configured destination into one pipeline.
// Unconfigured destinations stay nil and are skipped at run time.
func buildIngestor(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*pipeline.Ingestor, error) {
	adapter, err := buildVectorAdapter(cfg, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store adapter: %w", err)
	}

	ingestCfg := pipeline.IngestorConfig{
		Runs:            repository.NewRunRepository(pool),
		Observables:     repository.NewObservableRepository(pool),
		Sources:         repository.NewSourceRepository(pool),
		Collector:       feed.NewCollector(feed.NewGofeedParser()),
		SeedSources:     feed.DefaultSources(),
		Vector:          adapter,
		VectorNamespace: cfg.VectorNamespace,
	}

	if cfg.HasMisp() {
		ingestCfg.Misp = misp.New(cfg.MispURL, cfg.MispAPIKey, nil)
	}
	if cfg.HasOpenCTI() {
		ingestCfg.OpenCTI = opencti.New(cfg.OpenCTIURL, cfg.OpenCTIToken, nil)
	}
	if cfg.HasOpenAI() {
		ingestCfg.Embedder = openai.NewEmbedder(openai.EmbedderConfig{APIKey: cfg.OpenAIAPIKey})
	}
	if cfg.HasS3() {
		archive, err := storage.NewBundleArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bundle archive: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure archive bucket: %w", err)
		}
		log.Printf("archive bucket '%s' ready", cfg.S3Bucket)
		ingestCfg.Archive = archive
	}

	return pipeline.NewIngestor(ingestCfg), nil
}

// buildSummaryPipeline mirrors the ingestion wiring for the summary path.
func buildSummaryPipeline(cfg *config.Config, pool *pgxpool.Pool) (*pipeline.SummaryPipeline, error) {
	primary, err := buildVectorAdapter(cfg, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store adapter: %w", err)
	}
	secondary, err := buildSecondaryAdapter(cfg, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create secondary vector store adapter: %w", err)
	}

	summaryCfg := pipeline.SummaryPipelineConfig{
		Summarizer:       openai.NewSummarizer(openai.SummarizerConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.SummarizationModel}),
		PrimaryVector:    primary,
		SecondaryVector:  secondary,
		SummaryNamespace: cfg.VectorNamespace,
	}

	if cfg.HasOpenAI() {
		summaryCfg.Embedder = openai.NewEmbedder(openai.EmbedderConfig{APIKey: cfg.OpenAIAPIKey})
	}
	if cfg.HasMisp() {
		summaryCfg.Misp = misp.New(cfg.MispURL, cfg.MispAPIKey, nil)
	}
	if cfg.HasOpenCTI() {
		summaryCfg.OpenCTI = opencti.New(cfg.OpenCTIURL, cfg.OpenCTIToken, nil)
	}

	return pipeline.NewSummaryPipeline(summaryCfg), nil
}
