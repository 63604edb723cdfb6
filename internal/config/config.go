package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Ingest scheduling. Zero disables the periodic scheduler; runs can
	// still be triggered via the ingest command.
	IngestInterval time.Duration `envconfig:"INGEST_INTERVAL" default:"0"`

	// Vector store for indicator documents and intel retrieval.
	VectorProvider   string `envconfig:"VECTOR_PROVIDER" default:"pgvector"`
	VectorURL        string `envconfig:"VECTOR_URL"`
	VectorAPIKey     string `envconfig:"VECTOR_API_KEY"`
	VectorCollection string `envconfig:"VECTOR_COLLECTION"`
	VectorNamespace  string `envconfig:"VECTOR_NAMESPACE" default:"intel-articles"`
	VectorTopK       int    `envconfig:"VECTOR_TOP_K" default:"10"`
	VectorTenantID   string `envconfig:"VECTOR_TENANT_ID" default:"intelcore"`
	VectorSessionID  string `envconfig:"VECTOR_SESSION_ID"`

	// Server-side encryption hints forwarded to backends that honor them.
	VectorEncryptionKeyID string `envconfig:"VECTOR_ENCRYPTION_KEY_ID"`
	VectorEncryptionMode  string `envconfig:"VECTOR_ENCRYPTION_MODE"`

	// Secondary vector store mirrored by the summary pipeline.
	SecondaryVectorProvider string `envconfig:"SECONDARY_VECTOR_PROVIDER"`
	SecondaryVectorURL      string `envconfig:"SECONDARY_VECTOR_URL"`
	SecondaryVectorAPIKey   string `envconfig:"SECONDARY_VECTOR_API_KEY"`

	MispURL    string `envconfig:"MISP_URL"`
	MispAPIKey string `envconfig:"MISP_API_KEY"`

	OpenCTIURL   string `envconfig:"OPENCTI_URL"`
	OpenCTIToken string `envconfig:"OPENCTI_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"intelcore-bundles"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	SummarizationModel string `envconfig:"SUMMARIZATION_MODEL"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT"`
	SentrySampleRate  float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("INTELCORE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasMisp() bool {
	return c.MispURL != "" && c.MispAPIKey != ""
}

func (c *Config) HasOpenCTI() bool {
	return c.OpenCTIURL != "" && c.OpenCTIToken != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSecondaryVector() bool {
	return c.SecondaryVectorProvider != "" && c.SecondaryVectorURL != ""
}
