package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-docs/pkg/simpledocs"
	"github.com/tendant/simple-docs/pkg/simpledocs/pdfmeta"
	memorystorage "github.com/tendant/simple-docs/pkg/simpledocs/storage/memory"
	s3storage "github.com/tendant/simple-docs/pkg/simpledocs/storage/s3"
)

// Supported storage backends
const (
	StorageS3     = "s3"
	StorageMemory = "memory"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv is Load(WithEnv()) followed by any extra options.
func LoadFromEnv(opts ...Option) (*ServerConfig, error) {
	return Load(append([]Option{WithEnv()}, opts...)...)
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		StorageBackend: StorageS3,
		S3: S3Config{
			Region:         "us-east-1",
			PresignEnabled: true,
			SSEAlgorithm:   s3storage.SSEAlgorithmAES256,
		},
		PDFMaxSizeMB:   simpledocs.DefaultMaxSizeMB,
		ExcelMaxSizeMB: simpledocs.DefaultMaxSizeMB,
		ListMaxKeys:    simpledocs.DefaultListMaxKeys,
	}
}

// ServerConfig represents configuration for the document manager
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-default:"development" env-description:"development, production, testing"`

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-description:"comma separated CORS origins"`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"s3" env-description:"s3 or memory"`
	S3             S3Config

	// PublicBaseURL overrides the https://{bucket}.s3.amazonaws.com access URL
	PublicBaseURL string `env:"PUBLIC_BASE_URL" env-description:"base URL for direct object links"`

	PDFMaxSizeMB   float64 `env:"PDF_MAX_SIZE_MB" env-default:"10"`
	ExcelMaxSizeMB float64 `env:"EXCEL_MAX_SIZE_MB" env-default:"10"`
	ListMaxKeys    int32   `env:"LIST_MAX_KEYS" env-default:"1000" env-description:"page size per category listing"`
}

// S3Config holds the object store connection settings
type S3Config struct {
	Bucket                 string `env:"S3_BUCKET" env-description:"bucket holding all documents (required)"`
	Region                 string `env:"S3_REGION" env-default:"us-east-1"`
	AccessKeyID            string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey        string `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint               string `env:"S3_ENDPOINT" env-description:"custom endpoint for S3-compatible services"`
	UsePathStyle           bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PresignEnabled         bool   `env:"S3_PRESIGN_ENABLED" env-default:"true"`
	CreateBucketIfNotExist bool   `env:"S3_CREATE_BUCKET_IF_NOT_EXIST" env-default:"false"`

	EnableSSE    bool   `env:"S3_ENABLE_SSE" env-default:"false" env-description:"server-side encryption for uploads"`
	SSEAlgorithm string `env:"S3_SSE_ALGORITHM" env-default:"AES256" env-description:"AES256 or aws:kms"`
	SSEKMSKeyID  string `env:"S3_SSE_KMS_KEY_ID" env-description:"KMS key for aws:kms; empty uses the bucket default"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.StorageBackend != StorageS3 && c.StorageBackend != StorageMemory {
		return fmt.Errorf("storage_backend must be '%s' or '%s', got: %s", StorageS3, StorageMemory, c.StorageBackend)
	}

	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET: %w", simpledocs.ErrBucketRequired)
	}

	if c.S3.EnableSSE && c.S3.SSEAlgorithm != s3storage.SSEAlgorithmAES256 && c.S3.SSEAlgorithm != s3storage.SSEAlgorithmKMS {
		return fmt.Errorf("sse_algorithm must be '%s' or '%s', got: %s", s3storage.SSEAlgorithmAES256, s3storage.SSEAlgorithmKMS, c.S3.SSEAlgorithm)
	}

	if c.PDFMaxSizeMB < 0 || c.ExcelMaxSizeMB < 0 {
		return errors.New("max upload sizes cannot be negative")
	}

	if c.ListMaxKeys <= 0 {
		return fmt.Errorf("list_max_keys must be positive, got: %d", c.ListMaxKeys)
	}

	return nil
}

// IsProduction reports whether the environment is production
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// BuildGateway creates a Gateway from the server configuration
func (c *ServerConfig) BuildGateway(logger *slog.Logger) (*simpledocs.Gateway, error) {
	store, err := c.buildObjectStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build object store: %w", err)
	}

	options := []simpledocs.Option{
		simpledocs.WithObjectStore(store),
		simpledocs.WithBucket(c.S3.Bucket),
		simpledocs.WithDocumentCodec(pdfmeta.New()),
		simpledocs.WithPresign(c.S3.PresignEnabled),
		simpledocs.WithPublicBaseURL(c.PublicBaseURL),
		simpledocs.WithRules(simpledocs.CategoryPDF, simpledocs.PDFUploadRules(c.PDFMaxSizeMB)),
		simpledocs.WithRules(simpledocs.CategoryExcel, simpledocs.ExcelUploadRules(c.ExcelMaxSizeMB)),
		simpledocs.WithListMaxKeys(c.ListMaxKeys),
	}
	if logger != nil {
		options = append(options, simpledocs.WithLogger(logger))
	}

	return simpledocs.New(options...)
}

// DropzoneRules returns the file-picker rules for a category using the configured limits
func (c *ServerConfig) DropzoneRules(category simpledocs.Category) simpledocs.Rules {
	if category == simpledocs.CategoryExcel {
		return simpledocs.ExcelDropzoneRules(c.ExcelMaxSizeMB)
	}
	return simpledocs.PDFDropzoneRules(c.PDFMaxSizeMB)
}

func (c *ServerConfig) buildObjectStore() (simpledocs.ObjectStore, error) {
	switch c.StorageBackend {
	case StorageMemory:
		return memorystorage.New(), nil
	case StorageS3:
		return s3storage.New(c.s3StorageConfig())
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", c.StorageBackend)
	}
}

func (c *ServerConfig) s3StorageConfig() s3storage.Config {
	return s3storage.Config{
		Region:                 c.S3.Region,
		Bucket:                 c.S3.Bucket,
		AccessKeyID:            c.S3.AccessKeyID,
		SecretAccessKey:        c.S3.SecretAccessKey,
		Endpoint:               c.S3.Endpoint,
		UsePathStyle:           c.S3.UsePathStyle,
		EnableSSE:              c.S3.EnableSSE,
		SSEAlgorithm:           c.S3.SSEAlgorithm,
		SSEKMSKeyID:            c.S3.SSEKMSKeyID,
		CreateBucketIfNotExist: c.S3.CreateBucketIfNotExist,
	}
}
