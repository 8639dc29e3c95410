package config

import (
	"fmt"
	"io"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//	CORS_ALLOWED_ORIGINS - Comma separated origins (default: any)
//
// Storage:
//
//	STORAGE_BACKEND - "s3" (default) or "memory"
//	S3_BUCKET - Bucket name, required
//	S3_REGION, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY, S3_ENDPOINT
//	S3_USE_PATH_STYLE, S3_PRESIGN_ENABLED, S3_CREATE_BUCKET_IF_NOT_EXIST
//	S3_ENABLE_SSE - Server-side encryption on upload (default: false)
//	S3_SSE_ALGORITHM - "AES256" (default) or "aws:kms"
//	S3_SSE_KMS_KEY_ID - KMS key for aws:kms
//	PUBLIC_BASE_URL - Base for direct object links
//
// Limits:
//
//	PDF_MAX_SIZE_MB, EXCEL_MAX_SIZE_MB - Upload limits (default: 10)
//	LIST_MAX_KEYS - Listing page size per category (default: 1000)
//
// Options applied after WithEnv take precedence over the environment.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// Usage writes the environment variable reference to w
func Usage(w io.Writer) error {
	var cfg ServerConfig
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
