package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithMemoryStorage selects the in-process object store
func WithMemoryStorage(bucket string) Option {
	return func(c *ServerConfig) error {
		c.StorageBackend = StorageMemory
		if bucket != "" {
			c.S3.Bucket = bucket
		}
		return nil
	}
}

// WithS3 selects the S3 backend with the given settings
func WithS3(s3 S3Config) Option {
	return func(c *ServerConfig) error {
		if s3.Bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if s3.Region == "" {
			s3.Region = c.S3.Region
		}
		if s3.SSEAlgorithm == "" {
			s3.SSEAlgorithm = c.S3.SSEAlgorithm
		}
		c.StorageBackend = StorageS3
		c.S3 = s3
		return nil
	}
}

// WithPresign toggles presigned access links
func WithPresign(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.S3.PresignEnabled = enabled
		return nil
	}
}

// WithPublicBaseURL overrides the direct access URL base
func WithPublicBaseURL(base string) Option {
	return func(c *ServerConfig) error {
		c.PublicBaseURL = base
		return nil
	}
}

// WithMaxSizes sets the per-category upload limits in MB
func WithMaxSizes(pdfMB, excelMB float64) Option {
	return func(c *ServerConfig) error {
		if pdfMB < 0 || excelMB < 0 {
			return fmt.Errorf("max sizes cannot be negative")
		}
		c.PDFMaxSizeMB = pdfMB
		c.ExcelMaxSizeMB = excelMB
		return nil
	}
}

// WithListMaxKeys sets the per-category listing page size
func WithListMaxKeys(n int32) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("list max keys must be positive, got: %d", n)
		}
		c.ListMaxKeys = n
		return nil
	}
}
