package simpledocs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-docs/pkg/simpledocs/objectkey"
)

const (
	// DefaultPresignExpiry is used when Presign is called without a positive expiry
	DefaultPresignExpiry = time.Hour

	// DefaultListMaxKeys bounds each per-category listing
	DefaultListMaxKeys int32 = 1000

	// DefaultMaxSizeMB is the default upload limit per category
	DefaultMaxSizeMB = 10
)

// Gateway orchestrates validation, metadata embedding and object store calls
type Gateway struct {
	store         ObjectStore
	presigner     Presigner
	presign       bool
	embedder      *Embedder
	codec         DocumentCodec
	keys          objectkey.Generator
	bucket        string
	publicBaseURL string
	rules         map[Category]Rules
	listMaxKeys   int32
	now           func() time.Time
	logger        *slog.Logger
}

// Option represents a functional option for configuring the gateway
type Option func(*Gateway)

// WithObjectStore sets the backend the gateway writes to
func WithObjectStore(store ObjectStore) Option {
	return func(g *Gateway) {
		g.store = store
	}
}

// WithBucket sets the bucket name used to derive public URLs
func WithBucket(bucket string) Option {
	return func(g *Gateway) {
		g.bucket = bucket
	}
}

// WithPublicBaseURL overrides the https://{bucket}.s3.amazonaws.com URL shape,
// e.g. for S3-compatible endpoints.
func WithPublicBaseURL(base string) Option {
	return func(g *Gateway) {
		g.publicBaseURL = strings.TrimRight(base, "/")
	}
}

// WithDocumentCodec sets the PDF metadata capability
func WithDocumentCodec(codec DocumentCodec) Option {
	return func(g *Gateway) {
		g.codec = codec
	}
}

// WithPresign enables or disables presigned URLs. Presigning is only used
// when enabled and the store implements Presigner.
func WithPresign(enabled bool) Option {
	return func(g *Gateway) {
		g.presign = enabled
	}
}

// WithRules sets the upload rules of one category
func WithRules(category Category, rules Rules) Option {
	return func(g *Gateway) {
		g.rules[category] = rules
	}
}

// WithKeyGenerator replaces the key naming scheme
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(g *Gateway) {
		g.keys = gen
	}
}

// WithListMaxKeys sets the page size of each category listing
func WithListMaxKeys(n int32) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.listMaxKeys = n
		}
	}
}

// WithClock sets the time source used for keys and timestamps
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New creates a gateway with the given options
func New(options ...Option) (*Gateway, error) {
	g := &Gateway{
		presign:     true,
		keys:        objectkey.NewRecommendedGenerator(),
		listMaxKeys: DefaultListMaxKeys,
		now:         time.Now,
		logger:      slog.Default(),
		rules: map[Category]Rules{
			CategoryPDF:   PDFUploadRules(DefaultMaxSizeMB),
			CategoryExcel: ExcelUploadRules(DefaultMaxSizeMB),
		},
	}

	for _, option := range options {
		option(g)
	}

	if g.store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if g.bucket == "" {
		return nil, ErrBucketRequired
	}

	// Capability flag, resolved once.
	if p, ok := g.store.(Presigner); ok && g.presign {
		g.presigner = p
	} else {
		g.presign = false
	}

	g.embedder = NewEmbedder(g.codec, g.now)
	return g, nil
}

// CanPresign reports whether Presign returns signed URLs
func (g *Gateway) CanPresign() bool {
	return g.presign
}

// Bucket returns the configured bucket name
func (g *Gateway) Bucket() string {
	return g.bucket
}

// Rules returns the upload rules of a category
func (g *Gateway) Rules(category Category) Rules {
	return g.rules[category]
}

// Put dispatches an upload by category
func (g *Gateway) Put(ctx context.Context, req UploadRequest) (string, error) {
	switch req.Category {
	case CategoryPDF:
		return g.PutPDF(ctx, req)
	case CategoryExcel:
		return g.PutExcel(ctx, req)
	default:
		return "", &ValidationError{
			Name:   req.OriginalName,
			Reason: ErrUnknownCategory,
			Detail: fmt.Sprintf("category %q", req.Category),
		}
	}
}

// PutPDF validates the PDF, embeds req.Provenance into its metadata and
// writes it. It returns the new key.
func (g *Gateway) PutPDF(ctx context.Context, req UploadRequest) (string, error) {
	req.Category = CategoryPDF
	if err := g.validate(req); err != nil {
		return "", err
	}

	body, err := g.embedder.EmbedProvenance(req.Data, req.OriginalName, req.Provenance)
	if err != nil {
		return "", err
	}

	uploadedAt := g.now()
	key := g.keys.GenerateKey(CategoryPDF, req.OriginalName, uploadedAt)
	meta := map[string]string{
		MetaSourceLink:      url.PathEscape(req.Provenance),
		MetaOriginalName:    url.PathEscape(req.OriginalName),
		MetaUploadTimestamp: uploadedAt.UTC().Format(TimestampLayout),
		MetaFileSize:        strconv.FormatInt(req.Size(), 10),
	}

	if err := g.put(ctx, key, body, MimePDF, req.OriginalName, meta); err != nil {
		return "", err
	}
	return key, nil
}

// PutExcel validates a spreadsheet and writes its bytes unmodified. It returns the new key.
func (g *Gateway) PutExcel(ctx context.Context, req UploadRequest) (string, error) {
	req.Category = CategoryExcel
	if err := g.validate(req); err != nil {
		return "", err
	}

	uploadedAt := g.now()
	key := g.keys.GenerateKey(CategoryExcel, req.OriginalName, uploadedAt)
	meta := map[string]string{
		MetaOriginalName:    url.PathEscape(req.OriginalName),
		MetaUploadTimestamp: uploadedAt.UTC().Format(TimestampLayout),
		MetaFileSize:        strconv.FormatInt(req.Size(), 10),
	}

	if err := g.put(ctx, key, req.Data, normalizeMimeType(req.DeclaredMimeType), req.OriginalName, meta); err != nil {
		return "", err
	}
	return key, nil
}

func (g *Gateway) validate(req UploadRequest) error {
	return Validate(FileInfo{
		Name:     req.OriginalName,
		Size:     req.Size(),
		MimeType: req.DeclaredMimeType,
	}, g.rules[req.Category])
}

func (g *Gateway) put(ctx context.Context, key string, body []byte, contentType, originalName string, meta map[string]string) error {
	err := g.store.Put(ctx, PutObjectInput{
		Key:                key,
		Body:               body,
		ContentType:        contentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", objectkey.Sanitize(originalName)),
		Metadata:           meta,
	})
	if err != nil {
		return newStoreError("put", key, err)
	}

	g.logger.Info("object stored", "key", key, "bytes", len(body), "content_type", contentType)
	return nil
}

// Remove deletes an object. Keys outside the known category prefixes are
// refused without calling the backend.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	if err := guardKey(key); err != nil {
		return err
	}

	if err := g.store.Delete(ctx, key); err != nil {
		return newStoreError("delete", key, err)
	}

	g.logger.Info("object deleted", "key", key)
	return nil
}

// Presign returns a retrieval URL for key. When presigning is unavailable it
// falls back to the public URL and reports Presigned=false.
func (g *Gateway) Presign(ctx context.Context, key string, expires time.Duration) (AccessLink, error) {
	if err := guardKey(key); err != nil {
		return AccessLink{}, err
	}
	if expires <= 0 {
		expires = DefaultPresignExpiry
	}

	if !g.presign {
		return g.publicLink(key), nil
	}

	signed, err := g.presigner.PresignGet(ctx, key, expires)
	if err != nil {
		return AccessLink{}, newStoreError("presign", key, err)
	}
	return AccessLink{
		URL:       signed,
		Presigned: true,
		ExpiresAt: g.now().Add(expires).UTC(),
	}, nil
}

func (g *Gateway) publicLink(key string) AccessLink {
	g.logger.Debug("presign unavailable, returning public url", "key", key)
	return AccessLink{URL: g.AccessURL(key)}
}

// HeadMetadata returns the user metadata stored with key
func (g *Gateway) HeadMetadata(ctx context.Context, key string) (map[string]string, error) {
	if err := guardKey(key); err != nil {
		return nil, err
	}

	meta, err := g.store.Head(ctx, key)
	if err != nil {
		return nil, newStoreError("head", key, err)
	}
	return meta, nil
}

// Describe builds a StoredFile for key from its stored metadata
func (g *Gateway) Describe(ctx context.Context, key string) (*StoredFile, error) {
	meta, err := g.HeadMetadata(ctx, key)
	if err != nil {
		return nil, err
	}
	return g.FileFromMetadata(key, meta), nil
}

// FileFromMetadata decodes a StoredFile from metadata already fetched for key.
// Missing or malformed entries leave the matching field at its default.
func (g *Gateway) FileFromMetadata(key string, meta map[string]string) *StoredFile {
	category, _ := objectkey.CategoryOf(key)
	file := &StoredFile{
		ID:          key,
		DisplayName: path.Base(key),
		Category:    category,
		AccessURL:   g.AccessURL(key),
	}
	if v, ok := meta[MetaOriginalName]; ok {
		if name, err := url.PathUnescape(v); err == nil && name != "" {
			file.DisplayName = name
		}
	}
	if v, ok := meta[MetaSourceLink]; ok {
		if link, err := url.PathUnescape(v); err == nil {
			file.SourceLink = link
		}
	}
	if v, ok := meta[MetaUploadTimestamp]; ok {
		if ts, err := time.Parse(TimestampLayout, v); err == nil {
			file.UploadedAt = ts
		}
	}
	if v, ok := meta[MetaFileSize]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			file.SizeBytes = n
		}
	}
	return file
}

// AccessURL returns the direct, non-presigned URL of key
func (g *Gateway) AccessURL(key string) string {
	base := g.publicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.amazonaws.com", g.bucket)
	}
	return base + "/" + key
}

func guardKey(key string) error {
	if key == "" || !objectkey.HasCategoryPrefix(key) {
		return &InvalidKeyError{Key: key}
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return &InvalidKeyError{Key: key}
		}
	}
	return nil
}
