package simpledocs

import (
	"context"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-docs/pkg/simpledocs/objectkey"
)

// listingExtensions filters foreign objects out of each category listing
var listingExtensions = map[Category][]string{
	CategoryPDF:   PDFExtensions,
	CategoryExcel: ExcelExtensions,
}

// List returns the stored PDFs followed by the stored spreadsheets. Both
// category listings run concurrently and must succeed; a failure of either
// fails the whole call.
func (g *Gateway) List(ctx context.Context) ([]StoredFile, error) {
	categories := objectkey.Categories()
	results := make([][]StoredFile, len(categories))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, category := range categories {
		eg.Go(func() error {
			files, err := g.listCategory(egCtx, category)
			if err != nil {
				return err
			}
			results[i] = files
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []StoredFile
	for _, files := range results {
		all = append(all, files...)
	}
	return all, nil
}

func (g *Gateway) listCategory(ctx context.Context, category Category) ([]StoredFile, error) {
	prefix, _ := objectkey.Prefix(category)
	listPrefix := prefix + "/"

	objects, err := g.store.List(ctx, listPrefix, g.listMaxKeys)
	if err != nil {
		return nil, newStoreError("list", listPrefix, err)
	}
	if int32(len(objects)) >= g.listMaxKeys {
		g.logger.Warn("listing page is full, results may be truncated",
			"prefix", listPrefix, "max_keys", g.listMaxKeys)
	}

	files := make([]StoredFile, 0, len(objects))
	for _, obj := range objects {
		if !hasExtension(obj.Key, listingExtensions[category]) {
			continue
		}
		files = append(files, g.toStoredFile(category, obj))
	}
	return files, nil
}

func (g *Gateway) toStoredFile(category Category, obj ObjectInfo) StoredFile {
	uploadedAt := obj.LastModified
	if uploadedAt.IsZero() {
		uploadedAt = g.now()
	}
	size := obj.Size
	if size < 0 {
		size = 0
	}
	return StoredFile{
		ID:          obj.Key,
		DisplayName: path.Base(obj.Key),
		Category:    category,
		UploadedAt:  uploadedAt,
		SizeBytes:   size,
		AccessURL:   g.AccessURL(obj.Key),
	}
}

func hasExtension(key string, exts []string) bool {
	lower := strings.ToLower(key)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
