package objectkey

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies which family of documents a key belongs to
type Category string

const (
	PDF   Category = "pdf"
	Excel Category = "excel"
)

// Fixed storage prefixes per category
const (
	PDFPrefix   = "pdf_files"
	ExcelPrefix = "excel_sheets"
)

var prefixes = map[Category]string{
	PDF:   PDFPrefix,
	Excel: ExcelPrefix,
}

// Categories returns the known categories in listing order
func Categories() []Category {
	return []Category{PDF, Excel}
}

// Prefix returns the storage prefix for a category
func Prefix(c Category) (string, bool) {
	p, ok := prefixes[c]
	return p, ok
}

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates a storage key for an upload made at the given time
	GenerateKey(category Category, originalName string, at time.Time) string
}

// TimestampGenerator produces keys of the form {prefix}/{unix millis}-{sanitized name}
type TimestampGenerator struct{}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{}
}

func (g *TimestampGenerator) GenerateKey(category Category, originalName string, at time.Time) string {
	return Key(category, originalName, at.UnixMilli())
}

// Key builds the storage key from a category, an original file name and a
// millisecond timestamp. It returns "" for an unknown category.
func Key(category Category, originalName string, tsMillis int64) string {
	prefix, ok := Prefix(category)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s/%d-%s", prefix, tsMillis, Sanitize(originalName))
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(category Category, originalName string, at time.Time) string
}

func NewCustomFuncGenerator(fn func(category Category, originalName string, at time.Time) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{
		GenerateFunc: fn,
	}
}

func (g *CustomFuncGenerator) GenerateKey(category Category, originalName string, at time.Time) string {
	return g.GenerateFunc(category, originalName, at)
}

// Sanitize replaces every rune outside [A-Za-z0-9._-] with a single '_'.
// The result is safe as a key segment and as a Content-Disposition filename.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isAllowed(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// HasCategoryPrefix reports whether key lives under one of the known category prefixes
func HasCategoryPrefix(key string) bool {
	_, ok := CategoryOf(key)
	return ok
}

// CategoryOf returns the category whose prefix the key starts with
func CategoryOf(key string) (Category, bool) {
	for _, c := range Categories() {
		if strings.HasPrefix(key, prefixes[c]+"/") {
			return c, true
		}
	}
	return "", false
}

// NewRecommendedGenerator returns the generator used by the gateway by default
func NewRecommendedGenerator() Generator {
	return NewTimestampGenerator()
}
