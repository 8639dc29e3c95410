package simpledocs

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

const bytesPerMB = 1_048_576

// Rules describes what an upload may look like. A zero MaxSizeMB disables the
// size check; an empty allow-list disables the matching type check.
type Rules struct {
	MaxSizeMB         float64
	AllowedExtensions []string
	AllowedMimeTypes  []string
}

// FileInfo is the part of a file the validator looks at
type FileInfo struct {
	Name     string
	Size     int64
	MimeType string
}

// Extensions accepted per category
var (
	PDFExtensions   = []string{".pdf"}
	ExcelExtensions = []string{".xlsx", ".xls", ".csv"}
	ExcelMimeTypes  = []string{MimeXLSX, MimeXLS, MimeCSV}
)

// PDFUploadRules returns the upload-level rules for PDFs
func PDFUploadRules(maxSizeMB float64) Rules {
	return Rules{MaxSizeMB: maxSizeMB, AllowedMimeTypes: []string{MimePDF}}
}

// ExcelUploadRules returns the upload-level rules for spreadsheets
func ExcelUploadRules(maxSizeMB float64) Rules {
	return Rules{MaxSizeMB: maxSizeMB, AllowedMimeTypes: ExcelMimeTypes}
}

// PDFDropzoneRules returns the file-picker rules for PDFs
func PDFDropzoneRules(maxSizeMB float64) Rules {
	return Rules{MaxSizeMB: maxSizeMB, AllowedExtensions: PDFExtensions}
}

// ExcelDropzoneRules returns the file-picker rules for spreadsheets
func ExcelDropzoneRules(maxSizeMB float64) Rules {
	return Rules{MaxSizeMB: maxSizeMB, AllowedExtensions: ExcelExtensions}
}

// Validate checks size and type of a file. It has no side effects.
func Validate(file FileInfo, rules Rules) error {
	if rules.MaxSizeMB > 0 {
		limit := int64(rules.MaxSizeMB * bytesPerMB)
		if file.Size > limit {
			return &ValidationError{
				Name:   file.Name,
				Reason: ErrSizeExceeded,
				Detail: fmt.Sprintf("%d bytes exceeds %d bytes (%g MB)", file.Size, limit, rules.MaxSizeMB),
			}
		}
	}

	if len(rules.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(file.Name))
		if !containsFold(rules.AllowedExtensions, ext) {
			return &ValidationError{
				Name:   file.Name,
				Reason: ErrInvalidType,
				Detail: fmt.Sprintf("extension %q not in %v", ext, rules.AllowedExtensions),
			}
		}
	}

	if len(rules.AllowedMimeTypes) > 0 {
		mt := normalizeMimeType(file.MimeType)
		if !containsFold(rules.AllowedMimeTypes, mt) {
			return &ValidationError{
				Name:   file.Name,
				Reason: ErrInvalidType,
				Detail: fmt.Sprintf("mime type %q not in %v", file.MimeType, rules.AllowedMimeTypes),
			}
		}
	}

	return nil
}

func normalizeMimeType(mt string) string {
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		return parsed
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func containsFold(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
