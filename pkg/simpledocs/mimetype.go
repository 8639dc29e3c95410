package simpledocs

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MimeOctetStream is what clients send when they do not know the type
const MimeOctetStream = "application/octet-stream"

// DetectMimeType resolves the content type of an upload. A declared type wins
// unless it is empty or generic. CSV is taken by extension because a
// one-column CSV sniffs as plain text; everything else is sniffed.
func DetectMimeType(name, declared string, data []byte) string {
	if declared != "" && normalizeMimeType(declared) != MimeOctetStream {
		return declared
	}
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return MimeCSV
	}
	return mimetype.Detect(data).String()
}
