package simpledocs

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Info dictionary field names
const (
	FieldTitle    = "Title"
	FieldAuthor   = "Author"
	FieldSubject  = "Subject"
	FieldKeywords = "Keywords"
	FieldCreator  = "Creator"
	FieldProducer = "Producer"
)

// Fixed descriptive tags written into every PDF. DefaultProducer is a request:
// the writer serializing the document may stamp its own Producer instead.
const (
	DefaultAuthor   = "simple-docs"
	DefaultCreator  = "simple-docs uploader"
	DefaultProducer = "simple-docs"
)

// KeywordSeparator joins the keyword list into the single Keywords field
const KeywordSeparator = ", "

const (
	keywordSourcePrefix = "source:"
	keywordUploadPrefix = "upload:"
)

// Embedder writes provenance metadata into PDF documents
type Embedder struct {
	codec DocumentCodec
	now   func() time.Time
}

// NewEmbedder creates an embedder backed by the given codec
func NewEmbedder(codec DocumentCodec, now func() time.Time) *Embedder {
	if now == nil {
		now = time.Now
	}
	return &Embedder{codec: codec, now: now}
}

// EmbedProvenance parses pdf, sets the descriptive fields and the provenance
// subject and keywords, and returns the re-serialized bytes.
func (e *Embedder) EmbedProvenance(pdf []byte, originalName, sourceLink string) ([]byte, error) {
	if e.codec == nil {
		return nil, &MetadataWriteError{Op: "parse", Err: errors.New("no document codec configured")}
	}

	doc, err := e.codec.Parse(pdf)
	if err != nil {
		return nil, &MetadataWriteError{Op: "parse", Err: err}
	}

	uploadedAt := e.now().UTC().Format(TimestampLayout)
	keywords := []string{keywordUploadPrefix + uploadedAt}
	if sourceLink != "" {
		keywords = append([]string{keywordSourcePrefix + sourceLink}, keywords...)
	}

	fields := [][2]string{
		{FieldTitle, titleFromName(originalName)},
		{FieldAuthor, DefaultAuthor},
		{FieldCreator, DefaultCreator},
		{FieldProducer, DefaultProducer},
		{FieldKeywords, strings.Join(keywords, KeywordSeparator)},
	}
	if sourceLink != "" {
		fields = append(fields, [2]string{FieldSubject, sourceLink})
	}

	for _, f := range fields {
		if err := doc.SetField(f[0], f[1]); err != nil {
			return nil, &MetadataWriteError{Op: "set " + f[0], Err: err}
		}
	}

	out, err := doc.Serialize()
	if err != nil {
		return nil, &MetadataWriteError{Op: "serialize", Err: err}
	}
	return out, nil
}

// SplitKeywords is the inverse of the keyword join used by EmbedProvenance
func SplitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, KeywordSeparator)
}

func titleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
