package simpledocs

import (
	"time"

	"github.com/tendant/simple-docs/pkg/simpledocs/objectkey"
)

// Category is the document family of a stored file
type Category = objectkey.Category

const (
	CategoryPDF   = objectkey.PDF
	CategoryExcel = objectkey.Excel
)

// StoredFile is a document as seen through the object store
type StoredFile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Category    Category  `json:"category"`
	UploadedAt  time.Time `json:"uploaded_at"`
	SizeBytes   int64     `json:"size_bytes"`
	SourceLink  string    `json:"source_link,omitempty"`
	AccessURL   string    `json:"access_url"`
}

// UploadRequest carries one upload through validation, embedding and put
type UploadRequest struct {
	Data             []byte
	OriginalName     string
	DeclaredMimeType string
	Category         Category
	Provenance       string
}

// Size returns the upload size in bytes
func (r UploadRequest) Size() int64 {
	return int64(len(r.Data))
}

// ObjectInfo is one entry of a backend listing
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// PutObjectInput contains everything the backend needs to write one object
type PutObjectInput struct {
	Key                string
	Body               []byte
	ContentType        string
	ContentDisposition string
	Metadata           map[string]string
}

// AccessLink is a retrieval URL. Presigned is false when the gateway fell back
// to the public URL shape; such a link is not access controlled.
type AccessLink struct {
	URL       string    `json:"url"`
	Presigned bool      `json:"presigned"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Metadata keys written with every object. S3 lower-cases user metadata keys,
// so they are lower-case here as well.
const (
	MetaSourceLink      = "sourcelink"
	MetaOriginalName    = "originalname"
	MetaUploadTimestamp = "uploadtimestamp"
	MetaFileSize        = "filesize"
)

// Spreadsheet MIME types accepted for the Excel category
const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXLS  = "application/vnd.ms-excel"
	MimeCSV  = "text/csv"
	MimePDF  = "application/pdf"
)

// TimestampLayout is the ISO-8601 layout used for upload timestamps
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
