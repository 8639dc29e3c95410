package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-docs/pkg/simpledocs"
)

const (
	// multipartOverhead is allowed on top of the file limit for boundaries and form fields
	multipartOverhead = 1 << 20

	// maxMemory is passed to ParseMultipartForm; larger parts spill to disk
	maxMemory = 32 << 20
)

// Documents is the gateway surface the handler needs
type Documents interface {
	Put(ctx context.Context, req simpledocs.UploadRequest) (string, error)
	List(ctx context.Context) ([]simpledocs.StoredFile, error)
	Remove(ctx context.Context, key string) error
	Presign(ctx context.Context, key string, expires time.Duration) (simpledocs.AccessLink, error)
	HeadMetadata(ctx context.Context, key string) (map[string]string, error)
	FileFromMetadata(key string, meta map[string]string) *simpledocs.StoredFile
	AccessURL(key string) string
}

// FilesHandler serves the document manager endpoints used by the browser UI
type FilesHandler struct {
	docs     Documents
	dropzone map[simpledocs.Category]simpledocs.Rules
	validate *validator.Validate
	metrics  *Metrics
	logger   *slog.Logger
}

// HandlerOption configures a FilesHandler
type HandlerOption func(*FilesHandler)

// WithDropzoneRules sets the file-picker rules checked before an upload is read
func WithDropzoneRules(category simpledocs.Category, rules simpledocs.Rules) HandlerOption {
	return func(h *FilesHandler) {
		h.dropzone[category] = rules
	}
}

// WithMetrics records upload outcomes
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *FilesHandler) {
		h.metrics = m
	}
}

// WithHandlerLogger sets the handler logger
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *FilesHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewFilesHandler(docs Documents, opts ...HandlerOption) *FilesHandler {
	h := &FilesHandler{
		docs: docs,
		dropzone: map[simpledocs.Category]simpledocs.Rules{
			simpledocs.CategoryPDF:   simpledocs.PDFDropzoneRules(simpledocs.DefaultMaxSizeMB),
			simpledocs.CategoryExcel: simpledocs.ExcelDropzoneRules(simpledocs.DefaultMaxSizeMB),
		},
		validate: validator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for files endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListFiles)
	r.Delete("/", h.DeleteFile)
	r.Post("/pdf", h.UploadPDF)
	r.Post("/excel", h.UploadExcel)
	r.Get("/metadata", h.GetMetadata)
	r.Get("/presign", h.Presign)
	return r
}

// UploadForm holds the non-file fields of an upload
type UploadForm struct {
	SourceLink string `validate:"max=2048"`
}

// KeyQuery identifies one stored object
type KeyQuery struct {
	Key string `validate:"required,max=1024"`
}

// PresignQuery is the query of a presign request
type PresignQuery struct {
	Key     string `validate:"required,max=1024"`
	Expires int    `validate:"omitempty,min=1,max=604800"` // SigV4 caps links at seven days
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// PresignResponse describes an access link; presigned is false when the public URL fallback was used
type PresignResponse struct {
	URL       string     `json:"url"`
	Presigned bool       `json:"presigned"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MetadataResponse carries raw object metadata and its decoded view
type MetadataResponse struct {
	Key      string                 `json:"key"`
	Metadata map[string]string      `json:"metadata"`
	File     *simpledocs.StoredFile `json:"file,omitempty"`
}

// UploadPDF stores a PDF with its provenance embedded
func (h *FilesHandler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, simpledocs.CategoryPDF)
}

// UploadExcel stores a spreadsheet as-is
func (h *FilesHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, simpledocs.CategoryExcel)
}

func (h *FilesHandler) upload(w http.ResponseWriter, r *http.Request, category simpledocs.Category) {
	rules := h.dropzone[category]
	if rules.MaxSizeMB > 0 {
		limit := int64(rules.MaxSizeMB*(1<<20)) + multipartOverhead
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.observeUpload(category, "rejected")
			writeErrorBody(w, r, http.StatusRequestEntityTooLarge, "size_exceeded", "upload exceeds the size limit")
			return
		}
		h.logger.Warn("Failed to parse upload form", "error", err)
		writeErrorBody(w, r, http.StatusBadRequest, "invalid_form", "expected a multipart form with a file field")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorBody(w, r, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer file.Close()

	form := UploadForm{SourceLink: r.FormValue("source_link")}
	if err := h.validate.Struct(form); err != nil {
		writeErrorBody(w, r, http.StatusBadRequest, "invalid_source_link", "source_link is too long")
		return
	}

	declared := header.Header.Get("Content-Type")
	if err := simpledocs.Validate(simpledocs.FileInfo{
		Name:     header.Filename,
		Size:     header.Size,
		MimeType: declared,
	}, rules); err != nil {
		h.observeUpload(category, "rejected")
		h.writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read upload", "error", err)
		writeErrorBody(w, r, http.StatusBadRequest, "invalid_form", "failed to read file")
		return
	}

	key, err := h.docs.Put(r.Context(), simpledocs.UploadRequest{
		Data:             data,
		OriginalName:     header.Filename,
		DeclaredMimeType: simpledocs.DetectMimeType(header.Filename, declared, data),
		Category:         category,
		Provenance:       form.SourceLink,
	})
	if err != nil {
		h.observeUpload(category, "failed")
		h.writeError(w, r, err)
		return
	}

	h.observeUpload(category, "stored")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{Key: key, URL: h.docs.AccessURL(key)})
}

// ListFiles returns every stored document, PDFs first
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.docs.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if files == nil {
		files = []simpledocs.StoredFile{}
	}
	render.JSON(w, r, files)
}

// DeleteFile removes one document by key
func (h *FilesHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	q := KeyQuery{Key: r.URL.Query().Get("key")}
	if err := h.validate.Struct(q); err != nil {
		writeErrorBody(w, r, http.StatusBadRequest, "invalid_key", "key query parameter is required")
		return
	}

	if err := h.docs.Remove(r.Context(), q.Key); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMetadata returns the stored metadata of one document
func (h *FilesHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	q := KeyQuery{Key: r.URL.Query().Get("key")}
	if err := h.validate.Struct(q); err != nil {
		writeErrorBody(w, r, http.StatusBadRequest, "invalid_key", "key query parameter is required")
		return
	}

	meta, err := h.docs.HeadMetadata(r.Context(), q.Key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, MetadataResponse{
		Key:      q.Key,
		Metadata: meta,
		File:     h.docs.FileFromMetadata(q.Key, meta),
	})
}

// Presign returns a time-limited download link, or the public URL when presigning is unavailable
func (h *FilesHandler) Presign(w http.ResponseWriter, r *http.Request) {
	q := PresignQuery{Key: r.URL.Query().Get("key")}
	if raw := r.URL.Query().Get("expires"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorBody(w, r, http.StatusBadRequest, "invalid_expires", "expires must be a number of seconds")
			return
		}
		q.Expires = n
	}
	if err := h.validate.Struct(q); err != nil {
		writeErrorBody(w, r, http.StatusBadRequest, "invalid_query", validationMessage(err))
		return
	}

	link, err := h.docs.Presign(r.Context(), q.Key, time.Duration(q.Expires)*time.Second)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := PresignResponse{URL: link.URL, Presigned: link.Presigned}
	if link.Presigned {
		expiresAt := link.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	render.JSON(w, r, resp)
}

func (h *FilesHandler) observeUpload(category simpledocs.Category, outcome string) {
	h.metrics.ObserveUpload(string(category), outcome)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
