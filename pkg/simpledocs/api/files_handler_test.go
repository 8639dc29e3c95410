package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-docs/pkg/simpledocs"
	memorystorage "github.com/tendant/simple-docs/pkg/simpledocs/storage/memory"
)

// stubCodec accepts anything starting with %PDF- and serializes the input unchanged
type stubCodec struct{}

type stubDoc struct {
	data   []byte
	fields map[string]string
}

func (stubCodec) Parse(data []byte) (simpledocs.Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("not a PDF")
	}
	return &stubDoc{data: data, fields: map[string]string{}}, nil
}

func (d *stubDoc) SetField(name, value string) error {
	d.fields[name] = value
	return nil
}

func (d *stubDoc) Field(name string) (string, bool) {
	v, ok := d.fields[name]
	return v, ok
}

func (d *stubDoc) Serialize() ([]byte, error) {
	return d.data, nil
}

// failingStore fails every call with an S3-shaped error
type failingStore struct{}

func (failingStore) Put(context.Context, simpledocs.PutObjectInput) error {
	return &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
}

func (failingStore) List(context.Context, string, int32) ([]simpledocs.ObjectInfo, error) {
	return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
}

func (failingStore) Delete(context.Context, string) error {
	return &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
}

func (failingStore) Head(context.Context, string) (map[string]string, error) {
	return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
}

// countingStore counts Head calls on top of the in-memory backend
type countingStore struct {
	*memorystorage.Backend
	heads atomic.Int32
}

func (c *countingStore) Head(ctx context.Context, key string) (map[string]string, error) {
	c.heads.Add(1)
	return c.Backend.Head(ctx, key)
}

type testServer struct {
	router  http.Handler
	store   *memorystorage.Backend
	metrics *Metrics
}

func setupFilesHandlerTest(t *testing.T, opts ...HandlerOption) *testServer {
	t.Helper()
	store := memorystorage.New()
	gw, err := simpledocs.New(
		simpledocs.WithObjectStore(store),
		simpledocs.WithBucket("docs"),
		simpledocs.WithDocumentCodec(stubCodec{}),
		simpledocs.WithClock(func() time.Time { return time.UnixMilli(1700000000000).UTC() }),
	)
	require.NoError(t, err)

	metrics := NewMetrics()
	handler := NewFilesHandler(gw, append([]HandlerOption{WithMetrics(metrics)}, opts...)...)
	return &testServer{
		router:  NewRouter(handler, RouterConfig{Metrics: metrics}),
		store:   store,
		metrics: metrics,
	}
}

func multipartBody(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, path, filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, contentType, data, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	return s.do(t, req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestFilesHandler_UploadPDF_Success(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.upload(t, "/api/v1/files/pdf", "Quarterly Report.pdf", "application/octet-stream",
		[]byte("%PDF-1.4\n%%EOF\n"), map[string]string{"source_link": "https://example.com/a b"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pdf_files/1700000000000-Quarterly_Report.pdf", resp.Key)
	assert.Equal(t, "https://docs.s3.amazonaws.com/"+resp.Key, resp.URL)

	meta, err := s.store.Head(context.Background(), resp.Key)
	require.NoError(t, err)
	assert.Equal(t, url.PathEscape("https://example.com/a b"), meta[simpledocs.MetaSourceLink])

	_, contentType, _, ok := s.store.Object(resp.Key)
	require.True(t, ok)
	assert.Equal(t, simpledocs.MimePDF, contentType)
}

func TestFilesHandler_UploadPDF_WrongExtension(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.upload(t, "/api/v1/files/pdf", "notes.txt", "application/pdf", []byte("%PDF-1.4"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_type", decodeError(t, rec).Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestFilesHandler_UploadPDF_TooLarge(t *testing.T) {
	// 0.0001 MB is about 104 bytes
	s := setupFilesHandlerTest(t, WithDropzoneRules(simpledocs.CategoryPDF, simpledocs.PDFDropzoneRules(0.0001)))

	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 200)...)
	rec := s.upload(t, "/api/v1/files/pdf", "big.pdf", "application/pdf", data, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "size_exceeded", decodeError(t, rec).Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestFilesHandler_UploadPDF_MetadataFailure(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.upload(t, "/api/v1/files/pdf", "broken.pdf", "application/pdf", []byte("not really a pdf"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "metadata_write_failed", decodeError(t, rec).Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestFilesHandler_UploadPDF_MissingFile(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.upload(t, "/api/v1/files/pdf", "", "", nil, map[string]string{"source_link": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_file", decodeError(t, rec).Code)
}

func TestFilesHandler_UploadPDF_NotMultipart(t *testing.T) {
	s := setupFilesHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/pdf", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_form", decodeError(t, rec).Code)
}

func TestFilesHandler_UploadExcel_Success(t *testing.T) {
	s := setupFilesHandlerTest(t)
	payload := []byte("name,qty\nwidget,3\n")

	rec := s.upload(t, "/api/v1/files/excel", "Stock.CSV", "text/csv", payload, map[string]string{"source_link": "ignored"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Key, "excel_sheets/"))

	data, contentType, _, ok := s.store.Object(resp.Key)
	require.True(t, ok)
	assert.Equal(t, payload, data)
	assert.Equal(t, "text/csv", contentType)
}

func TestFilesHandler_UploadExcel_OneColumnCSV(t *testing.T) {
	payload := []byte("alice\nbob\ncarol\n")

	tests := []struct {
		name     string
		declared string
	}{
		{"no content type", ""},
		{"octet-stream", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupFilesHandlerTest(t)

			rec := s.upload(t, "/api/v1/files/excel", "names.csv", tt.declared, payload, nil)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			var resp UploadResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			_, contentType, _, ok := s.store.Object(resp.Key)
			require.True(t, ok)
			assert.Equal(t, simpledocs.MimeCSV, contentType)
		})
	}
}

func TestFilesHandler_UploadExcel_RejectsPDF(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.upload(t, "/api/v1/files/excel", "sheet.xlsx", "application/pdf", []byte("%PDF-1.4"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_type", decodeError(t, rec).Code)
}

func TestFilesHandler_ListFiles(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	require.Equal(t, http.StatusCreated, s.upload(t, "/api/v1/files/excel", "a.csv", "text/csv", []byte("a,b\n1,2\n"), nil).Code)
	require.Equal(t, http.StatusCreated, s.upload(t, "/api/v1/files/pdf", "b.pdf", "application/pdf", []byte("%PDF-1.4"), nil).Code)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var files []simpledocs.StoredFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 2)
	assert.Equal(t, simpledocs.CategoryPDF, files[0].Category)
	assert.Equal(t, simpledocs.CategoryExcel, files[1].Category)
}

func TestFilesHandler_DeleteFile(t *testing.T) {
	s := setupFilesHandlerTest(t)
	rec := s.upload(t, "/api/v1/files/pdf", "a.pdf", "application/pdf", []byte("%PDF-1.4"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	tests := []struct {
		name     string
		key      string
		wantCode int
	}{
		{"missing key", "", http.StatusBadRequest},
		{"foreign prefix", "other/secret.pdf", http.StatusBadRequest},
		{"traversal", "pdf_files/../secret", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/files?key="+url.QueryEscape(tt.key), nil)
			rec := s.do(t, req)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "invalid_key", decodeError(t, rec).Code)
		})
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/files?key="+url.QueryEscape(resp.Key), nil)
	rec = s.do(t, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.store.Len())
}

func TestFilesHandler_GetMetadata(t *testing.T) {
	s := setupFilesHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/metadata?key=pdf_files/missing.pdf", nil)
	rec := s.do(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)

	rec = s.upload(t, "/api/v1/files/pdf", "a.pdf", "application/pdf", []byte("%PDF-1.4"),
		map[string]string{"source_link": "https://example.com/a"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var up UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/files/metadata?key="+url.QueryEscape(up.Key), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MetadataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, up.Key, resp.Key)
	assert.Equal(t, "a.pdf", resp.Metadata[simpledocs.MetaOriginalName])
	require.NotNil(t, resp.File)
	assert.Equal(t, "https://example.com/a", resp.File.SourceLink)
}

func TestFilesHandler_GetMetadata_SingleHead(t *testing.T) {
	store := &countingStore{Backend: memorystorage.New()}
	gw, err := simpledocs.New(
		simpledocs.WithObjectStore(store),
		simpledocs.WithBucket("docs"),
		simpledocs.WithDocumentCodec(stubCodec{}),
	)
	require.NoError(t, err)
	router := NewRouter(NewFilesHandler(gw), RouterConfig{})

	key, err := gw.Put(context.Background(), simpledocs.UploadRequest{
		Data:             []byte("a,b\n1,2\n"),
		OriginalName:     "Totals 2024.csv",
		DeclaredMimeType: simpledocs.MimeCSV,
		Category:         simpledocs.CategoryExcel,
	})
	require.NoError(t, err)
	store.heads.Store(0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/metadata?key="+url.QueryEscape(key), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MetadataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.File)
	assert.Equal(t, "Totals 2024.csv", resp.File.DisplayName)
	assert.Equal(t, simpledocs.CategoryExcel, resp.File.Category)
	assert.Equal(t, int64(8), resp.File.SizeBytes)
	assert.Equal(t, int32(1), store.heads.Load())
}

func TestFilesHandler_Presign(t *testing.T) {
	s := setupFilesHandlerTest(t)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/files/presign?key=pdf_files/1-a.pdf&expires=600", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PresignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Presigned)
	assert.Nil(t, resp.ExpiresAt)
	assert.Equal(t, "https://docs.s3.amazonaws.com/pdf_files/1-a.pdf", resp.URL)

	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{"missing key", "expires=60", "invalid_query"},
		{"expires not a number", "key=pdf_files/1-a.pdf&expires=soon", "invalid_expires"},
		{"expires too long", "key=pdf_files/1-a.pdf&expires=604801", "invalid_query"},
		{"foreign key", "key=secrets/a.pdf", "invalid_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/files/presign?"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestFilesHandler_Presign_ValidationMessages(t *testing.T) {
	s := setupFilesHandlerTest(t)

	tests := []struct {
		name        string
		query       string
		wantMessage string
	}{
		{"key too long", "key=pdf_files/" + strings.Repeat("k", 1015), "Key must be at most 1024"},
		{"expires too long", "key=pdf_files/1-a.pdf&expires=604801", "Expires must be at most 604800"},
		{"expires negative", "key=pdf_files/1-a.pdf&expires=-5", "Expires must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/files/presign?"+tt.query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "invalid_query", body.Code)
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}
}

func TestFilesHandler_StoreFailure(t *testing.T) {
	gw, err := simpledocs.New(
		simpledocs.WithObjectStore(failingStore{}),
		simpledocs.WithBucket("docs"),
		simpledocs.WithDocumentCodec(stubCodec{}),
	)
	require.NoError(t, err)
	router := NewRouter(NewFilesHandler(gw), RouterConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "store_error", detail.Code)
	assert.Contains(t, detail.Message, "AccessDenied")
	assert.NotEmpty(t, detail.RequestID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"size", &simpledocs.ValidationError{Reason: simpledocs.ErrSizeExceeded}, http.StatusRequestEntityTooLarge, "size_exceeded"},
		{"type", &simpledocs.ValidationError{Reason: simpledocs.ErrInvalidType}, http.StatusBadRequest, "invalid_type"},
		{"key", &simpledocs.InvalidKeyError{Key: "x"}, http.StatusBadRequest, "invalid_key"},
		{"metadata", &simpledocs.MetadataWriteError{Op: "parse", Err: errors.New("bad")}, http.StatusUnprocessableEntity, "metadata_write_failed"},
		{"not found", &simpledocs.StoreError{Op: "head", Code: "NotFound"}, http.StatusNotFound, "not_found"},
		{"store", &simpledocs.StoreError{Op: "put", Code: "SlowDown"}, http.StatusBadGateway, "store_error"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
