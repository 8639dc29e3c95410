package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/simple-docs/pkg/simpledocs"
)

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps gateway errors onto HTTP statuses
func (h *FilesHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
	}
	writeErrorBody(w, r, status, code, err.Error())
}

func classify(err error) (int, string) {
	var storeErr *simpledocs.StoreError
	switch {
	case errors.Is(err, simpledocs.ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge, "size_exceeded"
	case errors.Is(err, simpledocs.ErrInvalidType):
		return http.StatusBadRequest, "invalid_type"
	case errors.Is(err, simpledocs.ErrUnknownCategory):
		return http.StatusBadRequest, "unknown_category"
	case errors.Is(err, simpledocs.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_key"
	case errors.Is(err, simpledocs.ErrMetadataWrite):
		return http.StatusUnprocessableEntity, "metadata_write_failed"
	case simpledocs.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &storeErr):
		return http.StatusBadGateway, "store_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	body := ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}}
	render.Status(r, status)
	render.JSON(w, r, body)
}
