package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

// ErrorBody is the JSON error envelope every handler returns.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code         string         `json:"code"`
	Message      string         `json:"message"`
	RequestID    string         `json:"request_id,omitempty"`
	Markers      schema.Markers `json:"markers,omitempty"`
	ReferencedBy []string       `json:"referenced_by,omitempty"`
}

// statusFor maps service errors onto HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, studio.ErrValidation):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, studio.ErrInvalidPatch):
		return http.StatusBadRequest, "invalid_patch"
	case errors.Is(err, studio.ErrInvalidAsset):
		return http.StatusBadRequest, "invalid_asset"
	case errors.Is(err, studio.ErrDocumentNotFound):
		return http.StatusNotFound, "document_not_found"
	case errors.Is(err, studio.ErrUnknownDocumentType):
		return http.StatusNotFound, "unknown_document_type"
	case errors.Is(err, studio.ErrAssetNotFound), errors.Is(err, studio.ErrObjectNotFound):
		return http.StatusNotFound, "asset_not_found"
	case errors.Is(err, studio.ErrStorageBackendNotFound):
		return http.StatusNotFound, "storage_backend_not_found"
	case errors.Is(err, studio.ErrPluginDisabled):
		return http.StatusNotFound, "plugin_disabled"
	case errors.Is(err, studio.ErrDocumentExists):
		return http.StatusConflict, "document_exists"
	case errors.Is(err, studio.ErrRevisionConflict):
		return http.StatusConflict, "revision_conflict"
	case errors.Is(err, studio.ErrDocumentReferenced):
		return http.StatusConflict, "document_referenced"
	case errors.Is(err, studio.ErrURLUnsupported):
		return http.StatusNotImplemented, "url_unsupported"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	detail := ErrorDetail{
		Code:      code,
		Message:   err.Error(),
		RequestID: RequestIDFrom(r.Context()),
	}

	var verr *studio.ValidationError
	if errors.As(err, &verr) {
		detail.Markers = verr.Markers
	}
	var rerr *studio.ReferencedError
	if errors.As(err, &rerr) {
		detail.ReferencedBy = rerr.ReferencedBy
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		detail.Message = "An internal server error occurred"
	} else {
		h.logger.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: detail})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	h.logger.DebugContext(r.Context(), "bad request", "method", r.Method, "path", r.URL.Path, "reason", msg)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{
		Code:      "bad_request",
		Message:   msg,
		RequestID: RequestIDFrom(r.Context()),
	}})
}
