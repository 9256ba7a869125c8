package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

// ListDocumentsResponse is the body of GET /documents/{type}.
type ListDocumentsResponse struct {
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	Documents []*studio.Document `json:"documents"`
}

// PatchRequest is the body of PATCH /documents/{type}/{id}.
type PatchRequest struct {
	Set          map[string]any `json:"set,omitempty"`
	Unset        []string       `json:"unset,omitempty"`
	IfRevisionID string         `json:"ifRevisionID,omitempty"`
}

// SlugRequest is the body of POST /documents/{type}/slug.
type SlugRequest struct {
	Field      string         `json:"field"`
	Document   map[string]any `json:"document"`
	DocumentID string         `json:"documentId,omitempty"`
}

// SlugResponse carries a generated slug value.
type SlugResponse struct {
	Type    string `json:"_type"`
	Current string `json:"current"`
}

// ValidateResponse is the body of POST /documents/{type}/validate.
type ValidateResponse struct {
	Valid   bool           `json:"valid"`
	Markers schema.Markers `json:"markers"`
}

// decodeDocument reads a flat document body and checks that any _type in it
// matches the route.
func (h *Handler) decodeDocument(r *http.Request, docType string) (map[string]any, studio.SystemKeys, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, studio.SystemKeys{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	fields, sys, err := studio.SplitSystemKeys(raw)
	if err != nil {
		return nil, studio.SystemKeys{}, err
	}
	if sys.Type != "" && sys.Type != docType {
		return nil, studio.SystemKeys{}, fmt.Errorf("body _type %q does not match %q", sys.Type, docType)
	}
	return fields, sys, nil
}

// ifRevision prefers the If-Match header over a revision in the body.
func ifRevision(r *http.Request, fromBody string) string {
	if v := strings.Trim(r.Header.Get("If-Match"), `"`); v != "" {
		return v
	}
	return fromBody
}

// CreateDocument creates a document of the routed type.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	docType := chi.URLParam(r, "type")
	fields, sys, err := h.decodeDocument(r, docType)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	doc, err := h.service.CreateDocument(r.Context(), studio.CreateDocumentRequest{
		Type:   docType,
		ID:     sys.ID,
		Fields: fields,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(doc.Rev))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, doc)
}

// getTyped loads a document and hides it when it has a different type than the route.
func (h *Handler) getTyped(r *http.Request) (*studio.Document, error) {
	docType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if doc.Type != docType {
		return nil, &studio.DocumentError{DocumentID: id, Op: "get", Err: studio.ErrDocumentNotFound}
	}
	return doc, nil
}

// GetDocument returns one document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.getTyped(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(doc.Rev))
	render.JSON(w, r, doc)
}

// ListDocuments lists documents of the routed type.
//
// Query parameters: limit, offset, orderBy, order (asc|desc) and where, a
// JSON object of field paths to required values.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := studio.DocumentFilter{
		Type:    chi.URLParam(r, "type"),
		OrderBy: q.Get("orderBy"),
		Order:   studio.SortOrder(q.Get("order")),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		h.badRequest(w, r, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		h.badRequest(w, r, "invalid offset")
		return
	}
	if where := q.Get("where"); where != "" {
		if err := json.Unmarshal([]byte(where), &filter.Where); err != nil {
			h.badRequest(w, r, "where must be a JSON object")
			return
		}
	}

	total, err := h.service.CountDocuments(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	docs, err := h.service.ListDocuments(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*studio.Document{}
	}
	normalized, _ := filter.Normalize()
	render.JSON(w, r, ListDocumentsResponse{
		Total:     total,
		Limit:     normalized.Limit,
		Offset:    normalized.Offset,
		Documents: docs,
	})
}

// UpdateDocument replaces a document's fields.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	docType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	fields, sys, err := h.decodeDocument(r, docType)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	if sys.ID != "" && sys.ID != id {
		h.badRequest(w, r, "body _id does not match the URL")
		return
	}

	doc, err := h.service.UpdateDocument(r.Context(), studio.UpdateDocumentRequest{
		ID:         id,
		Type:       docType,
		Fields:     fields,
		IfRevision: ifRevision(r, sys.Rev),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(doc.Rev))
	render.JSON(w, r, doc)
}

// PatchDocument sets and unsets individual fields.
func (h *Handler) PatchDocument(w http.ResponseWriter, r *http.Request) {
	var req PatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "invalid JSON body")
		return
	}

	doc, err := h.service.PatchDocument(r.Context(), studio.PatchDocumentRequest{
		ID:         chi.URLParam(r, "id"),
		Type:       chi.URLParam(r, "type"),
		Set:        req.Set,
		Unset:      req.Unset,
		IfRevision: ifRevision(r, req.IfRevisionID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(doc.Rev))
	render.JSON(w, r, doc)
}

// DeleteDocument deletes a document nothing references.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.getTyped(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.service.DeleteDocument(r.Context(), doc.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateDocument validates a document body without storing it.
func (h *Handler) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	docType := chi.URLParam(r, "type")
	fields, sys, err := h.decodeDocument(r, docType)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	markers, err := h.service.ValidateDocument(r.Context(), docType, sys.ID, fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, ValidateResponse{Valid: len(markers) == 0, Markers: markers})
}

// GenerateSlug derives a unique slug for a slug field.
func (h *Handler) GenerateSlug(w http.ResponseWriter, r *http.Request) {
	var req SlugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, "invalid JSON body")
		return
	}
	if req.Field == "" {
		req.Field = "slug"
	}
	slug, err := h.service.GenerateSlug(r.Context(), studio.GenerateSlugRequest{
		Type:       chi.URLParam(r, "type"),
		Field:      req.Field,
		Fields:     req.Document,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, SlugResponse{Type: "slug", Current: slug})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
