package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-studio/pkg/studio"
)

// Structure lists every document type with its document count.
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Structure(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, items)
}

// StructureList lists documents of one type, most recently edited first.
func (h *Handler) StructureList(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		h.badRequest(w, r, "invalid limit")
		return
	}
	offset, err := intParam(r.URL.Query().Get("offset"))
	if err != nil {
		h.badRequest(w, r, "invalid offset")
		return
	}
	items, err := h.service.StructureList(r.Context(), chi.URLParam(r, "type"), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, items)
}

// VisionQuery runs a structured query from the vision console.
func (h *Handler) VisionQuery(w http.ResponseWriter, r *http.Request) {
	var q studio.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		h.badRequest(w, r, "invalid JSON body")
		return
	}
	result, err := h.service.Query(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}
