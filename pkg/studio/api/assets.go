package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-studio/pkg/studio"
)

// multipartMemory is how much of a multipart upload is held in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// UploadImage stores an image asset. The image is read from the "file"
// part of a multipart form, or else from the raw body with the file name
// in ?filename=. ?backend= picks a storage backend.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	req := studio.UploadAssetRequest{
		FileName:           r.URL.Query().Get("filename"),
		StorageBackendName: r.URL.Query().Get("backend"),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			h.badRequest(w, r, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			h.badRequest(w, r, "missing file part")
			return
		}
		defer file.Close()
		req.Reader = file
		if req.FileName == "" {
			req.FileName = header.Filename
		}
		if backend := r.FormValue("backend"); backend != "" {
			req.StorageBackendName = backend
		}
	} else {
		req.Reader = r.Body
	}

	asset, err := h.service.UploadAsset(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, asset)
}

// GetAsset returns an asset record with its URL.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, asset)
}

// DownloadAsset streams the asset's bytes. ?dl=1 asks the client to save it.
func (h *Handler) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	body, asset, err := h.service.DownloadAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", asset.MimeType)
	if asset.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	disposition := "inline"
	if dl := r.URL.Query().Get("dl"); dl != "" && dl != "0" {
		disposition = "attachment"
	}
	if name := asset.OriginalFilename; name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	} else {
		w.Header().Set("Content-Disposition", disposition)
	}

	if _, err := io.Copy(w, body); err != nil {
		h.logger.DebugContext(r.Context(), "asset download interrupted", "id", asset.ID, "err", err)
	}
}

// DeleteAsset deletes an asset nothing references.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
