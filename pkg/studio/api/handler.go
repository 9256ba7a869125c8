// Package api exposes a studio.Service over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/schema"
)

// DefaultMaxBodySize bounds JSON request bodies.
const DefaultMaxBodySize int64 = 1 << 20

// Handler serves the studio HTTP API.
type Handler struct {
	service     studio.Service
	logger      *slog.Logger
	corsOrigins []string
	maxBodySize int64
	now         func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the logger used for request and error logging.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCORS enables CORS for the given origins. "*" allows any origin.
func WithCORS(origins ...string) HandlerOption {
	return func(h *Handler) {
		h.corsOrigins = origins
	}
}

// WithMaxBodySize bounds JSON request bodies. Asset uploads are bounded by the service.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHandler creates a handler for the given service.
func NewHandler(service studio.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:     service,
		logger:      slog.Default(),
		maxBodySize: DefaultMaxBodySize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for the whole API. Plugin routes are mounted
// only for plugins the studio enables.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(h.logger))
	r.Use(LoggingMiddleware(h.logger))
	if len(h.corsOrigins) > 0 {
		r.Use(CORSMiddleware(h.corsOrigins))
	}

	r.Get("/health", h.Health)
	r.Get("/config", h.GetConfig)
	r.Get("/schema", h.GetSchema)

	r.Route("/documents/{type}", func(r chi.Router) {
		r.Use(RequestSizeLimitMiddleware(h.maxBodySize))
		r.Post("/", h.CreateDocument)
		r.Get("/", h.ListDocuments)
		r.Post("/validate", h.ValidateDocument)
		r.Post("/slug", h.GenerateSlug)
		r.Get("/{id}", h.GetDocument)
		r.Put("/{id}", h.UpdateDocument)
		r.Patch("/{id}", h.PatchDocument)
		r.Delete("/{id}", h.DeleteDocument)
	})

	r.Route("/assets", func(r chi.Router) {
		r.Post("/images", h.UploadImage)
		r.Get("/{id}", h.GetAsset)
		r.Get("/{id}/download", h.DownloadAsset)
		r.Delete("/{id}", h.DeleteAsset)
	})

	cfg := h.service.Config()
	if cfg.HasPlugin(studio.PluginStructure) {
		r.Get("/structure", h.Structure)
		r.Get("/structure/{type}", h.StructureList)
	}
	if cfg.HasPlugin(studio.PluginVision) {
		r.With(RequestSizeLimitMiddleware(h.maxBodySize)).Post("/vision/query", h.VisionQuery)
	}
	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// GetConfig returns the studio configuration summary.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Config().Summary())
}

// GetSchema returns the registered document types. ?format=yaml selects YAML.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	specs := h.service.Config().Schema.Types.Export(h.now())
	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml")
		if err := schema.WriteYAML(w, specs); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to write schema", "err", err)
		}
		return
	}
	render.JSON(w, r, specs)
}
