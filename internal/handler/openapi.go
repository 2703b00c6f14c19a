package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/folio-cms/folio/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI 3.1 document for the API. The document
// only depends on the binary, so it is generated once on first request.
type OpenAPIHandler struct {
	version string
	logger  *slog.Logger

	once sync.Once
	doc  *openapi3.T
	err  error
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(version string, logger *slog.Logger) *OpenAPIHandler {
	return &OpenAPIHandler{version: version, logger: logger}
}

// ServeSpec returns the document.
// GET /api/openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc, h.err = openapi.Generate("", h.version)
	})
	if h.err != nil {
		writeInternalError(w, r, h.logger, "Failed to generate OpenAPI document", h.err)
		return
	}
	writeJSON(w, http.StatusOK, h.doc)
}
