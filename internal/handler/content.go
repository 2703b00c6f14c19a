package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/folio-cms/folio/internal/metrics"
	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/store"
	"github.com/folio-cms/folio/internal/validation"
)

// Repository is the storage contract shared by every content collection.
// *store.Table satisfies it for each entity kind.
type Repository[T model.Entity] interface {
	Kind() model.Kind
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, key string, v T) (T, error)
	Upsert(ctx context.Context, key string, v T) (T, bool, error)
	Delete(ctx context.Context, key string) error
}

// CollectionOptions describes how a collection is exposed over HTTP.
type CollectionOptions struct {
	// ListKey names the array in list responses, e.g. "projects".
	ListKey string
	// Param is the chi URL parameter holding the record key.
	Param string
	// Upsert makes PUT create the record when the key is unknown.
	Upsert bool
}

// Collection serves list, create, update and delete for one entity kind.
type Collection[T model.Entity] struct {
	repo   Repository[T]
	opts   CollectionOptions
	logger *slog.Logger
}

// NewCollection creates a Collection over repo.
func NewCollection[T model.Entity](repo Repository[T], opts CollectionOptions, logger *slog.Logger) *Collection[T] {
	if opts.Param == "" {
		opts.Param = "key"
	}
	if opts.ListKey == "" {
		opts.ListKey = string(repo.Kind())
	}
	return &Collection[T]{repo: repo, opts: opts, logger: logger}
}

type normalizer interface {
	Normalize()
}

// decode reads and validates a record. List fields are normalized so that
// omitted lists come back as empty arrays.
func (c *Collection[T]) decode(w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := readJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return v, false
	}
	if n, ok := any(&v).(normalizer); ok {
		n.Normalize()
	}
	if err := validation.Struct(&v); err != nil {
		writeValidationError(w, err)
		return v, false
	}
	return v, true
}

// Param returns the URL parameter name the write routes must declare.
func (c *Collection[T]) Param() string {
	return c.opts.Param
}

// key reads the record key from the URL.
func (c *Collection[T]) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := pathParam(r, c.opts.Param)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+c.opts.Param+" in path")
		return "", false
	}
	return key, true
}

func (c *Collection[T]) label() string {
	return c.repo.Kind().Label()
}

// List returns every record in creation order.
// GET /api/content/{collection}
func (c *Collection[T]) List(w http.ResponseWriter, r *http.Request) {
	items, err := c.repo.List(r.Context())
	if err != nil {
		writeInternalError(w, r, c.logger, "Failed to fetch "+c.opts.ListKey, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		c.opts.ListKey: items,
	})
}

// Create adds a record. Kinds keyed by a natural key reject duplicates
// with 409.
// POST /api/content/{collection}
func (c *Collection[T]) Create(w http.ResponseWriter, r *http.Request) {
	v, ok := c.decode(w, r)
	if !ok {
		return
	}

	created, err := c.repo.Create(r.Context(), v)
	if err != nil {
		writeStoreError(w, r, c.logger, c.label(), err)
		return
	}

	metrics.ContentWrites.WithLabelValues(string(c.repo.Kind()), "create").Inc()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": c.label() + " added successfully",
		"id":      created.Key(),
		"data":    created,
	})
}

// Update replaces the record named in the URL. With Upsert set an unknown
// key creates the record and answers 201.
// PUT /api/content/{collection}/{key}
func (c *Collection[T]) Update(w http.ResponseWriter, r *http.Request) {
	key, ok := c.key(w, r)
	if !ok {
		return
	}
	v, ok := c.decode(w, r)
	if !ok {
		return
	}

	var (
		saved   T
		created bool
		err     error
	)
	if c.opts.Upsert {
		saved, created, err = c.repo.Upsert(r.Context(), key, v)
	} else {
		saved, err = c.repo.Update(r.Context(), key, v)
	}
	if err != nil {
		writeStoreError(w, r, c.logger, c.label(), err)
		return
	}

	status, op, verb := http.StatusOK, "update", "updated"
	if created {
		status, op, verb = http.StatusCreated, "create", "added"
	}
	metrics.ContentWrites.WithLabelValues(string(c.repo.Kind()), op).Inc()
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"message": c.label() + " " + verb + " successfully",
		"data":    saved,
	})
}

// Delete removes the record named in the URL.
// DELETE /api/content/{collection}/{key}
func (c *Collection[T]) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := c.key(w, r)
	if !ok {
		return
	}
	if err := c.repo.Delete(r.Context(), key); err != nil {
		writeStoreError(w, r, c.logger, c.label(), err)
		return
	}
	metrics.ContentWrites.WithLabelValues(string(c.repo.Kind()), "delete").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": c.label() + " deleted successfully",
	})
}

// ---------------------------------------------------------------------------
// Singletons and the aggregate read
// ---------------------------------------------------------------------------

// ContentHandler serves the personal info and settings singletons and the
// aggregate content read.
type ContentHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(st *store.Store, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{store: st, logger: logger}
}

type allContentResponse struct {
	Success bool `json:"success"`
	*model.ContentSnapshot
}

// All returns every content collection read in one consistent snapshot.
// GET /api/content/all
func (h *ContentHandler) All(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to fetch content", err)
		return
	}
	snap.Settings = snap.Settings.WithDefaults()
	writeJSON(w, http.StatusOK, allContentResponse{Success: true, ContentSnapshot: snap})
}

// GetPersonalInfo returns the profile record.
// GET /api/content/personal-info
func (h *ContentHandler) GetPersonalInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.GetPersonalInfo(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No personal info found")
		return
	}
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to fetch personal info", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"personal_info": info,
	})
}

// PutPersonalInfo replaces the profile record.
// PUT /api/content/personal-info
func (h *ContentHandler) PutPersonalInfo(w http.ResponseWriter, r *http.Request) {
	var info model.PersonalInfo
	if !decodeAndValidate(w, r, &info) {
		return
	}
	if err := h.store.PutPersonalInfo(r.Context(), &info); err != nil {
		writeInternalError(w, r, h.logger, "Failed to update personal info", err)
		return
	}
	metrics.ContentWrites.WithLabelValues("personal_info", "update").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       "Personal info updated successfully",
		"personal_info": info,
	})
}

// GetSettings returns the stored settings layered over the defaults.
// GET /api/content/settings
func (h *ContentHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to fetch settings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": settings.WithDefaults(),
	})
}

// PutSettings replaces the stored settings map. Keys left out fall back to
// their defaults on the next read.
// PUT /api/content/settings
func (h *ContentHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := readJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if settings == nil {
		writeError(w, http.StatusBadRequest, "Settings must be a JSON object")
		return
	}
	if problems := settings.Validate(); problems != nil {
		writeValidationError(w, validation.New(problems))
		return
	}
	if err := h.store.ReplaceSettings(r.Context(), settings); err != nil {
		writeInternalError(w, r, h.logger, "Failed to update settings", err)
		return
	}
	metrics.ContentWrites.WithLabelValues("settings", "update").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Settings updated successfully",
		"settings": settings.WithDefaults(),
	})
}
