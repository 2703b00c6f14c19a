package handler

import (
	"log/slog"
	"net/http"

	"github.com/folio-cms/folio/internal/metrics"
	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/server/middleware"
	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
)

// AnalyticsHandler serves event ingestion and the dashboard aggregate.
type AnalyticsHandler struct {
	recorder *service.Recorder
	store    *store.Store
	logger   *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(rec *service.Recorder, st *store.Store, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{recorder: rec, store: st, logger: logger}
}

type trackResponse struct {
	Success  bool   `json:"success"`
	Accepted bool   `json:"accepted"`
	EventID  string `json:"event_id,omitempty"`
}

// Track records a page view or click. Ingestion is fire-and-forget: once
// the payload is valid the caller always gets 200, and accepted reports
// whether the event was queued.
// POST /api/analytics/track
func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req model.TrackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		// Settings are unreadable; keep tracking with the defaults.
		h.logger.Warn("read settings for tracking", "error", err)
	}
	if !settings.Bool(model.SettingEnableAnalytics) {
		metrics.AnalyticsEvents.WithLabelValues("disabled").Inc()
		writeJSON(w, http.StatusOK, trackResponse{Success: true})
		return
	}

	ip := clientIP(r)
	client := service.ParseClient(r.UserAgent(), ip)
	device := req.DeviceType
	if !device.Valid() {
		device = client.Device
	}

	ev, accepted := h.recorder.Track(model.AnalyticsEvent{
		EventType:  req.EventType,
		Page:       req.Page,
		DeviceType: device,
		IPAddress:  ip,
		UserAgent:  r.UserAgent(),
		Browser:    client.Browser,
		OS:         client.OS,
		Location:   client.Location,
	})

	resp := trackResponse{Success: true, Accepted: accepted}
	if accepted {
		resp.EventID = ev.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Success bool `json:"success"`
	*model.AnalyticsStats
}

// Stats returns the aggregate for time_range (7d, 30d or all). Recent
// visitors are only included for authenticated callers.
// GET /api/analytics/stats?time_range=7d
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tr, err := model.ParseTimeRange(queryString(r, "time_range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(),
			map[string]string{"time_range": "must be one of 7d, 30d, all"})
		return
	}

	withVisitors := middleware.GetPrincipal(r.Context()) != nil
	stats, err := h.recorder.Stats(r.Context(), tr, withVisitors)
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to compute analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Success: true, AnalyticsStats: stats})
}
