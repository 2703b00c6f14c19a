package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/folio-cms/folio/internal/metrics"
	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
	"github.com/folio-cms/folio/internal/validation"
)

const (
	defaultContactLimit = 50
	maxContactLimit     = 200
)

// ContactHandler serves the public contact form and the admin inbox.
type ContactHandler struct {
	store          *store.Store
	captcha        *service.CaptchaStore
	requireCaptcha bool
	logger         *slog.Logger
}

// NewContactHandler creates a new ContactHandler. A nil captcha store
// disables captcha enforcement.
func NewContactHandler(st *store.Store, captcha *service.CaptchaStore, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		store:          st,
		captcha:        captcha,
		requireCaptcha: captcha != nil,
		logger:         logger,
	}
}

type contactError struct {
	model.ErrorResponse
	Captcha *service.Captcha `json:"captcha,omitempty"`
}

// freshCaptcha returns a new challenge when captchas are enforced.
func (h *ContactHandler) freshCaptcha() *service.Captcha {
	if !h.requireCaptcha {
		return nil
	}
	c := h.captcha.Issue()
	return &c
}

func (h *ContactHandler) reject(w http.ResponseWriter, code int, message string, fields map[string]string) {
	writeJSON(w, code, contactError{
		ErrorResponse: errorBody(code, message, fields),
		Captcha:       h.freshCaptcha(),
	})
}

// Captcha issues a new challenge for the contact form.
// GET /api/contact/captcha
func (h *ContactHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	if !h.requireCaptcha {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"required": false,
		})
		return
	}
	c := h.captcha.Issue()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"required":   true,
		"captcha_id": c.ID,
		"question":   c.Question,
	})
}

// Submit stores a message from the contact form.
// POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to submit contact form", err)
		return
	}
	if !settings.Bool(model.SettingEnableContactForm) {
		metrics.ContactMessages.WithLabelValues("disabled").Inc()
		h.reject(w, http.StatusForbidden, "The contact form is currently disabled", nil)
		return
	}

	var sub model.ContactSubmission
	if err := readJSON(r, &sub); err != nil {
		metrics.ContactMessages.WithLabelValues("rejected").Inc()
		h.reject(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	if h.requireCaptcha {
		if err := h.captcha.Verify(sub.CaptchaID, sub.CaptchaAnswer); err != nil {
			metrics.ContactMessages.WithLabelValues("captcha_failed").Inc()
			h.reject(w, http.StatusBadRequest, "Captcha failed: "+err.Error(),
				map[string]string{"captcha_answer": "incorrect or expired answer"})
			return
		}
	}

	if err := validation.Struct(&sub); err != nil {
		metrics.ContactMessages.WithLabelValues("rejected").Inc()
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.reject(w, http.StatusBadRequest, "Validation failed: "+verr.Error(), verr.FieldMap())
			return
		}
		h.reject(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	msg := &model.ContactMessage{
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if err := h.store.CreateContactMessage(r.Context(), msg); err != nil {
		writeInternalError(w, r, h.logger, "Failed to submit contact form", err)
		return
	}

	metrics.ContactMessages.WithLabelValues("stored").Inc()
	h.logger.Info("contact form submitted", "id", msg.ID, "remote_addr", msg.IPAddress)

	resp := map[string]interface{}{
		"success": true,
		"message": "Thank you for your message! I'll get back to you soon.",
		"id":      msg.ID,
	}
	if c := h.freshCaptcha(); c != nil {
		resp["captcha"] = c
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List returns stored messages, newest first.
// GET /api/contact/list?skip=0&limit=50&unread_only=false
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := model.ContactListOptions{
		Skip:       clampInt(queryInt(r, "skip", 0), 0, 1<<31-1),
		Limit:      clampInt(queryInt(r, "limit", defaultContactLimit), 1, maxContactLimit),
		UnreadOnly: queryBool(r, "unread_only"),
	}

	msgs, total, err := h.store.ListContactMessages(r.Context(), opts)
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to fetch contacts", err)
		return
	}
	unread, err := h.store.CountUnreadContactMessages(r.Context())
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to fetch contacts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"contacts": msgs,
		"meta": model.ListMeta{
			Total:  total,
			Unread: unread,
			Skip:   opts.Skip,
			Limit:  opts.Limit,
		},
	})
}

// MarkRead flags a message as read. Marking an already read message
// succeeds with modified=false.
// PATCH /api/contact/{id}/read
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id in path")
		return
	}
	modified, err := h.store.MarkContactMessageRead(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Contact message not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, h.logger, "Failed to update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"modified": modified,
	})
}
