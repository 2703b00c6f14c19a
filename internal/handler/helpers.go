package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/server/middleware"
	"github.com/folio-cms/folio/internal/store"
	"github.com/folio-cms/folio/internal/validation"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorTypes maps HTTP status codes to the error type reported in bodies.
var errorTypes = map[int]model.ErrorType{
	http.StatusBadRequest:            model.ErrorValidation,
	http.StatusUnprocessableEntity:   model.ErrorValidation,
	http.StatusRequestEntityTooLarge: model.ErrorValidation,
	http.StatusUnauthorized:          model.ErrorUnauthorized,
	http.StatusForbidden:             model.ErrorForbidden,
	http.StatusNotFound:              model.ErrorNotFound,
	http.StatusConflict:              model.ErrorConflict,
	http.StatusTooManyRequests:       model.ErrorTooManyRequests,
}

func errorBody(code int, message string, fields map[string]string) model.ErrorResponse {
	typ, ok := errorTypes[code]
	if !ok {
		typ = model.ErrorInternal
	}
	return model.ErrorResponse{
		Success: false,
		Message: message,
		Error: model.ErrorDetail{
			Code:   code,
			Type:   typ,
			Fields: fields,
		},
	}
}

// writeError writes a structured error response using the standard error
// envelope. The optional fields map carries per-field validation messages.
func writeError(w http.ResponseWriter, code int, message string, fields ...map[string]string) {
	var f map[string]string
	if len(fields) > 0 {
		f = fields[0]
	}
	writeJSON(w, code, errorBody(code, message, f))
}

// writeValidationError reports a *validation.Error as a 400 with field detail.
func writeValidationError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "Validation failed: "+verr.Error(), verr.FieldMap())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// writeInternalError logs err with the request id and hides it from the
// client.
func writeInternalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string, err error) {
	logger.ErrorContext(r.Context(), message,
		"error", err,
		"request_id", middleware.GetRequestID(r.Context()),
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, message)
}

// writeStoreError maps store sentinel errors to 404 and 409 and everything
// else to a logged 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, label string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, label+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, label+" already exists")
	default:
		writeInternalError(w, r, logger, fmt.Sprintf("Failed to save %s", label), err)
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("request body is empty")
	}
	return json.Unmarshal(body, v)
}

// decodeAndValidate reads the body into v and checks its validate tags. It
// writes the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := readJSON(r, v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := validation.Struct(v); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

// pathParam returns a chi URL parameter decoded. chi matches on the escaped
// path when the request carries one, leaving parameters percent-encoded.
func pathParam(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryBool extracts a boolean query parameter. Returns false if the parameter
// is missing or not "true"/"1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// clientIP returns the host part of the request's remote address. When
// proxies are trusted, RealIP has already replaced it with the forwarded one.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NotFound answers unmatched API routes with the JSON error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Route not found: "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowed answers a known route called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody(http.StatusMethodNotAllowed, "Method not allowed", nil))
}
