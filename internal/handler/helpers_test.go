package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/store"
)

// ---------------------------------------------------------------------------
// queryInt tests
// ---------------------------------------------------------------------------

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		key        string
		defaultVal int
		want       int
	}{
		{"returns default for missing param", "/test", "limit", 25, 25},
		{"parses integer param", "/test?limit=100", "limit", 25, 100},
		{"returns default for non-integer", "/test?limit=abc", "limit", 25, 25},
		{"parses zero", "/test?skip=0", "skip", 10, 0},
		{"parses negative", "/test?skip=-5", "skip", 0, -5},
		{"returns default for empty value", "/test?limit=", "limit", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryInt(r, tt.key, tt.defaultVal)
			if got != tt.want {
				t.Errorf("queryInt(%q, %d) = %d, want %d", tt.key, tt.defaultVal, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// queryBool tests
// ---------------------------------------------------------------------------

func TestQueryBool(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		want bool
	}{
		{"true for 'true'", "/test?unread_only=true", "unread_only", true},
		{"true for '1'", "/test?unread_only=1", "unread_only", true},
		{"false for 'false'", "/test?unread_only=false", "unread_only", false},
		{"false for missing", "/test", "unread_only", false},
		{"false for '0'", "/test?unread_only=0", "unread_only", false},
		{"false for empty", "/test?unread_only=", "unread_only", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryBool(r, tt.key)
			if got != tt.want {
				t.Errorf("queryBool(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// queryString tests
// ---------------------------------------------------------------------------

func TestQueryString(t *testing.T) {
	tests := []struct {
		name string
		url  string
		key  string
		want string
	}{
		{"returns value", "/test?time_range=30d", "time_range", "30d"},
		{"returns empty for missing", "/test", "time_range", ""},
		{"returns empty string for empty", "/test?time_range=", "time_range", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryString(r, tt.key)
			if got != tt.want {
				t.Errorf("queryString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// clampInt tests
// ---------------------------------------------------------------------------

func TestClampInt(t *testing.T) {
	tests := []struct {
		name string
		val  int
		min  int
		max  int
		want int
	}{
		{"within range", 50, 0, 100, 50},
		{"at min", 0, 0, 100, 0},
		{"at max", 100, 0, 100, 100},
		{"below min clamps to min", -5, 0, 100, 0},
		{"above max clamps to max", 500, 0, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampInt(tt.val, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("clampInt(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// writeError tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	t.Run("writes JSON error envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusBadRequest, "Invalid input", map[string]string{"level": "level must be at most 100"})

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		var body model.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Success || body.Message != "Invalid input" {
			t.Errorf("unexpected envelope: %+v", body)
		}
		if body.Error.Code != 400 || body.Error.Type != model.ErrorValidation {
			t.Errorf("unexpected detail: %+v", body.Error)
		}
		if body.Error.Fields["level"] == "" {
			t.Errorf("expected field detail, got %+v", body.Error.Fields)
		}
	})

	t.Run("unknown status is an internal error", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusServiceUnavailable, "down")
		if !strings.Contains(w.Body.String(), `"type":"InternalError"`) {
			t.Errorf("got %s", w.Body.String())
		}
	})
}

func TestWriteStoreError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, "Skill not found"},
		{"conflict", store.ErrConflict, http.StatusConflict, "Skill already exists"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "Failed to save Skill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("POST", "/api/content/skills", nil)
			writeStoreError(w, r, logger, "Skill", tt.err)
			if w.Code != tt.status {
				t.Errorf("status: got %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.msg) {
				t.Errorf("body %s does not contain %q", w.Body.String(), tt.msg)
			}
			if strings.Contains(w.Body.String(), "disk on fire") {
				t.Error("internal error text leaked to the client")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// writeJSON tests
// ---------------------------------------------------------------------------

func TestWriteJSON(t *testing.T) {
	t.Run("writes JSON with correct content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"hello":"world"`) {
			t.Errorf("expected JSON body, got: %s", body)
		}
	})
}

// ---------------------------------------------------------------------------
// readJSON tests
// ---------------------------------------------------------------------------

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid object", `{"category":"Go","level":5}`, ""},
		{"empty body", ``, "request body is empty"},
		{"invalid JSON", `{invalid}`, "invalid"},
		{"whitespace only", "  \n", "request body is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var v model.Skill
			err := readJSON(r, &v)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("body too large", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"category":"`+strings.Repeat("x", 100)+`"}`))
		r.Body = http.MaxBytesReader(w, r.Body, 10)
		var v model.Skill
		if err := readJSON(r, &v); err == nil || !strings.Contains(err.Error(), "exceeds 10 bytes") {
			t.Errorf("got %v", err)
		}
	})
}

func TestPathParam(t *testing.T) {
	withParam := func(target, value string) *http.Request {
		r := httptest.NewRequest("GET", target, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("category", value)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	tests := []struct {
		name    string
		target  string
		value   string
		want    string
		wantErr bool
	}{
		{"plain", "/skills/Go", "Go", "Go", false},
		{"escaped ampersand", "/skills/DevOps%20%26%20Containers", "DevOps%20%26%20Containers", "DevOps & Containers", false},
		{"escaped slash", "/skills/CI%2FCD", "CI%2FCD", "CI/CD", false},
		{"decoded path left alone", "/skills/100%25", "100%", "100%", false},
		{"bad escape", "/skills/a%2Fb", "%zz", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pathParam(withParam(tt.target, tt.value), "category")
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	if got := clientIP(r); got != "203.0.113.9" {
		t.Errorf("got %q", got)
	}
	r.RemoteAddr = "203.0.113.9"
	if got := clientIP(r); got != "203.0.113.9" {
		t.Errorf("got %q", got)
	}
}
