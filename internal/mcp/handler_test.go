package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
)

func newTestServer(t *testing.T) (*MCPServer, *store.Store) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := service.NewRecorder(st, service.RecorderConfig{}, logger)
	return NewMCPServer(st, rec, "test", logger), st
}

func callTool(t *testing.T, s *MCPServer, fn func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("tool returned protocol error: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestGetContentAll(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	if _, err := st.Skills().Create(ctx, model.Skill{Category: "Go", Level: 90}); err != nil {
		t.Fatalf("create skill: %v", err)
	}

	res := callTool(t, s, s.handleGetContent, nil)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var snap model.ContentSnapshot
	if err := json.Unmarshal([]byte(resultText(t, res)), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Skills) != 1 || snap.Skills[0].Category != "Go" {
		t.Errorf("skills: got %+v", snap.Skills)
	}
	if !snap.Settings.Bool("enable_analytics") {
		t.Error("settings should carry defaults")
	}
}

func TestGetContentCollection(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	if _, err := st.Certifications().Create(ctx, model.Certification{Name: "CKA", Issuer: "CNCF", Year: 2024}); err != nil {
		t.Fatalf("create certification: %v", err)
	}

	res := callTool(t, s, s.handleGetContent, map[string]interface{}{"collection": "certifications"})
	var certs []model.Certification
	if err := json.Unmarshal([]byte(resultText(t, res)), &certs); err != nil {
		t.Fatalf("decode certifications: %v", err)
	}
	if len(certs) != 1 || certs[0].Issuer != "CNCF" {
		t.Errorf("certifications: got %+v", certs)
	}

	res = callTool(t, s, s.handleGetContent, map[string]interface{}{"collection": "personal_info"})
	if !res.IsError {
		t.Error("missing personal info should be a tool error")
	}

	res = callTool(t, s, s.handleGetContent, map[string]interface{}{"collection": "widgets"})
	if !res.IsError {
		t.Error("unknown collection should be a tool error")
	}
}

func TestAnalyticsStatsTool(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()
	err := st.InsertEvents(ctx, []model.AnalyticsEvent{
		{ID: uuid.NewString(), EventType: model.EventPageView, Page: "/", DeviceType: model.DeviceDesktop, IPAddress: "10.0.0.1", Timestamp: now},
		{ID: uuid.NewString(), EventType: model.EventClick, Page: "/", DeviceType: model.DeviceDesktop, IPAddress: "10.0.0.1", Timestamp: now},
	})
	if err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}

	res := callTool(t, s, s.handleAnalyticsStats, map[string]interface{}{"time_range": "30d"})
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if strings.Contains(text, "10.0.0.1") {
		t.Error("statistics must not expose visitor IPs")
	}
	var stats model.AnalyticsStats
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalVisits != 1 || stats.TotalClicks != 1 {
		t.Errorf("got visits=%d clicks=%d, want 1 and 1", stats.TotalVisits, stats.TotalClicks)
	}

	res = callTool(t, s, s.handleAnalyticsStats, map[string]interface{}{"time_range": "90d"})
	if !res.IsError {
		t.Error("unknown range should be a tool error")
	}
}

func TestListContactsTool(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	for _, name := range []string{"Ada", "Grace", "Linus"} {
		msg := &model.ContactMessage{Name: name, Email: strings.ToLower(name) + "@example.com", Message: "hello"}
		if err := st.CreateContactMessage(ctx, msg); err != nil {
			t.Fatalf("CreateContactMessage: %v", err)
		}
		if name == "Ada" {
			if _, err := st.MarkContactMessageRead(ctx, msg.ID); err != nil {
				t.Fatalf("MarkContactMessageRead: %v", err)
			}
		}
	}

	res := callTool(t, s, s.handleListContacts, map[string]interface{}{"unread_only": true, "limit": float64(500)})
	var listing contactListing
	if err := json.Unmarshal([]byte(resultText(t, res)), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Contacts) != 2 {
		t.Errorf("unread contacts: got %d, want 2", len(listing.Contacts))
	}
	if listing.Meta.Unread != 2 {
		t.Errorf("meta.unread: got %d, want 2", listing.Meta.Unread)
	}
	if listing.Meta.Limit != 200 {
		t.Errorf("limit should be clamped to 200, got %d", listing.Meta.Limit)
	}
	for _, c := range listing.Contacts {
		if c.Read {
			t.Errorf("message from %s is read but unread_only was set", c.Name)
		}
	}
}

func TestStatsResource(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = "folio://stats/7d"
	contents, err := s.handleStatsResource(context.Background(), req)
	if err != nil {
		t.Fatalf("handleStatsResource: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 resource content, got %d", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if text.URI != "folio://stats/7d" || text.MIMEType != "application/json" {
		t.Errorf("got uri=%q mime=%q", text.URI, text.MIMEType)
	}

	req.Params.URI = "folio://stats/forever"
	if _, err := s.handleStatsResource(context.Background(), req); err == nil {
		t.Error("expected error for unknown range")
	}
}

func TestSettingsResource(t *testing.T) {
	s, _ := newTestServer(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = settingsURI
	contents, err := s.handleSettingsResource(context.Background(), req)
	if err != nil {
		t.Fatalf("handleSettingsResource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var settings model.Settings
	if err := json.Unmarshal([]byte(text), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if !settings.Bool("enable_contact_form") {
		t.Error("enable_contact_form should default to true")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      int
		min      int
		max      int
		expected int
	}{
		{"value in range", 5, 1, 10, 5},
		{"value below min", -3, 1, 10, 1},
		{"value above max", 15, 1, 10, 10},
		{"value equals min", 1, 1, 10, 1},
		{"value equals max", 10, 1, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clamp(tt.val, tt.min, tt.max)
			if got != tt.expected {
				t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.expected)
			}
		})
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	ann := readOnlyAnnotation()

	if ann.ReadOnlyHint == nil {
		t.Fatal("ReadOnlyHint should not be nil for readOnlyAnnotation")
	}
	if *ann.ReadOnlyHint != true {
		t.Errorf("ReadOnlyHint = %v, want true", *ann.ReadOnlyHint)
	}
}
