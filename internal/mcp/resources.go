package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/folio-cms/folio/internal/model"
)

const (
	contentURI     = "folio://content"
	settingsURI    = "folio://settings"
	statsURIPrefix = "folio://stats/"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// folio://content: every content collection in one document
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			contentURI,
			"Portfolio Content",
			mcp.WithResourceDescription(
				"Personal info, projects, skills, certifications, experience, "+
					"education and settings as served by GET /api/content/all.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleContentResource,
	)

	srv.AddResource(
		mcp.NewResource(
			settingsURI,
			"Site Settings",
			mcp.WithResourceDescription("Site settings merged over their defaults."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSettingsResource,
	)

	// -------------------------------------------------------------------
	// folio://stats/{range}: visitor statistics (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			statsURIPrefix+"{range}",
			"Visitor Statistics",
			mcp.WithTemplateDescription(
				"Aggregated visitor statistics for the range 7d, 30d or all.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleStatsResource,
	)
}

func (s *MCPServer) handleContentResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	snap.Settings = snap.Settings.WithDefaults()
	return jsonResource(contentURI, snap)
}

func (s *MCPServer) handleSettingsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return jsonResource(settingsURI, settings.WithDefaults())
}

// handleStatsResource aggregates statistics for the range named in the URI.
func (s *MCPServer) handleStatsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	name := strings.TrimPrefix(uri, statsURIPrefix)
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid stats URI %q: expected %s{range}", uri, statsURIPrefix)
	}

	tr, err := model.ParseTimeRange(name)
	if err != nil {
		return nil, err
	}
	stats, err := s.recorder.Stats(ctx, tr, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}
	return jsonResource(uri, stats)
}
