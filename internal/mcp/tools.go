package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/folio-cms/folio/internal/model"
)

// Collections accepted by folio_get_content.
var contentCollections = []string{
	"all", "personal_info", "projects", "skills", "certifications", "experience", "education", "settings",
}

// registerTools registers all folio MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("folio_get_content",
			mcp.WithDescription(
				"Read the portfolio content. Returns every collection by default, or a "+
					"single collection when one is named. Settings are merged over their defaults.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("collection",
				mcp.Description("Collection to return (default all)"),
				mcp.Enum(contentCollections...),
			),
		),
		s.handleGetContent,
	)

	srv.AddTool(
		mcp.NewTool("folio_analytics_stats",
			mcp.WithDescription(
				"Aggregate visitor statistics: visits, clicks, unique visitors, average "+
					"session time, daily series, page views and device split. Visitor IPs are not included.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("time_range",
				mcp.Description("Window to aggregate over (default 7d)"),
				mcp.Enum(string(model.Range7Days), string(model.Range30Days), string(model.RangeAll)),
			),
		),
		s.handleAnalyticsStats,
	)

	srv.AddTool(
		mcp.NewTool("folio_list_contacts",
			mcp.WithDescription(
				"List messages left through the contact form, newest first, with the "+
					"total and unread counts.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("unread_only",
				mcp.Description("Only return unread messages"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of messages to return (default 20, max 200)"),
			),
			mcp.WithNumber("skip",
				mcp.Description("Number of messages to skip for pagination"),
			),
		),
		s.handleListContacts,
	)
}

func (s *MCPServer) handleGetContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := optionalString(request, "collection", "all")

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return toolError("failed to read content: %v", err)
	}
	snap.Settings = snap.Settings.WithDefaults()

	switch collection {
	case "all":
		return successJSON(snap)
	case "personal_info":
		if snap.PersonalInfo == nil {
			return toolError("no personal info has been saved yet")
		}
		return successJSON(snap.PersonalInfo)
	case "projects":
		return successJSON(snap.Projects)
	case "skills":
		return successJSON(snap.Skills)
	case "certifications":
		return successJSON(snap.Certifications)
	case "experience":
		return successJSON(snap.Experience)
	case "education":
		return successJSON(snap.Education)
	case "settings":
		return successJSON(snap.Settings)
	}
	return toolError("unknown collection %q (available: %v)", collection, contentCollections)
}

func (s *MCPServer) handleAnalyticsStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tr, err := model.ParseTimeRange(optionalString(request, "time_range", ""))
	if err != nil {
		return toolError("%v", err)
	}
	stats, err := s.recorder.Stats(ctx, tr, false)
	if err != nil {
		return toolError("failed to compute statistics: %v", err)
	}
	return successJSON(stats)
}

type contactListing struct {
	Contacts []model.ContactMessage `json:"contacts"`
	Meta     model.ListMeta         `json:"meta"`
}

func (s *MCPServer) handleListContacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := model.ContactListOptions{
		Skip:       clamp(optionalInt(request, "skip", 0), 0, 1<<31-1),
		Limit:      clamp(optionalInt(request, "limit", 20), 1, 200),
		UnreadOnly: optionalBool(request, "unread_only"),
	}

	msgs, total, err := s.store.ListContactMessages(ctx, opts)
	if err != nil {
		return toolError("failed to list contacts: %v", err)
	}
	unread, err := s.store.CountUnreadContactMessages(ctx)
	if err != nil {
		return toolError("failed to count unread contacts: %v", err)
	}

	return successJSON(contactListing{
		Contacts: msgs,
		Meta: model.ListMeta{
			Total:  total,
			Unread: unread,
			Skip:   opts.Skip,
			Limit:  opts.Limit,
		},
	})
}
