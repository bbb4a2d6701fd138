// Package mcp exposes the history store to MCP clients over stdio, so
// external agents can browse and manage stored sessions.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"genstudio/pkg/model"
	"genstudio/pkg/repository"
	"genstudio/pkg/usecase/history"
)

// Server wraps a Repository as an MCP tool server
type Server struct {
	repo repository.Repository
	mcp  *mcp.Server
}

func NewServer(repo repository.Repository, version string) *Server {
	s := &Server{repo: repo}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "genstudio-history",
		Version: version,
	}, nil)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_history",
		Description: "List stored sessions, most recently updated first",
	}, s.listHistory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_history",
		Description: "Show one stored session including its full payload",
	}, s.showHistory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rename_history",
		Description: "Change the title of a stored session",
	}, s.renameHistory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_history",
		Description: "Delete a stored session permanently",
	}, s.deleteHistory)

	return s
}

// Run serves requests on stdin/stdout until the client disconnects
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "mcp server failed")
	}
	return nil
}

type listHistoryParams struct{}

type historySummary struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updatedAt"`
}

func (s *Server) listHistory(ctx context.Context, req *mcp.CallToolRequest, params *listHistoryParams) (*mcp.CallToolResult, any, error) {
	items, err := history.List(ctx, s.repo)
	if err != nil {
		return nil, nil, err
	}

	summaries := make([]historySummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, historySummary{
			ID:        string(item.ID),
			Type:      string(item.Type),
			Title:     item.Title,
			UpdatedAt: item.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return textResult(summaries)
}

type showHistoryParams struct {
	ID string `json:"id" jsonschema:"The id of the session to show"`
}

func (s *Server) showHistory(ctx context.Context, req *mcp.CallToolRequest, params *showHistoryParams) (*mcp.CallToolResult, any, error) {
	if params.ID == "" {
		return nil, nil, goerr.New("id is required")
	}

	item, err := s.repo.GetItem(ctx, model.HistoryID(params.ID))
	if err != nil {
		return nil, nil, err
	}
	return textResult(item)
}

type renameHistoryParams struct {
	ID    string `json:"id" jsonschema:"The id of the session to rename"`
	Title string `json:"title" jsonschema:"The new title"`
}

func (s *Server) renameHistory(ctx context.Context, req *mcp.CallToolRequest, params *renameHistoryParams) (*mcp.CallToolResult, any, error) {
	if params.ID == "" || params.Title == "" {
		return nil, nil, goerr.New("id and title are required")
	}

	if err := history.Rename(ctx, s.repo, model.HistoryID(params.ID), params.Title); err != nil {
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Renamed %s to %q", params.ID, params.Title)},
		},
	}, nil, nil
}

type deleteHistoryParams struct {
	ID string `json:"id" jsonschema:"The id of the session to delete"`
}

func (s *Server) deleteHistory(ctx context.Context, req *mcp.CallToolRequest, params *deleteHistoryParams) (*mcp.CallToolResult, any, error) {
	if params.ID == "" {
		return nil, nil, goerr.New("id is required")
	}

	if err := history.Delete(ctx, s.repo, model.HistoryID(params.ID)); err != nil {
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Deleted %s", params.ID)},
		},
	}, nil, nil
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}
