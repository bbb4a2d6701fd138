package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"genstudio/pkg/model"
	"genstudio/pkg/repository"
)

func setupSession(t *testing.T, repo repository.Repository) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(repo, "test")
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()

	serverSession := gt.R1(server.mcp.Connect(ctx, serverTransport, nil)).NoError(t)
	t.Cleanup(func() { serverSession.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "test"}, nil)
	session := gt.R1(client.Connect(ctx, clientTransport, nil)).NoError(t)
	t.Cleanup(func() { session.Close() })

	return session
}

func callText(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result := gt.R1(session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})).NoError(t)
	gt.False(t, result.IsError)
	gt.A(t, result.Content).Length(1)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	return text.Text
}

func TestServerTools(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	item := gt.R1(model.NewHistoryItem("shopping", &model.TodoData{
		Tasks: []*model.TodoItem{{ID: "1", Text: "milk"}},
	})).NoError(t)
	gt.NoError(t, repo.PutItem(ctx, item))

	session := setupSession(t, repo)

	tools := gt.R1(session.ListTools(ctx, nil)).NoError(t)
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	gt.True(t, names["list_history"])
	gt.True(t, names["show_history"])
	gt.True(t, names["rename_history"])
	gt.True(t, names["delete_history"])

	listed := callText(t, session, "list_history", map[string]any{})
	gt.S(t, listed).Contains("shopping")
	gt.S(t, listed).Contains(string(item.ID))

	shown := callText(t, session, "show_history", map[string]any{"id": string(item.ID)})
	gt.S(t, shown).Contains("milk")

	callText(t, session, "rename_history", map[string]any{"id": string(item.ID), "title": "errands"})
	renamed := gt.R1(repo.GetItem(ctx, item.ID)).NoError(t)
	gt.V(t, renamed.Title).Equal("errands")

	callText(t, session, "delete_history", map[string]any{"id": string(item.ID)})
	items := gt.R1(repo.ListItems(ctx)).NoError(t)
	gt.A(t, items).Length(0)
}

func TestServerToolErrors(t *testing.T) {
	session := setupSession(t, repository.NewMemory())
	ctx := context.Background()

	result := gt.R1(session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "show_history",
		Arguments: map[string]any{"id": "missing"},
	})).NoError(t)
	gt.True(t, result.IsError)

	result = gt.R1(session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "rename_history",
		Arguments: map[string]any{"id": "", "title": ""},
	})).NoError(t)
	gt.True(t, result.IsError)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.True(t, strings.Contains(text.Text, "required"))
}
