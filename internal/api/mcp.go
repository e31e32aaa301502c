package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/session"
)

// QuestService is the part of session.Manager the MCP layer drives.
type QuestService interface {
	Refresh(ctx context.Context) error
	Snapshot() session.State
	Apply(ctx context.Context, i int, q quest.Quest, action quest.Action, confirm session.ConfirmFunc) error
	AddQuest(ctx context.Context, text string) (quest.Quest, error)
	Generate(ctx context.Context, task string) (string, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Quests  QuestService
	Version string
}

// NewMCPServer creates an MCP server with the quest tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"lifexp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("LifeXP turns everyday tasks into quests. Accept a quest to start it, complete it to earn its XP reward."),
		server.WithRecovery(),
	)

	targetArgs := []mcp.ToolOption{
		mcp.WithString("id", mcp.Description("Quest id as assigned by the server")),
		mcp.WithNumber("index", mcp.Description("1-based position in list_quests, for quests without an id")),
	}
	withTarget := func(opts ...mcp.ToolOption) []mcp.ToolOption {
		return append(append([]mcp.ToolOption{}, opts...), targetArgs...)
	}

	s.AddTool(
		mcp.NewTool("list_quests",
			mcp.WithDescription("List the user's active quests (pending and in progress) with the current XP total."),
		),
		mcpListQuests(deps),
	)

	s.AddTool(
		mcp.NewTool("show_quest", withTarget(
			mcp.WithDescription("Show one quest as its five-field text plus status and the actions available."),
		)...),
		mcpShowQuest(deps),
	)

	s.AddTool(
		mcp.NewTool("accept_quest", withTarget(
			mcp.WithDescription("Accept a pending quest, moving it to In Progress."),
		)...),
		mcpAcceptQuest(deps),
	)

	s.AddTool(
		mcp.NewTool("give_up_quest", withTarget(
			mcp.WithDescription("Abandon an in-progress quest. The quest is deleted and cannot be recovered."),
			mcp.WithBoolean("confirm", mcp.Description("Must be true to proceed"), mcp.Required()),
		)...),
		mcpGiveUpQuest(deps),
	)

	s.AddTool(
		mcp.NewTool("complete_quest", withTarget(
			mcp.WithDescription("Complete an in-progress quest and collect its XP reward."),
		)...),
		mcpCompleteQuest(deps),
	)

	s.AddTool(
		mcp.NewTool("add_quest",
			mcp.WithDescription("Add a quest from its text block (Title, Backstory, Objective, Reward: N XP, optional Icon)."),
			mcp.WithString("text", mcp.Description("The quest text block"), mcp.Required()),
		),
		mcpAddQuest(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_quest",
			mcp.WithDescription("Turn a plain task into quest text. The result is a draft; pass it to add_quest to keep it."),
			mcp.WithString("task", mcp.Description("The everyday task"), mcp.Required()),
		),
		mcpGenerateQuest(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"lifexp://quests",
			"Active Quests",
			mcp.WithResourceDescription("Active quests as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceQuests(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"lifexp://xp",
			"Experience",
			mcp.WithResourceDescription("Current user and XP total as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceXP(deps),
	)

	return s
}

type questView struct {
	Index     int      `json:"index"`
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Objective string   `json:"objective"`
	Reward    int      `json:"reward"`
	Icon      string   `json:"icon"`
	Status    string   `json:"status"`
	Actions   []string `json:"actions"`
}

func viewOf(i int, q quest.Quest) questView {
	acts := quest.Actions(q.Status)
	names := make([]string, len(acts))
	for j, a := range acts {
		names[j] = string(a)
	}
	return questView{
		Index:     i + 1,
		ID:        q.ID.String(),
		Title:     q.Title,
		Objective: q.Objective,
		Reward:    q.Reward,
		Icon:      q.DisplayIcon(),
		Status:    string(q.Status),
		Actions:   names,
	}
}

type listView struct {
	TotalXP int         `json:"totalXP"`
	Quests  []questView `json:"quests"`
}

func listing(st session.State) listView {
	out := listView{TotalXP: st.TotalXP, Quests: make([]questView, len(st.Quests))}
	for i, q := range st.Quests {
		out.Quests[i] = viewOf(i, q)
	}
	return out
}

func mcpListQuests(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := deps.Quests.Refresh(ctx); err != nil {
			return mcpError(fmt.Sprintf("listing quests failed: %v", err)), nil
		}
		b, err := json.Marshal(listing(deps.Quests.Snapshot()))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal quests: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

// target resolves the quest a tool call names, by id or by 1-based index,
// and returns it with its position in the snapshot it was read from.
func target(deps MCPDeps, req mcp.CallToolRequest) (quest.Quest, int, error) {
	st := deps.Quests.Snapshot()
	if id := strings.TrimSpace(req.GetString("id", "")); id != "" {
		for i, q := range st.Quests {
			if q.ID == quest.ID(id) {
				return q, i, nil
			}
		}
		return quest.Quest{}, 0, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	idx := req.GetInt("index", 0)
	if idx <= 0 {
		return quest.Quest{}, 0, errors.New("id or index is required")
	}
	if idx > len(st.Quests) {
		return quest.Quest{}, 0, fmt.Errorf("%w: index %d out of range", session.ErrNoSelection, idx)
	}
	return st.Quests[idx-1], idx - 1, nil
}

func mcpShowQuest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, _, err := target(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		var acts []string
		for _, a := range quest.Actions(q.Status) {
			acts = append(acts, string(a))
		}
		text := fmt.Sprintf("%s\nStatus: %s\nActions: %s", quest.Text(q), q.Status, strings.Join(acts, ", "))
		return mcpText(text), nil
	}
}

func mcpAcceptQuest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, i, err := target(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		err = deps.Quests.Apply(ctx, i, q, quest.ActionAccept, nil)
		if backendFailure(err) {
			// The quest list is untouched when the backend says no.
			return mcpText(fmt.Sprintf("Could not accept %q; nothing changed (%v).", q.Title, err)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("accept failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Accepted %q. It is now %s.", q.Title, quest.StatusInProgress)), nil
	}
}

func backendFailure(err error) bool {
	return backend.IsRejected(err) ||
		errors.Is(err, backend.ErrTransport) ||
		errors.Is(err, backend.ErrMalformedResponse)
}

func mcpGiveUpQuest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		confirmed := req.GetBool("confirm", false)
		q, i, err := target(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		confirm := func(quest.Quest) bool { return confirmed }
		err = deps.Quests.Apply(ctx, i, q, quest.ActionGiveUp, confirm)
		if errors.Is(err, session.ErrCancelled) {
			return mcpError("giving up deletes the quest; call again with confirm=true"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("give up failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Gave up %q.", q.Title)), nil
	}
}

func mcpCompleteQuest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, i, err := target(deps, req)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		err = deps.Quests.Apply(ctx, i, q, quest.ActionComplete, nil)
		if err != nil {
			return mcpError(fmt.Sprintf("complete failed: %v", err)), nil
		}
		st := deps.Quests.Snapshot()
		return mcpText(fmt.Sprintf("Completed %q: +%d XP (total %d).", q.Title, q.Reward, st.TotalXP)), nil
	}
}

func mcpAddQuest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		q, err := deps.Quests.AddQuest(ctx, text)
		if err != nil {
			return mcpError(fmt.Sprintf("quest not added: %v", err)), nil
		}
		if q.Persisted() {
			return mcpText(fmt.Sprintf("Added %q with id %s.", q.Title, q.ID)), nil
		}
		return mcpText(fmt.Sprintf("Added %q.", q.Title)), nil
	}
}

func mcpGenerateQuest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task := req.GetString("task", "")
		text, err := deps.Quests.Generate(ctx, task)
		if text == "" && err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("%s\n\nThe generated text is incomplete (%v); fix it before adding.", text, err)), nil
		}
		return mcpText(text), nil
	}
}

func mcpResourceQuests(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if err := deps.Quests.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("failed to list quests: %w", err)
		}
		b, err := json.Marshal(listing(deps.Quests.Snapshot()).Quests)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal quests: %w", err)
		}
		return jsonResource(req.Params.URI, b), nil
	}
}

func mcpResourceXP(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		st := deps.Quests.Snapshot()
		out := struct {
			Username string `json:"username,omitempty"`
			TotalXP  int    `json:"totalXP"`
		}{TotalXP: st.TotalXP}
		if st.User != nil {
			out.Username = st.User.Username
		}
		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal xp: %w", err)
		}
		return jsonResource(req.Params.URI, b), nil
	}
}

func jsonResource(uri string, b []byte) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
