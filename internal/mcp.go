package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App) *MCPServer {
	mcpServer := server.NewMCPServer(
		"scriptforge-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all known projects with their topic and video count."),
	), s.handleListProjects)

	s.mcpServer.AddTool(mcp.NewTool("pipeline_status",
		mcp.WithDescription("Report per-stage pipeline status for a project: how many items each stage has done and how many are still pending."),
		mcp.WithString("project",
			mcp.Description("Project name"),
			mcp.Required(),
		),
	), s.handlePipelineStatus)

	s.mcpServer.AddTool(mcp.NewTool("run_stage",
		mcp.WithDescription("Run one pipeline stage for a project. Stages: transcripts, topics, summaries, clusters, analysis, script. Stages are idempotent; already-processed items are skipped."),
		mcp.WithString("project",
			mcp.Description("Project name"),
			mcp.Required(),
		),
		mcp.WithString("stage",
			mcp.Description("Stage name"),
			mcp.Required(),
		),
	), s.handleRunStage)

	s.mcpServer.AddTool(mcp.NewTool("get_script",
		mcp.WithDescription("Return the latest synthesized script for a project as Markdown."),
		mcp.WithString("project",
			mcp.Description("Project name"),
			mcp.Required(),
		),
	), s.handleGetScript)
}

// handleListProjects implements the list_projects tool
func (s *MCPServer) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	MCPLogInfo("list_projects")

	store, err := s.app.Store()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("database error", err), nil
	}
	projects, err := store.Projects()
	if err != nil {
		return mcp.NewToolResultErrorFromErr("listing projects", err), nil
	}

	var buf strings.Builder
	for _, p := range projects {
		videos, err := store.VideosByProject(p.ID)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("listing videos", err), nil
		}
		buf.WriteString(fmt.Sprintf("%s (topic: %s, videos: %d)\n", p.Name, p.Topic, len(videos)))
	}
	if buf.Len() == 0 {
		buf.WriteString("No projects found.\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

// handlePipelineStatus implements the pipeline_status tool
func (s *MCPServer) handlePipelineStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("project parameter is required and must be a string"), nil
	}
	MCPLogInfo("pipeline_status project=%s", project)

	statuses, err := s.app.PipelineStatus(ctx, project)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("status error", err), nil
	}

	var buf strings.Builder
	for _, st := range statuses {
		state := "pending"
		if st.IsComplete {
			state = "complete"
		}
		buf.WriteString(fmt.Sprintf("%s: %s (%d done, %d pending of %d)\n",
			st.Stage, state, st.Done, st.Pending, st.Total))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(buf.String())},
	}, nil
}

// handleRunStage implements the run_stage tool
func (s *MCPServer) handleRunStage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("project parameter is required and must be a string"), nil
	}
	stage, err := request.RequireString("stage")
	if err != nil {
		return mcp.NewToolResultError("stage parameter is required and must be a string"), nil
	}
	MCPLogInfo("run_stage project=%s stage=%s", project, stage)

	result, err := s.app.RunStage(ctx, stage, project)
	if err != nil {
		MCPLogError("run_stage failed: %v", err)
		return mcp.NewToolResultErrorFromErr("stage error", err), nil
	}
	if !result.ProjectExists {
		return mcp.NewToolResultError(fmt.Sprintf("project %q does not exist", project)), nil
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding result", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(payload))},
	}, nil
}

// handleGetScript implements the get_script tool
func (s *MCPServer) handleGetScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("project parameter is required and must be a string"), nil
	}
	MCPLogInfo("get_script project=%s", project)

	script, err := s.app.LatestScript(project)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("script error", err), nil
	}
	if script == nil {
		return mcp.NewToolResultError(fmt.Sprintf("project %q has no script yet - run the script stage first", project)), nil
	}

	header := fmt.Sprintf("# %s (v%d, %d words, ~%.0f min)\n\n",
		script.Title, script.Version, script.WordCount, script.EstimatedMinutes())
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(header + script.Content)},
	}, nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
