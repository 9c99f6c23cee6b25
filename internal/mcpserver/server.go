// Package mcpserver exposes the orientation history as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/orient/internal/db"
	"github.com/jwulff/orient/internal/export"
)

// Server wraps an MCP server bound to a store.
type Server struct {
	store     *db.Store
	exportDir string
	mcp       *server.MCPServer
}

// New registers the orient tools. exportDir is used when export_history is
// called without a dir argument.
func New(store *db.Store, exportDir, version string) *Server {
	s := &Server{
		store:     store,
		exportDir: exportDir,
		mcp:       server.NewMCPServer("orient", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Stored accelerometer readings (x, y, z in m/s²) in insertion order."),
		mcp.WithNumber("limit", mcp.Description("Return only the newest N readings, still oldest first.")),
	), s.handleGetHistory)

	s.mcp.AddTool(mcp.NewTool("get_latest",
		mcp.WithDescription("The most recently stored accelerometer reading."),
	), s.handleGetLatest)

	s.mcp.AddTool(mcp.NewTool("count_readings",
		mcp.WithDescription("Number of stored accelerometer readings."),
	), s.handleCountReadings)

	s.mcp.AddTool(mcp.NewTool("export_history",
		mcp.WithDescription("Write the full history to "+export.FileName+" as one x,y,z line per reading."),
		mcp.WithString("dir", mcp.Description("Destination directory. Defaults to the configured export directory.")),
	), s.handleExportHistory)

	return s
}

// Serve speaks MCP over in and out until ctx is done or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	slog.Info("mcp server starting", "tools", 4)
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleGetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}

	var (
		readings []db.Reading
		err      error
	)
	if limit > 0 {
		readings, err = s.store.Tail(ctx, limit)
	} else {
		readings, err = s.store.All(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query history: %v", err)), nil
	}
	return jsonResult(readings)
}

func (s *Server) handleGetLatest(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, ok, err := s.store.Latest(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query latest: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultText("no readings stored"), nil
	}
	return jsonResult(r)
}

func (s *Server) handleCountReadings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("count readings: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d", n)), nil
}

func (s *Server) handleExportHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := req.GetString("dir", s.exportDir)
	path, rows, err := export.Snapshot(ctx, s.store, dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("wrote %d readings to %s", rows, path)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
