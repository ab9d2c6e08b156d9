// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes process reference and metadata tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jacksnnn/fabublox-process-selector/internal/proxy"
	"github.com/jacksnnn/fabublox-process-selector/internal/reference"
	"github.com/jacksnnn/fabublox-process-selector/internal/session"
)

// Server wraps the MCP server with process selector tools.
type Server struct {
	mcp      *server.MCPServer
	proxy    *proxy.Service
	sessions session.Provider
}

// New creates a new MCP server with all tools registered. Tools that
// reach the upstream service authenticate with a session_id argument,
// the same session the HTTP surface uses.
func New(proxySvc *proxy.Service, sessions session.Provider) *Server {
	s := &Server{proxy: proxySvc, sessions: sessions}

	s.mcp = server.NewMCPServer(
		"ProcessSelector",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("normalize_reference",
		mcp.WithDescription("Normalize raw text (a bare identifier or a pasted URL) into a canonical process reference."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Raw reference text")),
	), s.normalizeReference)

	s.mcp.AddTool(mcp.NewTool("get_process",
		mcp.WithDescription("Fetch metadata for one process through the secure proxy."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Authenticated session ID")),
		mcp.WithString("process_id", mcp.Required(), mcp.Description("Canonical process identifier")),
	), s.getProcess)

	s.mcp.AddTool(mcp.NewTool("list_user_processes",
		mcp.WithDescription("List the session user's processes, most recently updated first."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Authenticated session ID")),
	), s.listUserProcesses)

	s.mcp.AddTool(mcp.NewTool("get_process_svg",
		mcp.WithDescription("Fetch the rendered preview for a process through the secure proxy."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Authenticated session ID")),
		mcp.WithString("process_id", mcp.Required(), mcp.Description("Canonical process identifier")),
	), s.getProcessSVG)

	// Resource: reference grammar contract.
	s.mcp.AddResource(
		mcp.NewResource("selector://reference-format", "Process Reference Format",
			mcp.WithResourceDescription("The canonical process reference grammar and normalization rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReferenceFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) normalizeReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := req.RequireString("input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref := reference.Normalize(input)
	out, _ := json.MarshalIndent(map[string]any{
		"canonical_id": ref.CanonicalID,
		"source_kind":  ref.Kind,
		"editor_url":   reference.EditorURL(ref.CanonicalID),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, id, errResult := s.authWithProcessID(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	md, err := s.proxy.ProcessByID(ctx, sess, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if md == nil {
		return mcp.NewToolResultText("process not found"), nil
	}
	out, _ := json.MarshalIndent(md, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listUserProcesses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := s.authenticate(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	procs, err := s.proxy.UserProcesses(ctx, sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(procs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProcessSVG(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, id, errResult := s.authWithProcessID(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	svg, err := s.proxy.ProcessSVG(ctx, sess, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(svg), nil
}

func (s *Server) authenticate(ctx context.Context, req mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	sess, err := s.sessions.SessionByID(ctx, sessionID)
	if err != nil || !sess.Authenticated() {
		return nil, mcp.NewToolResultError("authorization required")
	}
	return sess, nil
}

func (s *Server) authWithProcessID(ctx context.Context, req mcp.CallToolRequest) (*session.Session, string, *mcp.CallToolResult) {
	sess, errResult := s.authenticate(ctx, req)
	if errResult != nil {
		return nil, "", errResult
	}
	raw, err := req.RequireString("process_id")
	if err != nil {
		return nil, "", mcp.NewToolResultError(err.Error())
	}
	ref := reference.Normalize(raw)
	if !ref.Valid() {
		return nil, "", mcp.NewToolResultError(fmt.Sprintf("invalid process reference: %s", raw))
	}
	return sess, ref.CanonicalID, nil
}

func (s *Server) readReferenceFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "selector://reference-format",
			MIMEType: "text/markdown",
			Text:     ReferenceFormatContract,
		},
	}, nil
}
