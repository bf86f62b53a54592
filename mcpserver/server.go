// Package mcpserver serves the visitor tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/tools"
)

// Implementation name advertised to clients
const Name = "visitor"

// Server wraps an MCP server exposing visit_website and view_images
type Server struct {
	server *mcp.Server
	tools  *tools.Toolbox
	logger *slog.Logger
}

// New registers both tools on a fresh MCP server
func New(box *tools.Toolbox, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    Name,
			Version: version,
		}, nil),
		tools:  box,
		logger: logger,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        tools.VisitWebsiteName,
		Description: tools.VisitWebsiteDescription,
	}, s.visitWebsite)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        tools.ViewImagesName,
		Description: tools.ViewImagesDescription,
	}, s.viewImages)

	return s
}

// MCP returns the underlying server, e.g. to connect a custom transport
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until the client disconnects or ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func (s *Server) visitWebsite(ctx context.Context, req *mcp.CallToolRequest, args tools.VisitArgs) (*mcp.CallToolResult, any, error) {
	reply := s.tools.VisitWebsite(ctx, args, s.notifier(ctx, req))
	return toResult(reply), nil, nil
}

func (s *Server) viewImages(ctx context.Context, req *mcp.CallToolRequest, args tools.ViewImagesArgs) (*mcp.CallToolResult, any, error) {
	reply := s.tools.ViewImages(ctx, args, s.notifier(ctx, req))
	return toResult(reply), nil, nil
}

// notifier logs every status and warning and forwards them to the client as log messages
func (s *Server) notifier(ctx context.Context, req *mcp.CallToolRequest) visitor.Notifier {
	return &sessionNotifier{
		ctx:    ctx,
		req:    req,
		logger: s.logger,
	}
}

func toResult(reply tools.Reply) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: reply.Text()}},
		IsError: !reply.OK(),
	}
}

type sessionNotifier struct {
	ctx    context.Context
	req    *mcp.CallToolRequest
	logger *slog.Logger
}

func (n *sessionNotifier) Status(message string) {
	n.logger.Info(message)
	n.send(mcp.LoggingLevel("info"), message)
}

func (n *sessionNotifier) Warn(message string) {
	n.logger.Warn(message)
	n.send(mcp.LoggingLevel("warning"), message)
}

func (n *sessionNotifier) send(level mcp.LoggingLevel, message string) {
	if n.req == nil || n.req.Session == nil {
		return
	}
	// Clients that never set a log level receive nothing; errors are not actionable here
	_ = n.req.Session.Log(n.ctx, &mcp.LoggingMessageParams{
		Level:  level,
		Logger: Name,
		Data:   message,
	})
}
