// Package mcp exposes the FileStation client as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"synolink/internal/logging"
	"synolink/internal/metrics"
	"synolink/internal/protocol"
	"synolink/internal/synology"
)

// FileStation is the remote API surface driven by the tools.
type FileStation interface {
	Login(ctx context.Context, username, password string) bool
	Logout(ctx context.Context) bool
	ListFiles(ctx context.Context, folderPath string) (*synology.ListResponse, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, folderPath, fileName string, content []byte) (bool, error)
	CreateFolder(ctx context.Context, parentPath, name string) (bool, error)
	DeleteItem(ctx context.Context, path string) (bool, error)
	MoveItem(ctx context.Context, source, destination string) (bool, error)
	GetFileInfo(ctx context.Context, path string) (json.RawMessage, error)
	SearchFiles(ctx context.Context, folderPath, pattern string) ([]json.RawMessage, error)
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(l)
	}
}

func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = rec
	}
}

// WithRemoteLabel sets the host:port reported at startup.
func WithRemoteLabel(label string) Option {
	return func(s *Server) {
		s.remote = label
	}
}

// Server owns the tool catalog and its mcp-go binding.
type Server struct {
	client  FileStation
	tools   map[string]toolDefinition
	logger  *zap.Logger
	metrics *metrics.Recorder
	remote  string

	mcpServer *server.MCPServer
}

// NewServer builds the catalog around client and registers it with an
// mcp-go server.
func NewServer(client FileStation, opts ...Option) (*Server, error) {
	if client == nil {
		return nil, errors.New("mcp: nil FileStation client")
	}
	s := &Server{
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tools = s.buildToolRegistry()

	srv := server.NewMCPServer(
		protocol.ServerName,
		protocol.ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, def := range s.catalog() {
		schema, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcp: encode %s schema: %w", def.Name, err)
		}
		srv.AddTool(mcpgo.NewToolWithRawSchema(def.Name, def.Description, schema), s.bind(def.Name))
	}
	s.mcpServer = srv
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) bind(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return toMCPResult(s.callTool(ctx, name, req.GetArguments())), nil
	}
}

func toMCPResult(res toolCallResult) *mcpgo.CallToolResult {
	out := &mcpgo.CallToolResult{
		Content:           make([]mcpgo.Content, 0, len(res.Content)),
		StructuredContent: res.StructuredContent,
		IsError:           res.IsError,
	}
	for _, item := range res.Content {
		out.Content = append(out.Content, mcpgo.NewTextContent(item.Text))
	}
	return out
}

// ServeStdio speaks MCP on in/out until ctx is cancelled or in is closed.
// Diagnostics go to the logger, never to out.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("SynoLink MCP server running on stdio")
	s.logger.Info("Synology server: " + s.remote)

	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
