package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
)

const (
	serverName    = "notion-chakra-mcp"
	serverVersion = "1.0.0"
)

type ToolAdapter interface {
	ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Server owns the MCP server and the transport serving it. Handler is nil for
// the stdio transport.
type Server struct {
	MCP     *server.MCPServer
	Handler http.Handler

	transport  string
	sse        *server.SSEServer
	streamable *server.StreamableHTTPServer
	log        logging.Logger
}

func New(cfg Config) (*Server, error) {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
	)

	definitions := toolDefinitions()
	names := make([]string, 0, len(cfg.ToolAdapters))
	for name := range cfg.ToolAdapters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tool, ok := definitions[name]
		if !ok {
			return nil, fmt.Errorf("no tool definition for %q", name)
		}
		adapter := cfg.ToolAdapters[name]
		mcpServer.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return adapter.ToolAdapter(ctx, req)
		})
	}

	s := &Server{
		MCP:       mcpServer,
		transport: cfg.Transport,
		log:       cfg.Logger.WithName("mcp"),
	}

	mux := http.NewServeMux()
	switch cfg.Transport {
	case config.TransportStdio:
		// served by ServeStdio
	case config.TransportSSE:
		s.sse = server.NewSSEServer(mcpServer, cfg.SSEOptions...)
		mux.Handle("/", s.sse)
	case config.TransportHTTP:
		endpoint := cfg.HTTPEndpoint
		if endpoint == "" {
			endpoint = DefaultHTTPEndpoint
		}
		s.streamable = server.NewStreamableHTTPServer(mcpServer, cfg.HTTPOptions...)
		mux.Handle(endpoint, s.streamable)
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
	}

	if cfg.Transport != config.TransportStdio {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "ok")
		})
		if cfg.Metrics != nil {
			mux.Handle("/metrics", cfg.Metrics)
		}
		s.Handler = mux
	}

	s.log.Info("registered tools", "count", len(names), "transport", cfg.Transport)
	return s, nil
}

// ServeStdio serves JSON-RPC over in and out until ctx is done or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	if s.transport != config.TransportStdio {
		return fmt.Errorf("server was built for the %s transport", s.transport)
	}
	err := server.NewStdioServer(s.MCP).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Shutdown ends open SSE streams and streamable HTTP sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	switch {
	case s.sse != nil:
		return s.sse.Shutdown(ctx)
	case s.streamable != nil:
		return s.streamable.Shutdown(ctx)
	}
	return nil
}
