// Package toolserver serves the game tools over the Model Context Protocol.
package toolserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tatianab/echo-rooms/internal/tools"
)

const (
	serverName    = "echo-rooms"
	serverVersion = "0.1.0"

	TransportStdio = "stdio"
	TransportHTTP  = "http"

	shutdownTimeout = 10 * time.Second
)

// NewServer returns an MCP server exposing every tool in registry.
func NewServer(registry *tools.Registry) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	for _, spec := range registry.Tools() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        string(spec.Name),
			Description: spec.Description,
		}, handlerFor(registry, spec.Name))
	}
	return server
}

func handlerFor(registry *tools.Registry, name tools.Name) mcp.ToolHandlerFor[tools.Args, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args tools.Args) (*mcp.CallToolResult, any, error) {
		out, err := registry.Call(ctx, string(name), args)
		if err != nil {
			log.Printf("[mcp] %s failed: %v", name, err)
			return nil, nil, err
		}
		return nil, out, nil
	}
}

// Run serves registry over transport ("stdio" or "http") until ctx is done.
// addr is only used for http.
func Run(ctx context.Context, registry *tools.Registry, transport, addr string) error {
	server := NewServer(registry)
	switch transport {
	case "", TransportStdio:
		log.Printf("[mcp] serving %d tools over stdio", len(registry.Tools()))
		return serve(ctx, server, &mcp.StdioTransport{})
	case TransportHTTP:
		return serveHTTP(ctx, server, addr)
	default:
		return fmt.Errorf("transport %q not supported", transport)
	}
}

func serve(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	err := server.Run(ctx, transport)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/mcp/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	httpServer := &http.Server{Handler: mux}
	log.Printf("[mcp] serving over http on %s/mcp", listener.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("[mcp] shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("http server error: %w", err)
	}
}
