package toolserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/tools"
)

func connect(t *testing.T, registry *tools.Registry) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := NewServer(registry).Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("connect server: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })
	return clientSession
}

func newRegistry() (*tools.Registry, *session.Game) {
	sessions := session.NewManager(0)
	g := sessions.Create("player-1")
	eng := engine.New(engine.KeywordAnalyzer{}, engine.ScriptedNarrator{})
	return tools.NewRegistry(eng, sessions, nil, tools.CapabilityGame), g
}

func TestListTools(t *testing.T) {
	registry, _ := newRegistry()
	cs := connect(t, registry)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(res.Tools) != len(registry.Tools()) {
		t.Fatalf("Expected %d tools, got %d", len(registry.Tools()), len(res.Tools))
	}
	for _, tool := range res.Tools {
		if tool.Name == string(tools.RecallPlayerMemory) {
			t.Error("Expected memory tools hidden without the memory capability")
		}
	}
}

func TestCallTool(t *testing.T) {
	registry, g := newRegistry()
	cs := connect(t, registry)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      string(tools.CheckRoomProgress),
		Arguments: map[string]any{"session_id": g.ID},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.IsError {
		t.Fatalf("Expected success, got %+v", res.Content)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", res.Content[0])
	}
	if !strings.Contains(text.Text, "The Awakening Chamber") {
		t.Errorf("Expected room name in result, got %s", text.Text)
	}
}

func TestCallToolError(t *testing.T) {
	registry, _ := newRegistry()
	cs := connect(t, registry)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      string(tools.CheckRoomProgress),
		Arguments: map[string]any{"session_id": "missing"},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if !res.IsError {
		t.Error("Expected tool error for unknown session")
	}
}

func TestRunUnsupportedTransport(t *testing.T) {
	registry, _ := newRegistry()
	err := Run(context.Background(), registry, "websocket", "")
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Errorf("Expected unsupported transport error, got %v", err)
	}
}

func TestRunHTTPStopsOnCancel(t *testing.T) {
	registry, _ := newRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, registry, TransportHTTP, "127.0.0.1:0")
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
