package mcp

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nexusflow/taxassist/internal/agent"
	"github.com/nexusflow/taxassist/internal/db"
	"github.com/nexusflow/taxassist/internal/llm"
	"github.com/nexusflow/taxassist/internal/memory"
	"github.com/nexusflow/taxassist/internal/retrieval"
	"github.com/nexusflow/taxassist/internal/vectordb"
)

type stubEmbedder struct {
	dims int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, s.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%s.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		results[i] = vec
	}
	return results, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }
func (s *stubEmbedder) Name() string    { return "stub" }

type cannedProvider struct {
	content string
}

func (p *cannedProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: p.content}, nil
}

func (p *cannedProvider) Name() string { return "canned" }

func newTestServer(t *testing.T) (*Server, *vectordb.UserStore) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := vectordb.NewUserStore(t.TempDir(), &stubEmbedder{dims: 64})
	mem := memory.NewStore(database, false)
	retriever := retrieval.NewRetriever(store, retrieval.DefaultTopK)
	engine := agent.NewEngine(mem, retriever, &cannedProvider{content: "canned answer"}, "test-model")

	return NewServer(store, engine), store
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"store_document", storeDocumentTool, "store_document"},
		{"search_documents", searchDocumentsTool, "search_documents"},
		{"get_user_info", getUserInfoTool, "get_user_info"},
		{"ask_assistant", askAssistantTool, "ask_assistant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv, store := newTestServer(t)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
	if srv.store != store {
		t.Error("store not set correctly")
	}
}

func TestHandleStoreAndSearchDocuments(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	t.Run("store", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user_id": "U1",
			"content": "Passport number A1234567",
			"source":  "passport",
		}

		result, err := srv.handleStoreDocument(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("search finds stored document", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user_id": "U1",
			"query":   "passport number",
		}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		if !strings.Contains(text, "Passport number A1234567") {
			t.Errorf("search result missing content:\n%s", text)
		}
	})

	t.Run("missing user_id", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"content": "text"}

		result, err := srv.handleStoreDocument(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing user_id")
		}
	})

	t.Run("search for unknown user is not an error", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"user_id": "ghost",
			"query":   "anything",
		}

		result, err := srv.handleSearchDocuments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("no-index search should degrade to text, not a tool error")
		}
		if !strings.Contains(resultText(t, result), "No documents found for user ghost") {
			t.Errorf("unexpected text: %s", resultText(t, result))
		}
	})
}

func TestHandleGetUserInfo(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	if _, err := store.Store(ctx, "U1", "Passport number A1234567", "passport", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"user_id": "U1"}

	result, err := srv.handleGetUserInfo(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "1 document(s)") || !strings.Contains(text, "passport: 1") {
		t.Errorf("unexpected stats text:\n%s", text)
	}

	req.Params.Arguments = map[string]any{"user_id": "ghost"}
	result, err = srv.handleGetUserInfo(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for unknown user")
	}
}

func TestHandleAskAssistant(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"user_id": "U1",
		"query":   "What is my passport number?",
	}

	result, err := srv.handleAskAssistant(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	if got := resultText(t, result); got != "canned answer" {
		t.Errorf("answer = %q", got)
	}

	req.Params.Arguments = map[string]any{"user_id": "U1", "query": ""}
	result, err = srv.handleAskAssistant(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for empty query")
	}
}

// resultText extracts the first text content block from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}
