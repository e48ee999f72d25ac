package agent

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

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

// scriptedProvider replays a fixed sequence of completion responses and
// records every request it receives.
type scriptedProvider struct {
	responses []llm.CompletionResponse
	requests  []llm.CompletionRequest
	err       error
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.requests) > len(p.responses) {
		return &llm.CompletionResponse{Content: "out of script"}, nil
	}
	resp := p.responses[len(p.requests)-1]
	return &resp, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func newTestEngine(t *testing.T, provider llm.Provider) (*Engine, *vectordb.UserStore) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := vectordb.NewUserStore(t.TempDir(), &stubEmbedder{dims: 64})
	mem := memory.NewStore(database, false)
	retriever := retrieval.NewRetriever(store, retrieval.DefaultTopK)
	return NewEngine(mem, retriever, provider, "test-model"), store
}

func TestAsk_ValidationBeforeAnyCall(t *testing.T) {
	provider := &scriptedProvider{}
	engine, _ := newTestEngine(t, provider)

	if _, err := engine.Ask(context.Background(), "", "U1"); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("empty query: expected ErrEmptyQuery, got %v", err)
	}
	if _, err := engine.Ask(context.Background(), "   ", "U1"); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("blank query: expected ErrEmptyQuery, got %v", err)
	}
	if _, err := engine.Ask(context.Background(), "hello", ""); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("empty user: expected ErrEmptyUserID, got %v", err)
	}
	if len(provider.requests) != 0 {
		t.Errorf("validation failures must not reach the provider, got %d calls", len(provider.requests))
	}
}

func TestAsk_DirectAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{Content: "Hello! Which document would you like to discuss?"},
	}}
	engine, _ := newTestEngine(t, provider)

	answer, err := engine.Ask(context.Background(), "Hi there", "U1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Hello! Which document would you like to discuss?" {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.requests))
	}

	req := provider.requests[0]
	if req.Messages[0].Role != llm.RoleSystem {
		t.Error("first message must be the system prompt")
	}
	last := req.Messages[len(req.Messages)-1]
	want := "User 'U1' is asking: Hi there. Please retrieve and analyze their relevant documents."
	if last.Content != want {
		t.Errorf("enhanced query = %q, want %q", last.Content, want)
	}
	if len(req.Tools) != 1 || req.Tools[0].Name != "retrieve_context" {
		t.Errorf("expected retrieve_context tool on offer, got %+v", req.Tools)
	}
}

func TestAsk_ToolCallRoundTrip(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      "retrieve_context",
			Arguments: `{"query": "passport number"}`,
		}}},
		{Content: "Your passport number is A1234567."},
	}}
	engine, store := newTestEngine(t, provider)

	ctx := context.Background()
	if _, err := store.Store(ctx, "U1", "Passport number A1234567", "passport", "passport.txt"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	answer, err := engine.Ask(ctx, "What is my passport number?", "U1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Your passport number is A1234567." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if len(provider.requests) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(provider.requests))
	}

	// The second request must carry the assistant's tool call followed by the
	// tool result containing the retrieved document.
	second := provider.requests[1].Messages
	assistantMsg := second[len(second)-2]
	toolMsg := second[len(second)-1]
	if assistantMsg.Role != llm.RoleAssistant || len(assistantMsg.ToolCalls) != 1 {
		t.Errorf("expected assistant tool-call message, got %+v", assistantMsg)
	}
	if toolMsg.Role != llm.RoleTool || toolMsg.ToolCallID != "call_1" {
		t.Errorf("expected tool result for call_1, got %+v", toolMsg)
	}
	if !strings.Contains(toolMsg.Content, "Passport number A1234567") {
		t.Errorf("tool result missing retrieved content:\n%s", toolMsg.Content)
	}
}

func TestAsk_NoDocumentsSoftFails(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      "retrieve_context",
			Arguments: `{"query": "passport"}`,
		}}},
		{Content: "I don't have your passport on file. Could you tell me the number?"},
	}}
	engine, _ := newTestEngine(t, provider)

	answer, err := engine.Ask(context.Background(), "What is my passport number?", "U1")
	if err != nil {
		t.Fatalf("a user with no documents must not fail the turn: %v", err)
	}
	if answer == "" {
		t.Fatal("expected an answer")
	}

	toolMsgs := provider.requests[1].Messages
	toolMsg := toolMsgs[len(toolMsgs)-1]
	if !strings.Contains(toolMsg.Content, "No documents found for user U1") {
		t.Errorf("expected no-documents tool result, got:\n%s", toolMsg.Content)
	}
}

func TestAsk_CrossUserNoLeak(t *testing.T) {
	script := func() *scriptedProvider {
		return &scriptedProvider{responses: []llm.CompletionResponse{
			{ToolCalls: []llm.ToolCall{{
				ID:        "call_1",
				Name:      "retrieve_context",
				Arguments: `{"query": "passport number"}`,
			}}},
			{Content: "done"},
		}}
	}

	providerU1 := script()
	engine, store := newTestEngine(t, providerU1)

	ctx := context.Background()
	if _, err := store.Store(ctx, "U1", "Passport number A1234567", "passport", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, err := engine.Ask(ctx, "What is my passport number?", "U1"); err != nil {
		t.Fatalf("Ask U1: %v", err)
	}
	u1Tool := providerU1.requests[1].Messages
	if !strings.Contains(u1Tool[len(u1Tool)-1].Content, "A1234567") {
		t.Error("U1's own retrieval should surface the passport")
	}

	providerU2 := script()
	engine2 := NewEngine(engine.memory, engine.retriever, providerU2, "test-model")
	if _, err := engine2.Ask(ctx, "What is my passport number?", "U2"); err != nil {
		t.Fatalf("Ask U2: %v", err)
	}
	u2Tool := providerU2.requests[1].Messages
	if strings.Contains(u2Tool[len(u2Tool)-1].Content, "A1234567") {
		t.Error("U2's retrieval leaked U1's passport number")
	}
}

func TestAsk_RoundCapForcesFinalAnswer(t *testing.T) {
	toolCall := llm.CompletionResponse{ToolCalls: []llm.ToolCall{{
		ID:        "call_loop",
		Name:      "retrieve_context",
		Arguments: `{"query": "more"}`,
	}}}
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		toolCall, toolCall, toolCall,
		{Content: "Best effort answer."},
	}}
	engine, _ := newTestEngine(t, provider)
	engine.SetMaxToolRounds(3)

	answer, err := engine.Ask(context.Background(), "keep digging", "U1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Best effort answer." {
		t.Errorf("unexpected answer: %q", answer)
	}
	// 3 capped rounds plus one forced completion without tools.
	if len(provider.requests) != 4 {
		t.Fatalf("expected 4 provider calls, got %d", len(provider.requests))
	}
	if len(provider.requests[3].Tools) != 0 {
		t.Error("forced final completion must not offer tools")
	}
}

func TestAsk_BlankAnswerFallsBack(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{Content: "   "},
	}}
	engine, _ := newTestEngine(t, provider)

	answer, err := engine.Ask(context.Background(), "hello", "U1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != fallbackAnswer {
		t.Errorf("expected fallback answer, got %q", answer)
	}
}

func TestAsk_ProviderErrorPropagates(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("upstream 500")}
	engine, _ := newTestEngine(t, provider)

	if _, err := engine.Ask(context.Background(), "hello", "U1"); err == nil {
		t.Fatal("expected generation error to propagate")
	}

	// A failed turn must not be persisted.
	history, err := engine.History(context.Background(), "U1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("failed turn leaked %d messages into history", len(history))
	}
}

func TestAsk_PersistsRawTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      "retrieve_context",
			Arguments: `{"query": "passport"}`,
		}}},
		{Content: "Your passport number is A1234567."},
	}}
	engine, store := newTestEngine(t, provider)

	ctx := context.Background()
	if _, err := store.Store(ctx, "U1", "Passport number A1234567", "passport", ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := engine.Ask(ctx, "What is my passport number?", "U1"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	history, err := engine.History(ctx, "U1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(history))
	}
	// Raw query, not the enhanced form; no tool messages.
	if history[0].Role != "user" || history[0].Content != "What is my passport number?" {
		t.Errorf("unexpected user message: %+v", history[0])
	}
	if history[1].Role != "assistant" || history[1].Content != "Your passport number is A1234567." {
		t.Errorf("unexpected assistant message: %+v", history[1])
	}
}

func TestAsk_HistoryFeedsNextTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{Content: "Noted, your name is Maria."},
		{Content: "Your name is Maria."},
	}}
	engine, _ := newTestEngine(t, provider)

	ctx := context.Background()
	if _, err := engine.Ask(ctx, "My name is Maria", "U1"); err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if _, err := engine.Ask(ctx, "What is my name?", "U1"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	second := provider.requests[1].Messages
	var found bool
	for _, m := range second {
		if m.Role == llm.RoleUser && m.Content == "My name is Maria" {
			found = true
		}
	}
	if !found {
		t.Error("second turn did not include first turn's raw user message")
	}
}

func TestAsk_UnknownToolRecovers(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.CompletionResponse{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "delete_everything", Arguments: `{}`}}},
		{Content: "Let me try that differently."},
	}}
	engine, _ := newTestEngine(t, provider)

	answer, err := engine.Ask(context.Background(), "hello", "U1")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Let me try that differently." {
		t.Errorf("unexpected answer: %q", answer)
	}

	msgs := provider.requests[1].Messages
	toolMsg := msgs[len(msgs)-1]
	if !strings.Contains(toolMsg.Content, `Unknown tool "delete_everything"`) {
		t.Errorf("expected unknown-tool recovery message, got %q", toolMsg.Content)
	}
}

func TestParseRetrieveArgs(t *testing.T) {
	if got := parseRetrieveArgs(`{"query": "passport number"}`, "fallback"); got != "passport number" {
		t.Errorf("parseRetrieveArgs = %q, want passport number", got)
	}
	if got := parseRetrieveArgs(`not json`, "fallback"); got != "fallback" {
		t.Errorf("malformed args should fall back to the raw query, got %q", got)
	}
	if got := parseRetrieveArgs(`{"query": ""}`, "fallback"); got != "fallback" {
		t.Errorf("empty query arg should fall back, got %q", got)
	}
}
