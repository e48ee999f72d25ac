package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nexusflow/taxassist/internal/llm"
	"github.com/nexusflow/taxassist/internal/memory"
	"github.com/nexusflow/taxassist/internal/retrieval"
)

// DefaultMaxToolRounds bounds the number of tool-call round-trips per turn.
// The loop forces a final answer once the cap is hit rather than spinning on
// a model that keeps requesting retrievals.
const DefaultMaxToolRounds = 5

// Validation errors, rejected before any storage or capability call.
var (
	ErrEmptyQuery  = errors.New("query must not be empty")
	ErrEmptyUserID = errors.New("user id must not be empty")
)

// fallbackAnswer is returned when the model produces no content at all.
const fallbackAnswer = "I apologize, but I couldn't generate a response. Please try again."

// Engine orchestrates one conversational turn: it reads the user's thread,
// lets the model decide between answering directly and calling the retrieval
// tool, executes tool calls synchronously, and appends the outcome to the
// thread. All dependencies are injected; the engine holds no global state.
type Engine struct {
	memory        *memory.Store
	retriever     *retrieval.Retriever
	provider      llm.Provider
	model         string
	systemPrompt  string
	maxToolRounds int
}

// NewEngine creates a conversational engine with default policy settings.
func NewEngine(mem *memory.Store, retriever *retrieval.Retriever, provider llm.Provider, model string) *Engine {
	return &Engine{
		memory:        mem,
		retriever:     retriever,
		provider:      provider,
		model:         model,
		systemPrompt:  SystemPrompt,
		maxToolRounds: DefaultMaxToolRounds,
	}
}

// SetSystemPrompt overrides the default behavioral policy.
func (e *Engine) SetSystemPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		e.systemPrompt = prompt
	}
}

// SetMaxToolRounds overrides the tool round-trip cap.
func (e *Engine) SetMaxToolRounds(n int) {
	if n > 0 {
		e.maxToolRounds = n
	}
}

// Ask processes one user turn and returns the assistant's answer.
//
// The turn never fails merely because the user has no stored documents: the
// retrieval tool degrades to a "no documents" context and the model asks the
// user directly. Generation and embedding failures propagate unretried.
func (e *Engine) Ask(ctx context.Context, query, userID string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	if strings.TrimSpace(userID) == "" {
		return "", ErrEmptyUserID
	}

	history, err := e.memory.History(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading conversation history: %w", err)
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: e.systemPrompt})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	enhanced := fmt.Sprintf("User '%s' is asking: %s. Please retrieve and analyze their relevant documents.", userID, query)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: enhanced})

	answer, err := e.runToolLoop(ctx, msgs, query, userID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		answer = fallbackAnswer
	}

	// The stored transcript keeps the raw question, not the enhanced form;
	// tool results stay within the turn.
	if _, err := e.memory.Append(ctx, userID, "user", query); err != nil {
		return "", fmt.Errorf("appending user message: %w", err)
	}
	if _, err := e.memory.Append(ctx, userID, "assistant", answer); err != nil {
		return "", fmt.Errorf("appending assistant message: %w", err)
	}

	return answer, nil
}

// runToolLoop drives the decision/tool-execution state machine for one turn.
// Each iteration either yields a final answer or executes the requested tool
// calls and feeds their results back to the model.
func (e *Engine) runToolLoop(ctx context.Context, msgs []llm.Message, query, userID string) (string, error) {
	for round := 0; round < e.maxToolRounds; round++ {
		resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
			Model:       e.model,
			Messages:    msgs,
			Tools:       []llm.ToolDefinition{retrieveTool},
			Temperature: 0.2,
		})
		if err != nil {
			return "", fmt.Errorf("LLM completion: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		msgs = append(msgs, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result, err := e.executeTool(ctx, tc, query, userID)
			if err != nil {
				return "", err
			}
			msgs = append(msgs, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	// Round cap reached: request a final answer with no tools on offer.
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model:       e.model,
		Messages:    msgs,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("LLM completion: %w", err)
	}
	return resp.Content, nil
}

// executeTool runs a single tool call. Unknown tool names are reported back
// to the model as tool output so it can recover within the turn.
func (e *Engine) executeTool(ctx context.Context, tc llm.ToolCall, query, userID string) (string, error) {
	if tc.Name != retrieveToolName {
		return fmt.Sprintf("Unknown tool %q. The only available tool is %s.", tc.Name, retrieveToolName), nil
	}

	toolQuery := parseRetrieveArgs(tc.Arguments, query)
	serialized, _, err := e.retriever.Retrieve(ctx, toolQuery, userID)
	if err != nil {
		return "", fmt.Errorf("retrieval: %w", err)
	}
	return serialized, nil
}

// Clear discards the user's conversation history, subject to the memory
// store's clear policy.
func (e *Engine) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return e.memory.Clear(ctx, userID)
}

// History returns the user's stored conversation transcript.
func (e *Engine) History(ctx context.Context, userID string) ([]memory.Message, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	return e.memory.History(ctx, userID)
}
