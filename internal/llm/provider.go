package llm

import "context"

// Provider is a chat completion backend. Implementations must pass the
// request's tool definitions through to the model and surface any tool calls
// the model makes in the response.
type Provider interface {
	// Complete runs one chat completion round-trip.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the backend, for logging and diagnostics.
	Name() string
}
