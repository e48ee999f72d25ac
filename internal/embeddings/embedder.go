package embeddings

import "context"

// Embedder turns document or query text into dense vectors. Implementations
// must be deterministic for identical input so that repeated searches over an
// unchanged index rank identically.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the width of the vectors this embedder produces.
	Dimensions() int
	// Name identifies the backing model, for logging and diagnostics.
	Name() string
}
