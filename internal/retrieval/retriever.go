package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nexusflow/taxassist/internal/vectordb"
)

// DefaultTopK is the number of passages retrieved per query.
const DefaultTopK = 3

// Retriever turns a query into a serialized context blob built from the
// user's most relevant stored documents.
type Retriever struct {
	store *vectordb.UserStore
	topK  int
}

// NewRetriever creates a retriever over the given per-user store.
// topK <= 0 selects DefaultTopK.
func NewRetriever(store *vectordb.UserStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{store: store, topK: topK}
}

// Retrieve searches the user's index and serializes the top matches.
// A user with no stored documents is not an error: the agent must be able to
// keep the conversation going and ask the user directly, so that case (and an
// empty result set) degrades to a human-readable "no documents" context with
// an empty document list. Embedding or storage failures still propagate.
func (r *Retriever) Retrieve(ctx context.Context, query, userID string) (string, []vectordb.Document, error) {
	results, err := r.store.Search(ctx, userID, query, r.topK, "")
	if err != nil {
		if errors.Is(err, vectordb.ErrNoIndex) {
			return noDocumentsMessage(userID), nil, nil
		}
		return "", nil, err
	}
	if len(results) == 0 {
		return noDocumentsMessage(userID), nil, nil
	}

	docs := make([]vectordb.Document, len(results))
	blocks := make([]string, len(results))
	for i, res := range results {
		docs[i] = res.Document
		blocks[i] = fmt.Sprintf("Source: %s\nContent: %s",
			formatMetadata(res.Document.Metadata), res.Document.Content)
	}

	return strings.Join(blocks, "\n\n"), docs, nil
}

func noDocumentsMessage(userID string) string {
	return fmt.Sprintf("No documents found for user %s: the user has not stored any matching documents yet.", userID)
}

// formatMetadata renders document metadata for the generation model. The
// exact keys are informational; ordering is kept stable so retrieved context
// reads consistently across turns.
func formatMetadata(m vectordb.Metadata) string {
	return fmt.Sprintf("{source: %s, user_id: %s, filename: %s}", m.Source, m.UserID, m.Filename)
}
