package vectordb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/nexusflow/taxassist/internal/embeddings"
)

const collectionName = "documents"

// UserStore manages one persistent vector index per user. Each index lives
// at <basePath>/<userID>/<userID>_index.gob.gz and is loaded from disk on
// every operation and re-exported after every mutation, so no state is
// shared across requests beyond the files themselves.
//
// A per-user mutex serializes the load->mutate->save cycle; without it two
// concurrent stores for the same user would silently drop documents
// (last writer wins on the exported file).
type UserStore struct {
	basePath  string
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUserStore creates a store rooted at basePath.
func NewUserStore(basePath string, embedder embeddings.Embedder) *UserStore {
	return &UserStore{
		basePath:  basePath,
		embedder:  embedder,
		embedFunc: chromemFunc(embedder),
		locks:     make(map[string]*sync.Mutex),
	}
}

// chromemFunc adapts an Embedder to the single-text signature chromem-go
// expects.
func chromemFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vecs, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) == 0 {
			return nil, fmt.Errorf("embedder %s returned no vector", e.Name())
		}
		return vecs[0], nil
	}
}

// IndexPath returns the on-disk location of a user's index file.
func (s *UserStore) IndexPath(userID string) string {
	return filepath.Join(s.basePath, userID, userID+"_index.gob.gz")
}

func (s *UserStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// checkUserID rejects ids that would escape the per-user directory layout.
func checkUserID(userID string) error {
	if userID == "" || strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return fmt.Errorf("%w: %q", ErrBadUserID, userID)
	}
	return nil
}

// load opens the user's index from disk. Returns ErrNoIndex when the user
// has never stored a document.
func (s *UserStore) load(userID string) (*chromem.DB, *chromem.Collection, error) {
	path := s.IndexPath(userID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNoIndex, userID)
		}
		return nil, nil, fmt.Errorf("stat index %s: %w", path, err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(path, ""); err != nil {
		return nil, nil, fmt.Errorf("import index %s: %w", path, err)
	}

	col := db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return nil, nil, fmt.Errorf("collection %q not found in %s", collectionName, path)
	}
	return db, col, nil
}

// Store embeds and persists a document for the given user, creating the
// user's index on first use. Returns the generated document id.
func (s *UserStore) Store(ctx context.Context, userID, content, source, filename string) (string, error) {
	if err := checkUserID(userID); err != nil {
		return "", err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	db, col, err := s.load(userID)
	if err != nil {
		if !errors.Is(err, ErrNoIndex) {
			return "", err
		}
		db = chromem.NewDB()
		col, err = db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
		if err != nil {
			return "", fmt.Errorf("create collection: %w", err)
		}
	}

	docID := uuid.New().String()
	doc := chromem.Document{
		ID:      docID,
		Content: content,
		Metadata: metadataToMap(Metadata{
			Source:   source,
			UserID:   userID,
			Filename: filename,
			StoredAt: time.Now().UTC(),
		}),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}

	path := s.IndexPath(userID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating user directory: %w", err)
	}
	if err := db.ExportToFile(path, true, ""); err != nil {
		return "", fmt.Errorf("export index %s: %w", path, err)
	}

	return docID, nil
}

// Search embeds the query and returns up to k results from the user's index,
// filtered to the user's own documents and optionally to a single source tag.
// Returns ErrNoIndex when the user has no stored documents.
func (s *UserStore) Search(ctx context.Context, userID, query string, k int, sourceFilter string) ([]SearchResult, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 3
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	_, col, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	where := map[string]string{"user_id": userID}
	if sourceFilter != "" {
		where["source"] = sourceFilter
	}

	results, err := col.Query(ctx, query, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return searchResults, nil
}

// Describe returns aggregate statistics over a user's stored documents.
// Returns ErrNoIndex when the user has no stored documents.
func (s *UserStore) Describe(ctx context.Context, userID string) (*UserStats, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	_, col, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		UserID:         userID,
		TotalDocuments: col.Count(),
		DataSources:    make(map[string]int),
		IndexPath:      s.IndexPath(userID),
	}

	// Enumerate documents by querying with the full collection size as the
	// limit; chromem has no listing API.
	if stats.TotalDocuments > 0 {
		results, err := col.Query(ctx, userID, stats.TotalDocuments, map[string]string{"user_id": userID}, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
		for _, r := range results {
			source := r.Metadata["source"]
			if source == "" {
				source = "unknown"
			}
			stats.DataSources[source]++
		}
	}

	userDir := filepath.Join(s.basePath, userID)
	entries, err := os.ReadDir(userDir)
	if err != nil {
		return nil, fmt.Errorf("reading user directory: %w", err)
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil || entry.IsDir() {
			continue
		}
		stats.StorageBytes += info.Size()
	}

	return stats, nil
}

// metadataToMap converts Metadata to a flat map[string]string for chromem.
func metadataToMap(m Metadata) map[string]string {
	return map[string]string{
		"source":    m.Source,
		"user_id":   m.UserID,
		"filename":  m.Filename,
		"stored_at": m.StoredAt.Format(time.RFC3339),
	}
}

// mapToMetadata converts a flat map[string]string back to Metadata.
func mapToMetadata(m map[string]string) Metadata {
	storedAt, _ := time.Parse(time.RFC3339, m["stored_at"])
	return Metadata{
		Source:   m["source"],
		UserID:   m["user_id"],
		Filename: m["filename"],
		StoredAt: storedAt,
	}
}
