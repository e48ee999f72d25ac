package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexusflow/taxassist/internal/vectordb"
)

// Result describes one ingested file.
type Result struct {
	DocumentID string
	Path       string
	Source     string
}

// ProgressFunc is called after each file is processed during a batch ingest.
type ProgressFunc func(done, total int)

// Ingester reads pre-extracted text files and stores them as documents in a
// user's vector index. It performs no parsing beyond reading bytes as UTF-8
// text.
type Ingester struct {
	store   *vectordb.UserStore
	include []string
	exclude []string
}

// NewIngester creates an ingester with the given include/exclude globs for
// directory ingestion.
func NewIngester(store *vectordb.UserStore, include, exclude []string) *Ingester {
	return &Ingester{store: store, include: include, exclude: exclude}
}

// DeriveSource infers a document's source tag from its filename when the
// caller did not supply one: the file extension without the dot, or the bare
// filename for extensionless files.
func DeriveSource(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext != "" {
		return ext
	}
	return filepath.Base(path)
}

// File ingests a single file for the user. An empty source is derived from
// the filename.
func (in *Ingester) File(ctx context.Context, userID, path, source string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, fmt.Errorf("file %s is empty", path)
	}

	if source == "" {
		source = DeriveSource(path)
	}

	docID, err := in.store.Store(ctx, userID, string(content), source, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	return &Result{DocumentID: docID, Path: path, Source: source}, nil
}

// Dir ingests every file under root that passes the include/exclude filters.
// progress may be nil.
func (in *Ingester) Dir(ctx context.Context, userID, root string, progress ProgressFunc) ([]Result, error) {
	paths, err := in.collect(root)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(paths))
	for i, path := range paths {
		res, err := in.File(ctx, userID, path, "")
		if err != nil {
			return results, fmt.Errorf("ingesting %s: %w", path, err)
		}
		results = append(results, *res)
		if progress != nil {
			progress(i+1, len(paths))
		}
	}
	return results, nil
}

// collect walks root and returns the relative-filtered file list in walk order.
func (in *Ingester) collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if MatchesExclude(rel, in.exclude) || !MatchesInclude(rel, in.include) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return paths, nil
}
