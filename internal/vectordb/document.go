package vectordb

import "time"

// Document represents a piece of user-owned content stored in the index.
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Metadata holds structured information about a document.
type Metadata struct {
	Source   string // document category, e.g. "passport", "irs_letter"
	UserID   string
	Filename string
	StoredAt time.Time
}

// SearchResult pairs a document with its similarity score.
// Results are ordered by descending similarity (increasing distance).
type SearchResult struct {
	Document   Document
	Similarity float32
}

// UserStats summarizes a user's stored documents.
type UserStats struct {
	UserID         string         `json:"user_id"`
	TotalDocuments int            `json:"total_documents"`
	DataSources    map[string]int `json:"data_sources"`
	StorageBytes   int64          `json:"storage_bytes"`
	IndexPath      string         `json:"index_path"`
}
