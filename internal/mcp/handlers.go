package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nexusflow/taxassist/internal/vectordb"
)

// handleStoreDocument stores a text document in the user's index.
func (s *Server) handleStoreDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}
	source := request.GetString("source", "document")
	filename := request.GetString("filename", "")

	docID, err := s.store.Store(ctx, userID, content, source, filename)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("store failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Stored document %s for user %s (source: %s).", docID, userID, source)), nil
}

// handleSearchDocuments performs semantic search over a user's documents.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 3)
	if limit <= 0 {
		limit = 3
	}
	source := request.GetString("source", "")

	results, err := s.store.Search(ctx, userID, query, limit, source)
	if err != nil {
		if errors.Is(err, vectordb.ErrNoIndex) {
			return mcp.NewToolResultText(fmt.Sprintf("No documents found for user %s.", userID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No matching documents."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleGetUserInfo returns aggregate statistics for a user's stored documents.
func (s *Server) handleGetUserInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}

	stats, err := s.store.Describe(ctx, userID)
	if err != nil {
		if errors.Is(err, vectordb.ErrNoIndex) {
			return mcp.NewToolResultError(fmt.Sprintf("no documents stored for user %s", userID)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("describe failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User %s: %d document(s), %d bytes on disk\n", stats.UserID, stats.TotalDocuments, stats.StorageBytes)
	for source, count := range stats.DataSources {
		fmt.Fprintf(&sb, "- %s: %d\n", source, count)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleAskAssistant runs a full conversational turn for the user.
func (s *Server) handleAskAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	answer, err := s.engine.Ask(ctx, query, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	return mcp.NewToolResultText(answer), nil
}

// formatSearchResults renders ranked results as human-readable text.
func formatSearchResults(results []vectordb.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(results))

	for i, r := range results {
		fmt.Fprintf(&sb, "--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity)
		if r.Document.Metadata.Source != "" {
			fmt.Fprintf(&sb, "Source: %s\n", r.Document.Metadata.Source)
		}
		if r.Document.Metadata.Filename != "" {
			fmt.Fprintf(&sb, "File: %s\n", r.Document.Metadata.Filename)
		}
		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
