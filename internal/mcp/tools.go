package mcp

import "github.com/mark3labs/mcp-go/mcp"

// storeDocumentTool defines the store_document MCP tool.
var storeDocumentTool = mcp.NewTool("store_document",
	mcp.WithDescription("Store a text document in a user's private index for later retrieval."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Owner of the document"),
	),
	mcp.WithString("content",
		mcp.Required(),
		mcp.Description("Extracted text content of the document"),
	),
	mcp.WithString("source",
		mcp.Description("Document category, e.g. passport, irs_letter, statement"),
	),
	mcp.WithString("filename",
		mcp.Description("Original filename, if any"),
	),
)

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Semantically search a user's stored documents. Returns ranked passages."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("User whose documents to search"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 3)"),
	),
	mcp.WithString("source",
		mcp.Description("Restrict results to a single document category"),
	),
)

// getUserInfoTool defines the get_user_info MCP tool.
var getUserInfoTool = mcp.NewTool("get_user_info",
	mcp.WithDescription("Get statistics about a user's stored documents: counts per source and storage size."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("User to describe"),
	),
)

// askAssistantTool defines the ask_assistant MCP tool.
var askAssistantTool = mcp.NewTool("ask_assistant",
	mcp.WithDescription("Ask the tax filing assistant a question grounded in the user's stored documents."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("User on whose behalf the question is asked"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
)
