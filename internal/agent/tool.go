package agent

import (
	"encoding/json"

	"github.com/nexusflow/taxassist/internal/llm"
)

// retrieveToolName is the tool identifier the model calls to search the
// user's stored documents.
const retrieveToolName = "retrieve_context"

// retrieveTool is the tool signature advertised to the generation model.
var retrieveTool = llm.ToolDefinition{
	Name:        retrieveToolName,
	Description: "Retrieve information to help answer a query based on the user's stored documents.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural language description of the information to look up",
			},
		},
		"required": []string{"query"},
	},
}

type retrieveArgs struct {
	Query string `json:"query"`
}

// parseRetrieveArgs decodes a tool call's JSON arguments. A malformed or
// empty query falls back to the user's original question so the turn can
// still proceed.
func parseRetrieveArgs(arguments, fallbackQuery string) string {
	var args retrieveArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Query == "" {
		return fallbackQuery
	}
	return args.Query
}
