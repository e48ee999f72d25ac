package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nexusflow/taxassist/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant's tools over MCP on stdio",
	Long: `Exposes store_document, search_documents, get_user_info, and
ask_assistant as MCP tools so AI agents can work with a user's stored
documents directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engine, store, database, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		mcp.Version = Version
		return mcp.NewServer(store, engine).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
