package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexusflow/taxassist/internal/vectordb"
)

var describeCmd = &cobra.Command{
	Use:   "describe <user_id>",
	Short: "Show statistics about a user's stored documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		store := vectordb.NewUserStore(cfg.DataDir, embedder)
		stats, err := store.Describe(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("User: %s\n", stats.UserID)
		fmt.Printf("Documents: %d\n", stats.TotalDocuments)
		fmt.Printf("Storage: %d bytes\n", stats.StorageBytes)
		fmt.Printf("Index: %s\n", stats.IndexPath)
		if len(stats.DataSources) > 0 {
			fmt.Println("Sources:")
			for source, count := range stats.DataSources {
				fmt.Printf("  %s: %d\n", source, count)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
