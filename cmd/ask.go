package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askUser string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a question about a user's documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if askUser == "" {
			return fmt.Errorf("--user is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		engine, _, database, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		answer, err := engine.Ask(context.Background(), strings.Join(args, " "), askUser)
		if err != nil {
			return err
		}

		fmt.Println(answer)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "", "user whose documents to consult (required)")
	rootCmd.AddCommand(askCmd)
}
