package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taxassist",
	Short: "AI-powered tax document assistant with per-user retrieval",
	Long: `Taxassist answers questions about a user's stored tax and personal
documents. Each user gets an isolated, persistent vector index; a
conversational agent retrieves relevant passages from it and guides the
user through the 1040NR intake workflow.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".taxassist.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
