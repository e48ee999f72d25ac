package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nexusflow/taxassist/internal/ingest"
	"github.com/nexusflow/taxassist/internal/vectordb"
)

var (
	ingestUser   string
	ingestSource string
	ingestDir    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Store pre-extracted document text in a user's index",
	Long: `Embeds and stores a text file (or, with --dir, every matching file under
a directory) in the given user's private vector index. The source tag is
derived from the file extension unless --source is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestUser == "" {
			return fmt.Errorf("--user is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		store := vectordb.NewUserStore(cfg.DataDir, embedder)
		in := ingest.NewIngester(store, cfg.Include, cfg.Exclude)
		ctx := context.Background()

		if !ingestDir {
			res, err := in.File(ctx, ingestUser, args[0], ingestSource)
			if err != nil {
				return err
			}
			fmt.Printf("Stored %s as document %s (source: %s)\n", res.Path, res.DocumentID, res.Source)
			return nil
		}

		var bar *progressbar.ProgressBar
		results, err := in.Dir(ctx, ingestUser, args[0], func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Ingesting documents"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionSetWriter(os.Stderr),
				)
			}
			bar.Set(done)
		})
		if err != nil {
			return err
		}

		fmt.Printf("Ingested %d document(s) for user %s\n", len(results), ingestUser)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestUser, "user", "u", "", "owner of the documents (required)")
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "document category (default: derived from filename)")
	ingestCmd.Flags().BoolVarP(&ingestDir, "dir", "d", false, "treat <path> as a directory and ingest matching files")
	rootCmd.AddCommand(ingestCmd)
}
