package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexusflow/taxassist/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document assistant HTTP server",
	Long:  `Starts the taxassist server with the chat agent, document ingestion, and user introspection APIs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Port = servePort
		}

		engine, store, database, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.CORSAllowAll,
		}, engine, store)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "taxassist v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Data dir: %s\n", cfg.DataDir)
		fmt.Fprintf(os.Stderr, "  Model: %s (%s)\n", cfg.Model, cfg.Provider)

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "override the configured HTTP port")
	rootCmd.AddCommand(serveCmd)
}
