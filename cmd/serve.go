package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagebuilder/internal/server"
)

// shutdownTimeout bounds graceful shutdown after a signal.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve [design.json]",
	Aliases: []string{"s"},
	Short:   "Start the live preview server",
	Long: `Start the live preview server. The page is rendered from the current
design and updates over WebSocket as sections are added, edited and
reordered.

Examples:
  pagebuilder serve                          # Start with an empty design
  pagebuilder serve design.json              # Load a design file
  pagebuilder serve design.json --watch      # Re-import the file when it changes
  pagebuilder serve --catalog catalog.yml    # Add templates from a catalog file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var serveFlags *StandardFlags

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "server", "catalog")
	serveCmd.Flags().Bool("watch", false, "Reload the design and catalog files when they change")

	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.no-open", serveCmd.Flags().Lookup("no-open"))
	_ = viper.BindPFlag("catalog.path", serveCmd.Flags().Lookup("catalog"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		viper.Set("builder.design_file", args[0])
	}
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		viper.Set("builder.watch_design", true)
		viper.Set("catalog.watch", true)
	}

	cfg, logger, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Preview server at http://%s\n", cfg.Address())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Shutting down server...")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}

	return nil
}
