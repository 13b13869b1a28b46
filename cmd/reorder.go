package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/transfer"
	"github.com/conneroisu/pagebuilder/internal/validation"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <design.json> <from> <to>",
	Short: "Move a section within a design file",
	Long: `Move the section at position <from> to position <to>; positions count
from 1. The sections in between shift by one. The result is exported as a
new design file unless --in-place is given.

Examples:
  pagebuilder reorder design.json 3 1              # Move the third section first
  pagebuilder reorder design.json 1 4 --in-place   # Rewrite design.json`,
	Args: cobra.ExactArgs(3),
	RunE: runReorder,
}

var reorderInPlace bool

func init() {
	rootCmd.AddCommand(reorderCmd)

	reorderCmd.Flags().BoolVar(&reorderInPlace, "in-place", false, "Overwrite the input file")
}

func parsePosition(s string, n int) (int, error) {
	pos, err := strconv.Atoi(s)
	if err != nil || pos < 1 || pos > n {
		return 0, fmt.Errorf("invalid position %q: must be between 1 and %d", s, n)
	}

	return pos - 1, nil
}

func runReorder(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	path := args[0]
	file, err := transfer.FileFromPath(path)
	if err != nil {
		return err
	}

	builder := store.New(store.WithLogger(logger), store.WithMetadata(cfg.Metadata()))
	pipeline := transfer.NewPipeline(builder,
		transfer.WithMaxSize(cfg.Import.MaxFileSize),
		transfer.WithLogger(logger),
	)
	if err := pipeline.Import(cmd.Context(), file); err != nil {
		return err
	}

	n := len(builder.GetOrderedSections())
	from, err := parsePosition(args[1], n)
	if err != nil {
		return err
	}
	to, err := parsePosition(args[2], n)
	if err != nil {
		return err
	}
	builder.ReorderSections(from, to)

	res, err := pipeline.Export(cmd.Context())
	if err != nil {
		return err
	}

	target := filepath.Join(cfg.Import.ExportDir, res.Filename)
	if reorderInPlace {
		target = path
	}
	if err := validation.ValidatePath(target); err != nil {
		return fmt.Errorf("invalid output path %s: %w", target, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(target, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	var order []string
	for _, s := range builder.GetOrderedSections() {
		order = append(order, string(s.Type))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target, strings.Join(order, " → "))

	return nil
}
