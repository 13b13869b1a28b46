package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/transfer"
)

var composeCmd = &cobra.Command{
	Use:     "compose <template-id>...",
	Aliases: []string{"c"},
	Short:   "Build a design file from templates",
	Long: `Build a design from a list of template ids, in page order, and export it
as website-design-<timestamp>.json.

Props are overridden with --set <position>.<field>=<value>, where position
counts sections from 1. Values that parse as JSON are used as such,
anything else is a string.

Examples:
  pagebuilder compose header hero footer
  pagebuilder compose header content --set 1.title=Acme --out designs/
  pagebuilder compose hero --set '1.navigationItems=[{"label":"Home","url":"/"}]'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompose,
}

var (
	composeFlags *StandardFlags
	composeSets  []string
)

func init() {
	rootCmd.AddCommand(composeCmd)

	composeFlags = AddStandardFlags(composeCmd, "catalog")
	composeCmd.Flags().String("out", "", "Directory to write the design to (default import.export_dir)")
	composeCmd.Flags().String("title", "", "Design title stored in the metadata")
	composeCmd.Flags().StringArrayVar(&composeSets, "set", nil, "Override a prop: <position>.<field>=<value>")

	_ = viper.BindPFlag("import.export_dir", composeCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("builder.design_title", composeCmd.Flags().Lookup("title"))
}

// propOverride is one parsed --set value.
type propOverride struct {
	position int
	field    string
	value    any
}

func parsePropOverride(s string) (propOverride, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return propOverride{}, fmt.Errorf("invalid --set %q: expected <position>.<field>=<value>", s)
	}
	pos, field, ok := strings.Cut(key, ".")
	if !ok || field == "" {
		return propOverride{}, fmt.Errorf("invalid --set %q: expected <position>.<field>=<value>", s)
	}
	n, err := strconv.Atoi(pos)
	if err != nil || n < 1 {
		return propOverride{}, fmt.Errorf("invalid --set %q: position must be a number from 1", s)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}

	return propOverride{position: n, field: field, value: value}, nil
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, logger, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	if limit := cfg.Builder.MaxSections; len(args) > limit {
		return fmt.Errorf("maximum number of sections reached (%d)", limit)
	}

	overrides := make([]propOverride, 0, len(composeSets))
	for _, s := range composeSets {
		o, err := parsePropOverride(s)
		if err != nil {
			return err
		}
		if o.position > len(args) {
			return fmt.Errorf("invalid --set %q: only %d section(s)", s, len(args))
		}
		overrides = append(overrides, o)
	}

	c, err := loadCatalog(composeFlags.CatalogPath, logger)
	if err != nil {
		return err
	}

	builder := store.New(store.WithLogger(logger), store.WithMetadata(cfg.Metadata()))
	ids := make([]string, 0, len(args))
	for _, id := range args {
		tmpl, err := c.Get(id)
		if err != nil {
			return err
		}
		ids = append(ids, builder.AddSection(tmpl).ID)
	}

	for _, o := range overrides {
		if err := builder.UpdateSection(ids[o.position-1], map[string]any{o.field: o.value}); err != nil {
			return fmt.Errorf("--set %d.%s: %w", o.position, o.field, err)
		}
	}

	pipeline := transfer.NewPipeline(builder,
		transfer.WithSaver(transfer.DirSaver{Dir: cfg.Import.ExportDir}),
		transfer.WithLogger(logger),
	)
	res, err := pipeline.Export(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(cfg.Import.ExportDir, res.Filename))

	return nil
}
