package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/types"
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"t", "ls"},
	Short:   "List the section templates",
	Long: `List the section templates available to designs, grouped by category.

Examples:
  pagebuilder templates                      # Table of all templates
  pagebuilder templates -c Navigation        # Only one category
  pagebuilder templates -o yaml -v           # Include default props
  pagebuilder templates --catalog extra.yml  # Include a catalog file`,
	RunE: runTemplates,
}

var (
	templatesFlags    *StandardFlags
	templatesCategory string
)

func init() {
	rootCmd.AddCommand(templatesCmd)

	templatesFlags = AddStandardFlags(templatesCmd, "catalog", "output")
	templatesCmd.Flags().StringVarP(&templatesCategory, "category", "c", "", "Only list templates in this category")

	AddFlagValidation(templatesCmd, "output", func(format string) error {
		return ValidateFormat(format, OutputFormats)
	})
}

// templateView is the printed form of a template.
type templateView struct {
	ID           string         `json:"id" yaml:"id"`
	Name         string         `json:"name" yaml:"name"`
	Category     string         `json:"category" yaml:"category"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	DefaultProps map[string]any `json:"defaultProps,omitempty" yaml:"defaultProps,omitempty"`
}

func runTemplates(cmd *cobra.Command, args []string) error {
	if err := templatesFlags.ValidateFlags(); err != nil {
		return err
	}

	c, err := loadCatalog(templatesFlags.CatalogPath, logging.Nop())
	if err != nil {
		return err
	}

	templates := c.All()
	if templatesCategory != "" {
		templates = c.ByCategory()[templatesCategory]
		if len(templates) == 0 {
			return fmt.Errorf("no templates in category %q (categories: %v)", templatesCategory, c.Categories())
		}
	}

	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		view := templateView{ID: t.ID, Name: t.Name, Category: t.Category, Description: t.Description}
		if templatesFlags.Verbose {
			props, err := types.PropsToMap(t.DefaultProps)
			if err != nil {
				return fmt.Errorf("template %s: %w", t.ID, err)
			}
			view.DefaultProps = props
		}
		views = append(views, view)
	}

	out := cmd.OutOrStdout()
	switch templatesFlags.OutputFormat {
	case "json", "yaml":
		return writeStructured(out, templatesFlags.OutputFormat, views)
	default:
		return printTemplatesTable(out, views, templatesFlags.Quiet)
	}
}

func printTemplatesTable(out io.Writer, views []templateView, quiet bool) error {
	if quiet {
		for _, v := range views {
			fmt.Fprintln(out, v.ID)
		}
		return nil
	}

	upper := cases.Upper(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		upper.String("id"), upper.String("name"), upper.String("category"), upper.String("description"))
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.Name, v.Category, v.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d template(s)\n", len(views))

	return nil
}
