package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/logging"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/transfer"
)

var validateFormat string

// validateCmd represents the validate command.
var validateCmd = &cobra.Command{
	Use:   "validate <design.json>...",
	Short: "Check design files before importing them",
	Long: `Validate design files the same way an import does: file type, size,
JSON syntax, document schema and a non-empty section list.

Examples:
  pagebuilder validate design.json             # Validate one file
  pagebuilder validate a.json b.json -f json   # Output results as JSON`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().
		StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json, yaml)")
	AddFlagValidation(validateCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"text", "json", "yaml"})
	})
}

type ValidationResult struct {
	File     string   `json:"file" yaml:"file"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Sections []string `json:"sections,omitempty" yaml:"sections,omitempty"`
	Code     string   `json:"code,omitempty" yaml:"code,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type ValidationSummary struct {
	Total   int                `json:"total" yaml:"total"`
	Valid   int                `json:"valid" yaml:"valid"`
	Invalid int                `json:"invalid" yaml:"invalid"`
	Results []ValidationResult `json:"results" yaml:"results"`
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	cfg, _, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	summary := ValidationSummary{Total: len(args)}
	for _, path := range args {
		result := validateDesignFile(cmd, path, cfg.Import.MaxFileSize)
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		summary.Results = append(summary.Results, result)
	}

	out := cmd.OutOrStdout()
	if validateFormat == "json" || validateFormat == "yaml" {
		if err := writeStructured(out, validateFormat, summary); err != nil {
			return err
		}
	} else {
		printValidationText(out, summary)
	}

	if summary.Invalid > 0 {
		return fmt.Errorf("%d of %d design file(s) failed validation", summary.Invalid, summary.Total)
	}

	return nil
}

// validateDesignFile imports path into a scratch store.
func validateDesignFile(cmd *cobra.Command, path string, maxSize int64) ValidationResult {
	result := ValidationResult{File: path}

	file, err := transfer.FileFromPath(path)
	if err == nil {
		builder := store.New()
		pipeline := transfer.NewPipeline(builder,
			transfer.WithMaxSize(maxSize),
			transfer.WithLogger(logging.Nop()),
		)
		if err = pipeline.Import(cmd.Context(), file); err == nil {
			for _, s := range builder.GetOrderedSections() {
				result.Sections = append(result.Sections, string(s.Type))
			}
			result.Valid = true
			return result
		}
	}

	var be *errors.BuilderError
	if stderrors.As(err, &be) {
		result.Code = be.Code
		result.Errors = append(result.Errors, be.Message)
	} else {
		result.Errors = append(result.Errors, err.Error())
	}
	result.Errors = append(result.Errors, errors.Details(err)...)

	return result
}

func printValidationText(out io.Writer, summary ValidationSummary) {
	for _, r := range summary.Results {
		if r.Valid {
			fmt.Fprintf(out, "✓ %s (%d sections: %s)\n", r.File, len(r.Sections), strings.Join(r.Sections, ", "))
			continue
		}
		fmt.Fprintf(out, "✗ %s\n", r.File)
		for _, msg := range r.Errors {
			fmt.Fprintf(out, "    %s\n", msg)
		}
	}
	fmt.Fprintf(out, "\n%d valid, %d invalid\n", summary.Valid, summary.Invalid)
}
