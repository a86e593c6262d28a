package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uptree-dev/uptree/internal/treespec"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Nodes      int    `json:"nodes,omitempty"`
	Providers  int    `json:"providers,omitempty"`
	Dependents int    `json:"dependents,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <doc.yaml>",
		Short: "Validate a tree document without resolving",
		Long: `Validate a YAML tree document against the embedded schema.

Checks well-formedness, schema conformance, unique node names, and
provided-value kinds without running any resolution passes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tr, err := loadTree(path)
	if err != nil {
		return outputValidateError(formatter, err)
	}

	formatter.VerboseLog("Loaded %d node(s) from %s", len(tr.Order), path)

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:      true,
			Nodes:      len(tr.Order),
			Providers:  len(tr.Providers),
			Dependents: len(tr.Dependents),
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s valid: %d node(s), %d provider(s), %d dependent(s)\n",
		path, len(tr.Order), len(tr.Providers), len(tr.Dependents))
	return nil
}

// loadTree reads, validates, and materializes a tree document.
// Path problems surface as command errors; document problems as DocErrors.
func loadTree(path string) (*treespec.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read document", err)
	}

	doc, err := treespec.Load(path, data)
	if err != nil {
		return nil, err
	}
	return treespec.Build(doc)
}

func outputValidateError(formatter *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = formatter.Error("IO", exitErr.Error(), nil)
		return exitErr
	}

	var de *treespec.DocError
	if errors.As(err, &de) {
		if formatter.Format == "json" {
			result := ValidationResult{Valid: false, Code: string(de.Code), Message: de.Message}
			if encErr := formatter.Error(string(de.Code), de.Message, result); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", de.Code, de.Message)
			if de.Node != "" {
				fmt.Fprintf(formatter.Writer, "  node: %s\n", de.Node)
			}
		}
		return NewExitError(ExitFailure, de.Error())
	}

	_ = formatter.Error("UNKNOWN", err.Error(), nil)
	return NewExitError(ExitFailure, err.Error())
}
