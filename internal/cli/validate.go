package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/shoal/internal/schema"
)

// SchemaReport summarizes a schema compilation.
type SchemaReport struct {
	Valid  bool          `json:"valid"`
	Tables []TableReport `json:"tables,omitempty"`
	Errors []SchemaError `json:"errors,omitempty"`
}

// TableReport describes one declared table.
type TableReport struct {
	Name   string        `json:"name"`
	Fields []FieldReport `json:"fields"`
}

// FieldReport describes one declared field.
type FieldReport struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// SchemaError is a compile error with source position when known.
type SchemaError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile a schema without starting a server",
		Long: `Compile a CUE schema and report the declared tables.

Performs the same compilation serve does, without opening a store or
listening. Faster feedback during schema development.

Exit codes:
  0 - Schema compiles
  1 - Schema invalid (compile errors)
  2 - Command error (schema path not found, etc.)`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts.Schema, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE schema file or directory (required)")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runValidate(opts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	s, err := schema.Load(schemaPath)
	if err != nil {
		// Compile errors are validation failures; everything else
		// (missing path, unreadable dir) is a command error.
		var compileErr *schema.CompileError
		if errors.As(err, &compileErr) {
			return outputSchemaErrors(formatter, []SchemaError{newSchemaError(compileErr)})
		}
		_ = formatter.Error("E_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	formatter.VerboseLog("Compiled %d table(s) from %s", len(s.Tables), schemaPath)

	return outputSchemaReport(formatter, SchemaReport{
		Valid:  true,
		Tables: tableReports(s),
	})
}

// tableReports flattens a schema into sorted table and field reports.
func tableReports(s schema.Schema) []TableReport {
	reports := make([]TableReport, 0, len(s.Tables))
	for _, name := range s.TableNames() {
		tbl := s.Tables[name]
		report := TableReport{Name: name, Fields: make([]FieldReport, 0, len(tbl.Fields))}
		for _, fieldName := range tbl.FieldNames() {
			f := tbl.Fields[fieldName]
			report.Fields = append(report.Fields, FieldReport{
				Name:     fieldName,
				Type:     string(f.Type),
				Required: f.Required,
			})
		}
		reports = append(reports, report)
	}
	return reports
}

// newSchemaError converts a compile error, keeping its position.
func newSchemaError(compileErr *schema.CompileError) SchemaError {
	se := SchemaError{
		Field:   compileErr.Field,
		Message: compileErr.Message,
	}
	if compileErr.Pos.IsValid() {
		se.File = compileErr.Pos.Filename()
		se.Line = compileErr.Pos.Line()
	}
	return se
}

// outputSchemaReport outputs a successful compilation.
func outputSchemaReport(formatter *OutputFormatter, report SchemaReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Schema valid: %d table(s)\n", statusGlyph(true, w), len(report.Tables))
	for _, tbl := range report.Tables {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading(tbl.Name, w))
		printFieldReports(w, tbl.Fields)
	}
	return nil
}

// outputSchemaErrors outputs compile errors and fails the command.
func outputSchemaErrors(formatter *OutputFormatter, errs []SchemaError) error {
	if formatter.Format == "json" {
		response := Response{
			Status: "error",
			Data:   SchemaReport{Valid: false, Errors: errs},
			Error: &ResponseError{
				Code:    "E_COMPILE",
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("schema invalid: %s", errs[0].Message))
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Schema invalid\n\n", statusGlyph(false, w))
	for _, se := range errs {
		if se.File != "" {
			fmt.Fprintf(w, "%s:%d\n", se.File, se.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", se.Field, se.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("schema invalid: %s", errs[0].Message))
}

// printFieldReports lists fields aligned on the longest name.
func printFieldReports(w io.Writer, fields []FieldReport) {
	width := 0
	for _, f := range fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}
	for _, f := range fields {
		if f.Required {
			fmt.Fprintf(w, "  %-*s  %s  required\n", width, f.Name, f.Type)
			continue
		}
		fmt.Fprintf(w, "  %-*s  %s\n", width, f.Name, f.Type)
	}
}
