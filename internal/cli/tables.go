package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage/sqlite"
)

// TablesReport lists declared tables with optional live counts.
type TablesReport struct {
	Tables []TableStatus `json:"tables"`
}

// TableStatus pairs a declared table with its stored document count.
// DocumentCount is nil when no store was given.
type TableStatus struct {
	Name          string        `json:"name"`
	Fields        []FieldReport `json:"fields"`
	DocumentCount *int64        `json:"documentCount,omitempty"`
}

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	*RootOptions
	Schema   string
	Database string
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TablesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List declared tables",
		Long: `List the tables a schema declares.

With --db, opens the SQLite store and includes the live document count
for every declared table.

Examples:
  shoal tables --schema ./schema.cue
  shoal tables --schema ./schema --db ./shoal.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "path to CUE schema file or directory (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for live counts")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runTables(opts *TablesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := schema.Load(opts.Schema)
	if err != nil {
		_ = formatter.Error("E_LOAD", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	counts, err := loadTableCounts(cmd.Context(), opts.Database)
	if err != nil {
		_ = formatter.Error("E_STORE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read store", err)
	}

	report := TablesReport{Tables: make([]TableStatus, 0, len(s.Tables))}
	for _, tbl := range tableReports(s) {
		status := TableStatus{Name: tbl.Name, Fields: tbl.Fields}
		if counts != nil {
			count := counts[tbl.Name] // zero for declared tables not yet stored
			status.DocumentCount = &count
		}
		report.Tables = append(report.Tables, status)
	}

	return outputTablesReport(formatter, report)
}

// loadTableCounts reads per-table document counts from a SQLite store.
// Returns nil counts when no store path was given.
func loadTableCounts(ctx context.Context, path string) (map[string]int64, error) {
	if path == "" {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	states, err := st.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(states))
	for _, state := range states {
		counts[state.Name] = int64(state.DocumentCount)
	}
	return counts, nil
}

// outputTablesReport renders the table listing.
func outputTablesReport(formatter *OutputFormatter, report TablesReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	if len(report.Tables) == 0 {
		fmt.Fprintln(w, "No tables declared.")
		return nil
	}

	for i, tbl := range report.Tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if tbl.DocumentCount != nil {
			fmt.Fprintf(w, "%s  (%d document(s))\n", heading(tbl.Name, w), *tbl.DocumentCount)
		} else {
			fmt.Fprintln(w, heading(tbl.Name, w))
		}
		printFieldReports(w, tbl.Fields)
	}
	return nil
}
