package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/harness"
)

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <scenario.yaml>",
		Short: "Replay a wire scenario and print its trace",
		Long: `Replay a YAML wire scenario against an in-process engine.

Runs the scenario's sessions against a fresh in-memory database with
deterministic ids and a frozen clock, then prints every frame that
crossed the engine boundary. With --format json the output is the
canonical trace, byte-identical across runs.

Exit codes:
  0 - Scenario ran to completion
  1 - Scenario execution failed
  2 - Command error (file not found, invalid scenario, etc.)

Examples:
  shoal play ./scenarios/broadcast.yaml
  shoal play ./scenarios/broadcast.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPlay(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error("E_SCENARIO", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	formatter.VerboseLog("Loaded scenario %q: %d step(s)", scenario.Name, len(scenario.Steps))

	result, err := harness.Run(scenario)
	if err != nil {
		_ = formatter.Error("E_RUN", err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario failed", err)
	}

	if formatter.Format == "json" {
		traceJSON, err := result.MarshalTrace(scenario.Name)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render trace", err)
		}
		fmt.Fprintln(formatter.Writer, string(traceJSON))
		return nil
	}

	return outputTrace(formatter.Writer, scenario, result)
}

// outputTrace renders the trace as one line per event.
func outputTrace(w io.Writer, scenario *harness.Scenario, result *harness.Result) error {
	fmt.Fprintf(w, "Scenario: %s\n", heading(scenario.Name, w))
	fmt.Fprintln(w, scenario.Description)
	fmt.Fprintln(w)

	for _, ev := range result.Trace {
		if ev.Message == nil {
			fmt.Fprintf(w, "%4d %s %-8s %s\n", ev.Seq, eventGlyph(ev.Type, w), ev.Session, ev.Type)
			continue
		}

		frame, err := document.MarshalCanonical(ev.Message)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render trace event", err)
		}
		fmt.Fprintf(w, "%4d %s %-8s %s\n", ev.Seq, eventGlyph(ev.Type, w), ev.Session, frame)
	}

	fmt.Fprintf(w, "\n%d event(s)\n", len(result.Trace))
	return nil
}

// eventGlyph marks an event's direction, colored on terminals.
func eventGlyph(eventType string, w io.Writer) string {
	var glyph string
	switch eventType {
	case "connect":
		glyph = "●"
	case "disconnect":
		glyph = "○"
	case "send":
		glyph = "→"
	case "deliver":
		glyph = "←"
	default:
		glyph = "?"
	}

	if !isTerminalWriter(w) {
		return glyph
	}
	switch eventType {
	case "send":
		return color.CyanString(glyph)
	case "deliver":
		return color.GreenString(glyph)
	default:
		return color.YellowString(glyph)
	}
}
