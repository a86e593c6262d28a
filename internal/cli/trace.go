package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uptree-dev/uptree/internal/tracestore"
	"github.com/uptree-dev/uptree/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Pass     string // optional - show one pass; otherwise list passes
}

// TraceStats holds summary statistics for a pass.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	WalkSteps   int  `json:"walk_steps"`
	Matches     int  `json:"matches"`
	Awaits      int  `json:"awaits"`
	Fallbacks   int  `json:"fallbacks"`
	IsComplete  bool `json:"is_complete"`
}

// TraceResult holds the trace output for one pass.
type TraceResult struct {
	Pass     string        `json:"pass"`
	Timeline []trace.Event `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// PassList holds the output when no pass is selected.
type PassList struct {
	Passes []string `json:"passes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query recorded resolution passes",
		Long: `Query trace events recorded by resolve --db.

Without --pass, lists the recorded pass tokens. With --pass, shows the
chronological event timeline for that pass: every ancestor visited,
every type matched or awaited, and whether the pass completed.

Examples:
  uptree trace --db ./trace.db
  uptree trace --db ./trace.db --pass pass-1
  uptree trace --db ./trace.db --pass pass-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Pass, "pass", "", "pass token to show")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := tracestore.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Pass == "" {
		return listPasses(ctx, st, formatter)
	}

	events, err := st.ReadPass(ctx, opts.Pass)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read pass", err)
	}

	result := TraceResult{
		Pass:     opts.Pass,
		Timeline: events,
		Stats:    buildStats(events),
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

func listPasses(ctx context.Context, st *tracestore.Store, formatter *OutputFormatter) error {
	passes, err := st.Passes(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list passes", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(PassList{Passes: passes})
	}

	if len(passes) == 0 {
		fmt.Fprintln(formatter.Writer, "No passes recorded")
		return nil
	}
	for _, p := range passes {
		fmt.Fprintln(formatter.Writer, p)
	}
	return nil
}

func buildStats(events []trace.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, ev := range events {
		switch ev.Kind {
		case trace.KindWalkStep:
			stats.WalkSteps++
		case trace.KindMatch:
			stats.Matches++
		case trace.KindAwait:
			stats.Awaits++
		case trace.KindFallback:
			stats.Fallbacks++
		case trace.KindComplete:
			stats.IsComplete = true
		}
	}
	return stats
}

// outputTraceText prints a pass timeline in human-readable form.
func outputTraceText(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Trace for Pass: %s\n", result.Pass)
	fmt.Fprintf(w, "Status: %s\n", completeStatus(result.Stats.IsComplete))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, ev := range result.Timeline {
			formatTimelineEvent(w, ev)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Walk Steps:   %d\n", result.Stats.WalkSteps)
	fmt.Fprintf(w, "  Matches:      %d\n", result.Stats.Matches)
	fmt.Fprintf(w, "  Awaits:       %d\n", result.Stats.Awaits)
	fmt.Fprintf(w, "  Fallbacks:    %d\n", result.Stats.Fallbacks)
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w interface{ Write([]byte) (int, error) }, ev trace.Event) {
	switch ev.Kind {
	case trace.KindWalkStep:
		fmt.Fprintf(w, "  [%d] WALK %s (depth %d)\n", ev.Seq, ev.Provider, ev.Depth)
	case trace.KindMatch:
		fmt.Fprintf(w, "  [%d] MATCH %s <- %s (depth %d)\n", ev.Seq, ev.Type, ev.Provider, ev.Depth)
	case trace.KindAwait:
		fmt.Fprintf(w, "  [%d] AWAIT %s <- %s\n", ev.Seq, ev.Type, ev.Provider)
	case trace.KindReady:
		fmt.Fprintf(w, "  [%d] READY %s <- %s\n", ev.Seq, ev.Type, ev.Provider)
	case trace.KindFallback:
		fmt.Fprintf(w, "  [%d] FALLBACK %s\n", ev.Seq, ev.Type)
	case trace.KindComplete:
		fmt.Fprintf(w, "  [%d] COMPLETE\n", ev.Seq)
	default:
		fmt.Fprintf(w, "  [%d] %s\n", ev.Seq, ev.Kind)
	}
}

// completeStatus returns a human-readable completion status.
func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (pending providers)"
}
