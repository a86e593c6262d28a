package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/uptree-dev/uptree/internal/tracestore"
	"github.com/uptree-dev/uptree/internal/treespec"
	"github.com/uptree-dev/uptree/resolve"
	"github.com/uptree-dev/uptree/trace"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Dependent string // optional - resolve only this dependent
	Database  string // optional - record trace events to SQLite
}

// BindingResult describes one resolved type for a dependent.
type BindingResult struct {
	Type    string `json:"type"`
	Source  string `json:"source"` // providing node name, or "default(<type>)"
	Default bool   `json:"default,omitempty"`
	Value   any    `json:"value"`
}

// DependentResult holds the outcome of one resolution pass.
type DependentResult struct {
	Name     string          `json:"name"`
	Pass     string          `json:"pass"`
	Complete bool            `json:"complete"`
	Bindings []BindingResult `json:"bindings,omitempty"`
	Error    *CLIError       `json:"error,omitempty"`
}

// ResolveResult holds the complete resolve output.
type ResolveResult struct {
	Document   string            `json:"document"`
	Nodes      int               `json:"nodes"`
	Dependents []DependentResult `json:"dependents"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <doc.yaml>",
		Short: "Resolve a tree document's dependents against their ancestors",
		Long: `Resolve every dependent in a tree document.

Each dependent gets one resolution pass: a walk from its parent toward
the root, binding each needed type to the nearest ancestor that provides
it. Providers are then marked provided in document order, and the
resolved values are printed once every pass completes.

Passes are assigned sequential tokens (pass-1, pass-2, ...) in document
order, so traces recorded with --db can be queried per pass.

Examples:
  uptree resolve app.yaml
  uptree resolve app.yaml --dependent handler
  uptree resolve app.yaml --db ./trace.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dependent, "dependent", "", "resolve only the named dependent")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record trace events to this SQLite database")

	return cmd
}

// teeRecorder fans events out to several recorders.
type teeRecorder struct {
	recs []trace.Recorder
}

func (t *teeRecorder) Record(ev trace.Event) {
	for _, r := range t.recs {
		r.Record(ev)
	}
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
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

	dependents := tr.Dependents
	if opts.Dependent != "" {
		node, ok := tr.Nodes[opts.Dependent]
		if !ok {
			return WrapExitError(ExitCommandError, "unknown dependent", fmt.Errorf("no node named %q", opts.Dependent))
		}
		if len(node.Needs) == 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("node %q declares no needs", opts.Dependent))
		}
		dependents = []*treespec.Node{node}
	}

	// The in-memory recorder is the source of binding provenance; a
	// store recorder is teed in when --db is set.
	mem := &trace.Memory{}
	var recorder trace.Recorder = mem
	if opts.Database != "" {
		st, err := tracestore.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		storeRec := tracestore.NewRecorder(st, func(err error) {
			formatter.VerboseLog("trace write failed: %v", err)
		})
		recorder = &teeRecorder{recs: []trace.Recorder{mem, storeRec}}
	}

	tokens := make([]string, len(dependents))
	for i := range tokens {
		tokens[i] = fmt.Sprintf("pass-%d", i+1)
	}

	engine := resolve.New(
		resolve.WithRecorder(recorder),
		resolve.WithTokens(trace.NewFixedGenerator(tokens...)),
	)

	result := ResolveResult{Document: path, Nodes: len(tr.Order)}
	completed := make(map[string]*bool, len(dependents))
	failed := false

	for i, dep := range dependents {
		formatter.VerboseLog("Resolving %s (%s)", dep.Name(), tokens[i])

		dr := DependentResult{Name: dep.Name(), Pass: tokens[i]}
		flag := new(bool)
		completed[dep.Name()] = flag

		rOpts := []resolve.ResolveOption{resolve.OnComplete(func() { *flag = true })}
		for typ, factory := range dep.Defaults {
			rOpts = append(rOpts, resolve.WithFallbackFor(typ, factory))
		}

		if err := engine.Resolve(dep, dep.Needs, rOpts...); err != nil {
			dr.Error = resolveCLIError(err)
			failed = true
		}
		result.Dependents = append(result.Dependents, dr)
	}

	for _, p := range tr.Providers {
		engine.MarkProvided(p)
	}

	for i := range result.Dependents {
		dr := &result.Dependents[i]
		if dr.Error != nil {
			continue
		}
		dep := tr.Nodes[dr.Name]
		dr.Complete = *completed[dr.Name]
		dr.Bindings = collectBindings(engine, dep, mem.OfKind(trace.KindMatch), mem.OfKind(trace.KindFallback), dr.Pass)
		if !dr.Complete {
			failed = true
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputResolveText(formatter, result)
	}

	if failed {
		return NewExitError(ExitFailure, "resolution failed")
	}
	return nil
}

// collectBindings reconstructs a dependent's bindings from the match and
// fallback events of its pass, reading each value through the engine.
func collectBindings(engine *resolve.Engine, dep *treespec.Node, matches, fallbacks []trace.Event, pass string) []BindingResult {
	var out []BindingResult

	appendFor := func(events []trace.Event, isDefault bool) {
		for _, ev := range events {
			if ev.Pass != pass {
				continue
			}
			br := BindingResult{Type: ev.Type, Source: ev.Provider, Default: isDefault}
			for _, typ := range dep.Needs {
				if typ.String() != ev.Type {
					continue
				}
				if v, err := engine.Dependency(dep, typ); err == nil {
					br.Value = v
				}
				break
			}
			out = append(out, br)
		}
	}

	appendFor(matches, false)
	appendFor(fallbacks, true)

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// resolveCLIError converts a resolution error into CLI error structure.
func resolveCLIError(err error) *CLIError {
	var re *resolve.ResolveError
	if errors.As(err, &re) {
		details := map[string]any{}
		if re.Requested != "" {
			details["requested"] = re.Requested
			details["advertised"] = re.Advertised
		}
		if len(re.Missing) > 0 {
			details["missing"] = re.Missing
		}
		if len(details) == 0 {
			details = nil
		}
		return &CLIError{Code: string(re.Code), Message: re.Message, Details: details}
	}
	return &CLIError{Code: "UNKNOWN", Message: err.Error()}
}

// outputResolveText prints the resolve result in human-readable form.
func outputResolveText(formatter *OutputFormatter, result ResolveResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Document: %s (%d nodes)\n", result.Document, result.Nodes)

	ok := 0
	for _, dr := range result.Dependents {
		fmt.Fprintf(w, "\n=== %s (%s) ===\n", dr.Name, dr.Pass)

		if dr.Error != nil {
			fmt.Fprintf(w, "  error [%s]: %s\n", dr.Error.Code, dr.Error.Message)
			continue
		}

		for _, b := range dr.Bindings {
			fmt.Fprintf(w, "  %s <- %s = %s\n", b.Type, b.Source, formatBindingValue(b.Value))
		}
		if dr.Complete {
			fmt.Fprintln(w, "  complete")
			ok++
		} else {
			fmt.Fprintln(w, "  incomplete")
		}
	}

	fmt.Fprintf(w, "\nResolved %d/%d dependent(s)\n", ok, len(result.Dependents))
}

func formatBindingValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
