package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/ir"
)

// StoredRelation summarizes one relation held in the store.
type StoredRelation struct {
	Name       string          `json:"name"`
	Attributes []AttributeView `json:"attributes"`
	Tuples     int             `json:"tuples"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [relation]",
		Short: "List stored relations or print one",
		Long: `Without an argument, list every relation in the store with its header
and cardinality. With a relation name, print that relation's tuples.

Examples:
  relalg show
  relalg show people --format table`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runShowRelation(rootOpts, args[0], cmd)
			}
			return runShowStore(rootOpts, cmd)
		},
	}

	return cmd
}

func runShowStore(opts *RootOptions, cmd *cobra.Command) error {
	ctx := ctxOf(cmd)
	formatter := opts.formatter(cmd)

	st, err := openStore(opts.settings().Database)
	if err != nil {
		return report(formatter, ExitCommandError, "cannot open store", err)
	}
	defer st.Close()

	names, err := st.Relations(ctx)
	if err != nil {
		return report(formatter, ExitCommandError, "listing relations", &LoadError{Code: ErrCodeStoreFailed, Message: err.Error()})
	}

	stored := make([]StoredRelation, 0, len(names))
	for _, name := range names {
		rel, err := st.LoadRelation(ctx, name)
		if err != nil {
			return report(formatter, ExitCommandError, "loading relation", err)
		}
		stored = append(stored, StoredRelation{
			Name:       name.String(),
			Attributes: attributeViews(rel.Schema()),
			Tuples:     rel.Len(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{"relations": stored})
	}
	if len(stored) == 0 {
		fmt.Fprintln(formatter.Writer, "No relations stored")
		return nil
	}
	for _, rel := range stored {
		attrs := make([]string, len(rel.Attributes))
		for i, a := range rel.Attributes {
			attrs[i] = a.Name + ":" + a.Domain
		}
		fmt.Fprintf(formatter.Writer, "%s(%s) %d tuple(s)\n", rel.Name, strings.Join(attrs, ", "), rel.Tuples)
	}
	return nil
}

func runShowRelation(opts *RootOptions, relation string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	name, err := ir.ParseName(relation)
	if err != nil {
		return report(formatter, ExitCommandError, "invalid relation name", err)
	}

	st, err := openStore(opts.settings().Database)
	if err != nil {
		return report(formatter, ExitCommandError, "cannot open store", err)
	}
	defer st.Close()

	rel, err := st.LoadRelation(ctxOf(cmd), name)
	if err != nil {
		return report(formatter, ExitFailure, "cannot load relation", err)
	}
	return formatter.Relation(rel, "")
}
