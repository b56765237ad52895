package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/project"
)

var errInvalidDatafile = errors.New("datafile is invalid")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [datafile]",
		Short: "Check a datafile and summarize its entities",
		Long: `Decode a JSON or YAML datafile, resolve every cross-reference and print
a summary. Every problem found is listed and the command fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Datafile
			if len(args) == 1 {
				path = args[0]
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read datafile: %w", err)
			}

			cfg, err := project.Parse(data)
			if err != nil {
				problems := unjoin(err)
				for _, p := range problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %v\n", p)
				}
				return fmt.Errorf("%w: %s: %d problem(s)", errInvalidDatafile, path, len(problems))
			}

			var rollouts int
			for _, f := range cfg.Features() {
				if f.RolloutID != "" {
					rollouts++
				}
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "datafile\t%s\n", path)
			fmt.Fprintf(w, "revision\t%s\n", cfg.Revision())
			fmt.Fprintf(w, "project\t%s\n", cfg.ProjectID())
			fmt.Fprintf(w, "experiments\t%d\n", len(cfg.Experiments()))
			fmt.Fprintf(w, "flags\t%d\n", len(cfg.Features()))
			fmt.Fprintf(w, "flags with rollouts\t%d\n", rollouts)
			fmt.Fprintf(w, "events\t%d\n", len(cfg.Events()))
			return w.Flush()
		},
	}
}

// unjoin flattens errors.Join trees into their leaves.
func unjoin(err error) []error {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, unjoin(e)...)
	}
	return out
}
