package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVariationCmd(a *app) *cobra.Command {
	var (
		attrs    []string
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "variation <experiment-key> <user-id>",
		Short: "Print the variation of an experiment for a user",
		Long: `Print the variation key the user is assigned in an experiment, or
nothing when the user is not bucketed. With --activate an impression is
sent as well.`,
		Example: `  flagkit variation checkout_flow user_1 --attr age=30 --attr country=US`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userAttrs, err := parseAttributes(attrs)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, _, err := a.newClient(ctx, nil)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(ctx) }()

			fn := c.GetVariation
			if activate {
				fn = c.Activate
			}
			if key := fn(ctx, args[0], args[1], userAttrs); key != "" {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&attrs, "attr", "a", nil, "user attribute as key=value, repeatable")
	cmd.Flags().BoolVar(&activate, "activate", false, "send an impression event")
	return cmd
}
