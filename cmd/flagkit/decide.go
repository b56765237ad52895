package main

import (
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/client"
	"github.com/dmitrymomot/flagkit/pkg/decision"
)

type flagOutput struct {
	FlagKey   string         `json:"flagKey"`
	Enabled   bool           `json:"enabled"`
	Variation string         `json:"variationKey"`
	Rule      string         `json:"ruleKey"`
	Source    string         `json:"source,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Reasons   []string       `json:"reasons,omitempty"`
}

func newDecideCmd(a *app) *cobra.Command {
	var (
		attrs []string
		opts  client.DecideOptions
	)
	cmd := &cobra.Command{
		Use:   "decide <user-id> [flag-key...]",
		Short: "Decide feature flags for a user",
		Long: `Decide the given flags, or every flag of the datafile, for a user and
print the decisions as JSON. Decision events go to the configured sinks
unless --no-event is set.`,
		Example: `  flagkit decide user_1
  flagkit decide user_2 new_search --attr plan=pro --reasons`,
		Args: cobra.MinimumNArgs(1),
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

			userID, flagKeys := args[0], args[1:]
			var decisions []decision.FlagDecision
			if len(flagKeys) == 0 {
				all := c.DecideAll(ctx, userID, userAttrs, opts)
				for _, key := range slices.Sorted(maps.Keys(all)) {
					decisions = append(decisions, all[key])
				}
			} else {
				for _, key := range flagKeys {
					d := c.Decide(ctx, key, userID, userAttrs, opts)
					if opts.EnabledFlagsOnly && !d.Enabled {
						continue
					}
					decisions = append(decisions, d)
				}
			}

			out := make([]flagOutput, 0, len(decisions))
			for _, d := range decisions {
				out = append(out, flagOutput{
					FlagKey:   d.FlagKey,
					Enabled:   d.Enabled,
					Variation: d.VariationKey(),
					Rule:      d.RuleKey(),
					Source:    string(d.Source),
					Variables: d.Variables,
					Reasons:   d.Reasons,
				})
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringArrayVarP(&attrs, "attr", "a", nil, "user attribute as key=value, repeatable")
	cmd.Flags().BoolVar(&opts.IncludeReasons, "reasons", false, "include decision reasons")
	cmd.Flags().BoolVar(&opts.IgnoreProfile, "ignore-profile", false, "skip sticky assignments")
	cmd.Flags().BoolVar(&opts.ExcludeVariables, "no-variables", false, "omit feature variables")
	cmd.Flags().BoolVar(&opts.DisableDecisionEvent, "no-event", false, "do not send decision events")
	cmd.Flags().BoolVar(&opts.EnabledFlagsOnly, "enabled-only", false, "print enabled flags only")
	return cmd
}
