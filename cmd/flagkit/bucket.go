package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/bucketer"
	"github.com/dmitrymomot/flagkit/pkg/project"
)

func newBucketCmd(a *app) *cobra.Command {
	var bucketingID string
	cmd := &cobra.Command{
		Use:   "bucket <experiment-key> <user-id>",
		Short: "Explain how a user is bucketed into an experiment",
		Long: `Print the bucket values and the resulting variation for a user,
ignoring audiences, overrides and sticky assignments.`,
		Example: `  flagkit bucket checkout_flow user_1
  flagkit bucket checkout_flow user_1 --bucketing-id device_42`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readDatafile()
			if err != nil {
				return err
			}
			cfg, err := project.Parse(data)
			if err != nil {
				return err
			}
			exp, ok := cfg.ExperimentByKey(args[0])
			if !ok {
				return fmt.Errorf("experiment %q not found", args[0])
			}
			key := args[1]
			if bucketingID != "" {
				key = bucketingID
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "experiment\t%s (%s)\n", exp.Key, exp.ID)
			fmt.Fprintf(w, "bucketing key\t%s\n", key)
			if group, ok := cfg.Group(exp.GroupID); ok {
				fmt.Fprintf(w, "group\t%s (%s)\n", group.ID, group.Policy)
				if group.IsMutuallyExclusive() {
					fmt.Fprintf(w, "group bucket\t%d\n", bucketer.BucketValue(key+group.ID))
				}
			}
			fmt.Fprintf(w, "bucket\t%d\n", bucketer.BucketValue(key+exp.ID))

			v, outcome := bucketer.Experiment(cfg, exp, key)
			fmt.Fprintf(w, "outcome\t%s\n", outcome)
			if v != nil {
				fmt.Fprintf(w, "variation\t%s (%s)\n", v.Key, v.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&bucketingID, "bucketing-id", "", "hash this id instead of the user id")
	return cmd
}
