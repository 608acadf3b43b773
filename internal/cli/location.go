package cli

import (
	"context"

	"github.com/spf13/cobra"

	"expansioncore/pkg/domain"
)

func newLocationCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage candidate locations",
	}
	cmd.AddCommand(newLocationCreateCmd(opts))
	cmd.AddCommand(newLocationGetCmd(opts))
	cmd.AddCommand(newLocationStatusCmd(opts))
	cmd.AddCommand(newLocationTagsCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts, domain.EntityCandidateLocation))
	return cmd
}

func newLocationCreateCmd(opts *rootOptions) *cobra.Command {
	var location domain.CandidateLocation
	var planID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a candidate location in PENDING",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			location.PlanID = optionalID(planID)
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.CreateCandidateLocation(ctx, location, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&location.Code, "code", "", "Location code (generated when empty)")
	cmd.Flags().StringVar(&location.Name, "name", "", "Location name")
	cmd.Flags().StringVar(&location.Address, "address", "", "Street address")
	cmd.Flags().StringVar(&location.RegionID, "region", "", "Region id")
	cmd.Flags().StringVar(&planID, "plan", "", "Owning store plan id")
	cmd.Flags().Float64Var(&location.Area, "area", 0, "Floor area")
	cmd.Flags().Float64Var(&location.Rent, "rent", 0, "Monthly rent")
	cmd.Flags().Float64Var(&location.Score, "score", 0, "Evaluation score")
	cmd.Flags().StringSliceVar(&location.Tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().StringVar(&location.AssigneeID, "assignee", "", "Assignee id")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func newLocationGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a candidate location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				location, err := rt.store.GetCandidateLocation(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), location)
			})
		},
	}
}

func newLocationStatusCmd(opts *rootOptions) *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a candidate location to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := flags.change(args[1])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				location, err := rt.svc.ChangeLocationStatus(ctx, args[0], change, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), location)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newLocationTagsCmd(opts *rootOptions) *cobra.Command {
	var expected string

	cmd := &cobra.Command{
		Use:   "tags <id> [tag...]",
		Short: "Replace the tags of a candidate location",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := parseExpected(expected)
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				location, err := rt.svc.ReplaceLocationTags(ctx, args[0], args[1:], exp, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), location)
			})
		},
	}
	cmd.Flags().StringVar(&expected, "expected", "", "Last-modified stamp (RFC3339) the caller observed")
	return cmd
}
