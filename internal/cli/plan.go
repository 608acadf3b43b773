package cli

import (
	"context"

	"github.com/spf13/cobra"

	"expansioncore/pkg/domain"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage store plans",
	}
	cmd.AddCommand(newPlanCreateCmd(opts))
	cmd.AddCommand(newPlanGetCmd(opts))
	cmd.AddCommand(newPlanStatusCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts, domain.EntityStorePlan))
	return cmd
}

func newPlanCreateCmd(opts *rootOptions) *cobra.Command {
	var plan domain.StorePlan

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a store plan in DRAFT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.CreateStorePlan(ctx, plan, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&plan.Code, "code", "", "Plan code (generated when empty)")
	cmd.Flags().StringVar(&plan.Name, "name", "", "Plan name")
	cmd.Flags().IntVar(&plan.Year, "year", 0, "Plan year")
	cmd.Flags().IntVar(&plan.Quarter, "quarter", 0, "Plan quarter (1-4)")
	cmd.Flags().StringVar(&plan.RegionID, "region", "", "Region id")
	cmd.Flags().StringVar(&plan.EntityID, "entity", "", "Business entity id")
	cmd.Flags().StringVar(&plan.StoreType, "store-type", "", "Store type")
	cmd.Flags().IntVar(&plan.PlannedCount, "planned", 0, "Number of stores planned")
	cmd.Flags().Float64Var(&plan.Budget, "budget", 0, "Budget")
	cmd.Flags().StringVar(&plan.Notes, "notes", "", "Initial notes")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func newPlanGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a store plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				plan, err := rt.store.GetStorePlan(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), plan)
			})
		},
	}
}

func newPlanStatusCmd(opts *rootOptions) *cobra.Command {
	var flags statusFlags

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a store plan to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := flags.change(args[1])
			if err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				plan, err := rt.svc.ChangePlanStatus(ctx, args[0], change, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), plan)
			})
		},
	}
	flags.register(cmd)
	return cmd
}
