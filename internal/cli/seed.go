package cli

import (
	"context"

	"github.com/spf13/cobra"

	"expansioncore/pkg/domain"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create reference data",
	}
	cmd.AddCommand(newSeedRegionCmd(opts))
	cmd.AddCommand(newSeedEntityCmd(opts))
	return cmd
}

func newSeedRegionCmd(opts *rootOptions) *cobra.Command {
	var region domain.Region
	var inactive bool

	cmd := &cobra.Command{
		Use:   "region",
		Short: "Create a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			region.Active = !inactive
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.CreateRegion(ctx, region, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&region.Code, "code", "", "Region code")
	cmd.Flags().StringVar(&region.Name, "name", "", "Region name")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the region inactive")
	return cmd
}

func newSeedEntityCmd(opts *rootOptions) *cobra.Command {
	var entity domain.BusinessEntity
	var inactive bool

	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Create a business entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entity.Active = !inactive
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				created, err := rt.svc.CreateBusinessEntity(ctx, entity, rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), created)
			})
		},
	}
	cmd.Flags().StringVar(&entity.Code, "code", "", "Entity code")
	cmd.Flags().StringVar(&entity.Name, "name", "", "Entity name")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the entity inactive")
	return cmd
}
