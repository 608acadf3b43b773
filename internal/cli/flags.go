package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"expansioncore/internal/core"
	"expansioncore/pkg/domain"
)

// statusFlags carries the optional arguments of every "status" subcommand.
type statusFlags struct {
	reason   string
	comments string
	expected string
}

func (f *statusFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.reason, "reason", "", "Reason recorded in the audit note")
	cmd.Flags().StringVar(&f.comments, "comments", "", "Comments recorded in the audit note")
	cmd.Flags().StringVar(&f.expected, "expected", "", "Last-modified stamp (RFC3339) the caller observed")
}

func (f *statusFlags) change(to string) (core.StatusChange, error) {
	expected, err := parseExpected(f.expected)
	if err != nil {
		return core.StatusChange{}, err
	}
	return core.StatusChange{To: to, ExpectedLastModifiedAt: expected, Reason: f.reason, Comments: f.comments}, nil
}

func parseExpected(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, domain.NewBadRequestError("invalid --expected %q: %v", raw, err)
	}
	return &ts, nil
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// deleteOutput reports the outcome of a delete subcommand.
type deleteOutput struct {
	ID      string             `json:"id"`
	Outcome core.DeleteOutcome `json:"outcome"`
}

func newDeleteCmd(opts *rootOptions, entity domain.EntityType) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s, soft-deleting it when dependents exist", domain.EntityLabel(entity)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, rt *runtime) error {
				outcome, err := rt.svc.Delete(ctx, entity, args[0], rt.operator)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), deleteOutput{ID: args[0], Outcome: outcome})
			})
		},
	}
}
