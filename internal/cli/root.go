// Package cli implements the expansionctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"expansioncore/pkg/domain"
)

type rootOptions struct {
	configPath  string
	operator    string
	metricsAddr string
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		writeError(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// NewRootCmd builds the expansionctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "expansionctl",
		Short:         "Manage store plans, candidate locations, store files and follow-ups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (env: EXPANSION_*)")
	cmd.PersistentFlags().StringVar(&opts.operator, "operator", "", "Operator id recorded in notes and audit entries")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address while the command runs")

	cmd.AddCommand(newPlanCmd(opts))
	cmd.AddCommand(newLocationCmd(opts))
	cmd.AddCommand(newFileCmd(opts))
	cmd.AddCommand(newFollowUpCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type errorOutput struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind"`
}

func writeError(w io.Writer, err error) {
	if errors.Is(err, errBatchFailures) {
		return
	}
	if encErr := writeJSON(w, errorOutput{Error: err.Error(), Kind: domain.KindOf(err)}); encErr != nil {
		_, _ = fmt.Fprintln(w, err)
	}
}
