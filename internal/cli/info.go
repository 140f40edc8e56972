package cli

import (
	"visionkit/internal/core/version"
	"visionkit/internal/core/vision"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/validate"
	"visionkit/internal/services/detect/domain"

	"github.com/spf13/cobra"
)

func (a *app) kindsCmd() *cobra.Command {
	var sequential bool
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the supported detection kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds := vision.Kinds()
			if sequential {
				out := kinds[:0:0]
				for _, k := range kinds {
					if k.Sequential {
						out = append(out, k)
					}
				}
				kinds = out
			}
			return printJSON(cmd.OutOrStdout(), kinds)
		},
	}
	cmd.Flags().BoolVar(&sequential, "sequential", false, "only kinds that need track")
	return cmd
}

func (a *app) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent journaled runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.journal == "" {
				return perr.WithField(perr.Configurationf("runs needs --journal"), "journal")
			}
			in := domain.RunsInput{Limit: limit}
			if err := validate.Struct(in, perr.ErrorCodeValidation); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			s, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.svc.Runs(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "how many runs to list")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), version.Info())
		},
	}
}
