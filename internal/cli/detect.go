package cli

import (
	"encoding/json"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/vision"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/net/http/bind"
	"visionkit/internal/services/detect/domain"

	"github.com/spf13/cobra"
)

// specFlags are the request flags detect and track share
type specFlags struct {
	options string
	config  string
}

func (f *specFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.options, "options", "o", "", "kind specific options as a JSON object")
	cmd.Flags().StringVarP(&f.config, "config", "c", "", `shared request config as JSON, e.g. {"cpu_only":true}`)
}

func (f *specFlags) spec(kind string) (domain.RequestSpec, error) {
	spec := domain.RequestSpec{Kind: kind}
	if f.config != "" {
		c, err := bind.Bytes[vision.Config]([]byte(f.config))
		if err != nil {
			return spec, perr.WithField(err, "config")
		}
		spec.Config = c
	}
	if f.options != "" {
		if !json.Valid([]byte(f.options)) {
			return spec, perr.WithField(perr.JSONErrf("options are not valid JSON"), "options")
		}
		spec.Options = json.RawMessage(f.options)
	}
	return spec, nil
}

func (a *app) detectCmd() *cobra.Command {
	var flags specFlags
	cmd := &cobra.Command{
		Use:   "detect KIND IMAGE",
		Short: "Run one detection kind against an image",
		Example: `  visionkit detect face_rectangles photo.jpg
  visionkit detect text scan.png -o '{"languages":["en-US"]}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec(args[0])
			if err != nil {
				return err
			}
			img, err := readImage(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			s, err := a.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := s.svc.Detect(ctx, spec, img)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) trackCmd() *cobra.Command {
	var flags specFlags
	cmd := &cobra.Command{
		Use:     "track KIND FRAME...",
		Short:   "Run a tracking kind over frames in order",
		Example: `  visionkit track trajectories f0.png f1.png f2.png -o '{"trajectory_length":8}'`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := flags.spec(args[0])
			if err != nil {
				return err
			}
			frames := make([]imageinput.Input, 0, len(args)-1)
			for _, p := range args[1:] {
				img, err := readImage(p)
				if err != nil {
					return err
				}
				frames = append(frames, img)
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			s, err := a.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := s.svc.Track(ctx, spec, frames)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	flags.register(cmd)
	return cmd
}
