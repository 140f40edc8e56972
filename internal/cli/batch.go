package cli

import (
	"encoding/json"

	"visionkit/internal/core/vision"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/validate"
	"visionkit/internal/services/detect/domain"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// plan is a batch described in TOML:
//
//	[[entry]]
//	id = "faces"
//	kind = "face_rectangles"
//
//	[[entry]]
//	id = "words"
//	kind = "text"
//	[entry.config]
//	cpu_only = true
//	[entry.options]
//	languages = ["en-US"]
type plan struct {
	Entries []planEntry `toml:"entry"`
}

type planEntry struct {
	ID      string         `toml:"id"`
	Kind    string         `toml:"kind"`
	Config  vision.Config  `toml:"config"`
	Options map[string]any `toml:"options"`
}

// loadPlan decodes a plan file into a validated batch input
func loadPlan(path string) (domain.BatchInput, error) {
	var p plan
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return domain.BatchInput{}, perr.WithField(perr.Wrapf(err, perr.ErrorCodeConfiguration, "read plan %s", path), "plan")
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return domain.BatchInput{}, perr.WithField(perr.Configurationf("plan %s: unknown key %q", path, undec[0].String()), "plan")
	}

	in := domain.BatchInput{Entries: make([]domain.BatchEntry, 0, len(p.Entries))}
	for _, e := range p.Entries {
		spec := domain.RequestSpec{Kind: e.Kind, Config: e.Config}
		if len(e.Options) > 0 {
			raw, err := json.Marshal(e.Options)
			if err != nil {
				return domain.BatchInput{}, perr.Wrapf(err, perr.ErrorCodeConfiguration, "entry %q options", e.ID)
			}
			spec.Options = raw
		}
		in.Entries = append(in.Entries, domain.BatchEntry{ID: e.ID, RequestSpec: spec})
	}
	if err := validate.Struct(in, perr.ErrorCodeValidation); err != nil {
		return domain.BatchInput{}, err
	}
	return in, nil
}

func (a *app) batchCmd() *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "batch IMAGE",
		Short: "Run every entry of a TOML plan against one image",
		Long: `Runs the plan's entries together against one image and prints the results
keyed by entry id. When an entry fails the results that completed are still
printed, along with the failed entry id, and the command exits non zero.`,
		Example: `  visionkit batch --plan plan.toml photo.jpg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := loadPlan(planPath)
			if err != nil {
				return err
			}
			img, err := readImage(args[0])
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

			out, err := s.svc.DetectAll(ctx, in, img)
			if werr := printJSON(cmd.OutOrStdout(), out); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&planPath, "plan", "p", "plan.toml", "TOML batch plan")
	return cmd
}
