package vision

import (
	"visionkit/internal/core/geometry"
	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"
)

// Config holds the settings shared by every kind; nil fields use framework defaults
type Config struct {
	Revision         *int           `json:"revision,omitempty" toml:"revision"`
	RegionOfInterest *geometry.Rect `json:"region_of_interest,omitempty" toml:"region_of_interest"`
	CPUOnly          bool           `json:"cpu_only,omitempty" toml:"cpu_only"`
	PreferBackground *bool          `json:"prefer_background,omitempty" toml:"prefer_background"`
}

// Validate rejects contradictory or out-of-range settings
func (c Config) Validate() error {
	if c.Revision != nil && *c.Revision < 1 {
		return perr.WithField(perr.Configurationf("revision must be at least 1, got %d", *c.Revision), "revision")
	}
	if roi := c.RegionOfInterest; roi != nil && !roi.InUnitSquare() {
		return perr.WithField(
			perr.Configurationf("region of interest %+v must lie inside the unit square with a positive area", *roi),
			"region_of_interest",
		)
	}
	return nil
}

func (c Config) apply(r *native.Request) {
	if c.Revision != nil {
		r.Revision = *c.Revision
	}
	if c.RegionOfInterest != nil {
		roi := *c.RegionOfInterest
		r.RegionOfInterest = &roi
	}
	r.CPUOnly = c.CPUOnly
	r.PreferBackground = true
	if c.PreferBackground != nil {
		r.PreferBackground = *c.PreferBackground
	}
}
