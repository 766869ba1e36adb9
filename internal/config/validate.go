package config

import (
	"strings"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// Validate checks invariants that belong to Config itself, not to the
// feature metadata resolved from it (see internal/features for option/enum
// validation of FeatureMetadata).
func (c *Config) Validate() error {
	if c.Features != nil {
		for _, k := range c.Features.Keys() {
			if strings.TrimSpace(k) == "" {
				return coreerrors.ConfigValidation("feature reference must not be blank")
			}
		}
	}

	if c.IsComposePlan() && len(c.GetDockerComposeFiles()) == 0 {
		return coreerrors.ConfigValidation("dockerComposeFile must resolve to at least one file")
	}

	return nil
}
