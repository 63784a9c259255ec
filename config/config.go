// Package config defines the project configuration: the rotation and feature files to load and
// the reconstruction parameters.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/utils"
)

// Defaults applied to fields left unset.
const (
	DefaultVelocityDeltaTime = 1.0
	DefaultTreeCacheSize     = referenceframe.DefaultTreeCacheSize
)

// Config describes a reconstruction project.
type Config struct {
	ConfigFilePath string `json:"-"`

	RotationFiles      []string `json:"rotation_files"`
	FeatureFiles       []string `json:"feature_files"`
	AnchorPlate        uint32   `json:"anchor_plate"`
	ReconstructionTime float64  `json:"reconstruction_time"`
	VelocityDeltaTime  float64  `json:"velocity_delta_time,omitempty"`
	TimeEpsilon        float64  `json:"time_epsilon,omitempty"`
	TreeCacheSize      int      `json:"tree_cache_size,omitempty"`
	Debug              bool     `json:"debug,omitempty"`
}

// Anchor returns the anchor plate id.
func (c *Config) Anchor() referenceframe.PlateID {
	return referenceframe.PlateID(c.AnchorPlate)
}

// Ensure fills in defaults and resolves relative file paths against the config file's directory.
func (c *Config) Ensure() {
	if c.VelocityDeltaTime == 0 {
		c.VelocityDeltaTime = DefaultVelocityDeltaTime
	}
	if c.TimeEpsilon == 0 {
		c.TimeEpsilon = utils.DefaultTimeEpsilon
	}
	if c.TreeCacheSize == 0 {
		c.TreeCacheSize = DefaultTreeCacheSize
	}
	if c.ConfigFilePath == "" {
		return
	}
	dir := filepath.Dir(c.ConfigFilePath)
	resolve := func(paths []string) {
		for i, p := range paths {
			if p != "" && !filepath.IsAbs(p) {
				paths[i] = filepath.Join(dir, p)
			}
		}
	}
	resolve(c.RotationFiles)
	resolve(c.FeatureFiles)
}

// Validate reports every problem with the config.
func (c *Config) Validate() error {
	var errs error
	if len(c.RotationFiles) == 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("config", "rotation_files"))
	}
	for i, p := range c.RotationFiles {
		if p == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("rotation_files.%d", i), "path"))
		}
	}
	for i, p := range c.FeatureFiles {
		if p == "" {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(fmt.Sprintf("feature_files.%d", i), "path"))
		}
	}
	if c.VelocityDeltaTime < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("velocity_delta_time",
			errors.Errorf("must be positive, got %g", c.VelocityDeltaTime)))
	}
	if c.TimeEpsilon < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("time_epsilon",
			errors.Errorf("must not be negative, got %g", c.TimeEpsilon)))
	}
	if c.TreeCacheSize < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("tree_cache_size",
			errors.Errorf("must not be negative, got %d", c.TreeCacheSize)))
	}
	return errs
}
