package cli

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tectonics/platerecon/config"
	"github.com/tectonics/platerecon/feature"
	"github.com/tectonics/platerecon/logging"
	"github.com/tectonics/platerecon/reconstruct"
)

// project is a loaded configuration with its files and orchestrator.
type project struct {
	// ctx has debug mode enabled when the config asks for debug logging.
	ctx          context.Context
	cfg          *config.Config
	logger       logging.Logger
	fileState    *feature.FileState
	orchestrator *reconstruct.Orchestrator
}

func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("platerecon")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logger.SetLevel(logging.INFO)
	if c.Bool(debugFlag) {
		logger.SetLevel(logging.DEBUG)
	}
	logging.ReplaceGlobal(logger)
	return logger
}

// projectConfig reads the config file, if any, and applies the global flags on top of it. File
// flags are relative to the working directory, not the config file.
func projectConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String(configFlag); path != "" {
		var err error
		if cfg, err = config.Read(c.Context, path, logger); err != nil {
			return nil, err
		}
	} else {
		cfg.Ensure()
	}
	if c.IsSet(rotationFlag) {
		cfg.RotationFiles = c.StringSlice(rotationFlag)
	}
	if c.IsSet(featuresFlag) {
		cfg.FeatureFiles = c.StringSlice(featuresFlag)
	}
	if c.IsSet(timeFlag) {
		cfg.ReconstructionTime = c.Float64(timeFlag)
	}
	if c.IsSet(anchorFlag) {
		cfg.AnchorPlate = uint32(c.Uint(anchorFlag))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newProject(c *cli.Context) (*project, error) {
	logger := newLogger(c)
	cfg, err := projectConfig(c, logger)
	if err != nil {
		return nil, err
	}
	ctx := c.Context
	if cfg.Debug && !c.Bool(debugFlag) {
		ctx = logging.EnableDebugMode(ctx, "config")
	}

	fs := feature.NewFileState()
	if err := loadFiles(ctx, cfg, fs); err != nil {
		return nil, err
	}
	o := reconstruct.NewOrchestrator(fs, logger,
		reconstruct.WithTimeEpsilon(cfg.TimeEpsilon),
		reconstruct.WithTreeCacheSize(cfg.TreeCacheSize),
		reconstruct.WithInitialTime(cfg.ReconstructionTime),
		reconstruct.WithAnchor(cfg.Anchor()),
	)
	return &project{ctx: ctx, cfg: cfg, logger: logger, fileState: fs, orchestrator: o}, nil
}

// loadFiles parses every configured file concurrently and adds the collections in config order.
// All load errors are reported together.
func loadFiles(ctx context.Context, cfg *config.Config, fs *feature.FileState) error {
	rotations := make([]*feature.RotationCollection, len(cfg.RotationFiles))
	features := make([]*feature.FeatureCollection, len(cfg.FeatureFiles))
	errs := make([]error, len(cfg.RotationFiles)+len(cfg.FeatureFiles))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range cfg.RotationFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rotations[i], errs[i] = feature.LoadRotationFile(path)
			return nil
		})
	}
	for i, path := range cfg.FeatureFiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			features[i], errs[len(cfg.RotationFiles)+i] = feature.LoadGeoJSONFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := multierr.Combine(errs...); err != nil {
		return errors.Wrap(err, "failed to load project files")
	}
	for _, rc := range rotations {
		fs.AddRotationCollection(rc)
	}
	for _, fc := range features {
		fs.AddFeatureCollection(fc)
	}
	return nil
}

// reload parses a single changed file again and replaces its collection. It returns false for
// files that are not part of the project.
func (p *project) reload(path string) (bool, error) {
	switch {
	case slices.Contains(p.cfg.RotationFiles, path):
		rc, err := feature.LoadRotationFile(path)
		if err != nil {
			return true, err
		}
		p.fileState.AddRotationCollection(rc)
	case slices.Contains(p.cfg.FeatureFiles, path):
		fc, err := feature.LoadGeoJSONFile(path)
		if err != nil {
			return true, err
		}
		p.fileState.AddFeatureCollection(fc)
	default:
		return false, nil
	}
	p.logger.Infow("reloaded file", "file", path)
	return true, nil
}

// files returns every configured file.
func (p *project) files() []string {
	return slices.Concat(p.cfg.RotationFiles, p.cfg.FeatureFiles)
}
