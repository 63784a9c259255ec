package cli

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/tectonics/platerecon/feature"
	"github.com/tectonics/platerecon/reconstruct"
)

// ReconstructAction reconstructs the project's features and writes them as GeoJSON.
func ReconstructAction(c *cli.Context) error {
	p, err := newProject(c)
	if err != nil {
		return err
	}
	r, err := p.orchestrator.Reconstruct(p.ctx)
	if err != nil {
		return err
	}
	if err := writeReconstruction(c.App.Writer, c.String(outputFlag), r); err != nil {
		return err
	}
	reportReconstruction(c.App.ErrWriter, r)
	return nil
}

// writeReconstruction writes r as GeoJSON to path, or to w when path is empty.
func writeReconstruction(w io.Writer, path string, r *reconstruct.Reconstruction) (err error) {
	fc, err := r.GeoJSON()
	if err != nil {
		return err
	}
	if path == "" {
		return feature.WriteGeoJSON(w, fc)
	}
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return feature.WriteGeoJSON(f, fc)
}

func reportReconstruction(w io.Writer, r *reconstruct.Reconstruction) {
	printf(w, "reconstructed %d geometries at %g Ma relative to plate %d",
		len(r.Geometries()), r.Time(), r.Anchor())
	excluded := r.Excluded()
	if len(excluded) == 0 {
		return
	}
	counts := lo.CountValuesBy(excluded, func(e reconstruct.ExcludedFeature) reconstruct.ExclusionReason {
		return e.Reason
	})
	for _, reason := range []reconstruct.ExclusionReason{
		reconstruct.PlateNotResolvable,
		reconstruct.NotValidAtTime,
		reconstruct.NoGeometry,
	} {
		if counts[reason] > 0 {
			warningf(w, "%d features excluded: %v", counts[reason], reason)
		}
	}
}

// TreeAction prints the reconstruction tree at the project's time and anchor.
func TreeAction(c *cli.Context) error {
	p, err := newProject(c)
	if err != nil {
		return err
	}
	o := p.orchestrator
	o.SyncRotations()
	if o.RotationContext().Len() == 0 {
		return reconstruct.ErrNoRotationFeatures
	}
	tree := o.TreeCache().Get(o.Time(), o.Anchor())
	printf(c.App.Writer, "%s", tree.String())
	return nil
}
