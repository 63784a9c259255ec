package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/tectonics/platerecon/reconstruct"
	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
	"github.com/tectonics/platerecon/utils"
)

const (
	speedHistogramBins  = 10
	speedHistogramWidth = 40
)

// VelocityAction prints the velocity of a point moving with a plate, or with --field a summary of
// the velocity of every reconstructed vertex.
func VelocityAction(c *cli.Context) error {
	p, err := newProject(c)
	if err != nil {
		return err
	}
	delta := p.cfg.VelocityDeltaTime
	if c.IsSet(deltaFlag) {
		delta = c.Float64(deltaFlag)
	}
	if delta <= 0 {
		return errors.Errorf("--%s must be positive, got %g", deltaFlag, delta)
	}

	if c.Bool(fieldFlag) {
		if _, err := p.orchestrator.Reconstruct(p.ctx); err != nil {
			return err
		}
		field, err := p.orchestrator.VelocityField(p.ctx, delta)
		if err != nil {
			return err
		}
		printf(c.App.Writer, "%s", velocityFieldTable(field))
		if err := printSpeedHistogram(c.App.Writer, field); err != nil {
			return err
		}
		if field.Skipped > 0 {
			warningf(c.App.ErrWriter, "%d vertices have no rotation at %g Ma", field.Skipped, field.Time+field.DeltaTime)
		}
		return nil
	}

	for _, name := range []string{latFlag, lonFlag, plateFlag} {
		if !c.IsSet(name) {
			return errors.Errorf("--%s is required unless --%s is given", name, fieldFlag)
		}
	}
	lat, lon := c.Float64(latFlag), utils.WrapLonDeg(c.Float64(lonFlag))
	if math.Abs(lat) > 90 {
		return errors.Errorf("latitude %g out of range", lat)
	}
	point := spatialmath.PointFromLatLon(lat, lon)
	plate := referenceframe.PlateID(c.Uint(plateFlag))

	o := p.orchestrator
	t1, t2 := o.Time(), o.Time()+delta
	v, err := o.VelocityAt(p.ctx, point, plate, t1, t2)
	if err != nil {
		return err
	}
	displacement, err := displacementKm(o, point, plate, t1, t2)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", velocityTable(v, t1, t2, displacement))
	return nil
}

// displacementKm is how far point, given at t1, travelled with plate between t2 and t1.
func displacementKm(o *reconstruct.Orchestrator, point r3.Vector, plate referenceframe.PlateID, t1, t2 float64) (float64, error) {
	r1, ok := o.TreeCache().Get(t1, o.Anchor()).Rotation(plate)
	if !ok {
		return 0, errors.Errorf("plate %d has no rotation at %g Ma", plate, t1)
	}
	r2, ok := o.TreeCache().Get(t2, o.Anchor()).Rotation(plate)
	if !ok {
		return 0, errors.Errorf("plate %d has no rotation at %g Ma", plate, t2)
	}
	past := spatialmath.StageRotation(r2, r1).Rotate(point)
	return spatialmath.GreatCircleDistanceKm(past, point), nil
}

func velocityTable(v reconstruct.Velocity, t1, t2, displacement float64) string {
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("velocity of plate %d between %g and %g Ma", v.Plate, t1, t2))
	tw.AppendHeader(table.Row{"lat", "lon", "speed (cm/yr)", "azimuth", "colat (cm/yr)", "lon (cm/yr)", "moved (km)"})
	tw.AppendRow(table.Row{
		fmt.Sprintf("%.4f", v.Point.Lat),
		fmt.Sprintf("%.4f", v.Point.Lon),
		fmt.Sprintf("%.4f", v.Magnitude),
		fmt.Sprintf("%.2f", utils.RadToDeg(v.Azimuth)),
		fmt.Sprintf("%.4f", v.Colat),
		fmt.Sprintf("%.4f", v.Lon),
		fmt.Sprintf("%.1f", displacement),
	})
	return tw.Render()
}

// printSpeedHistogram prints the distribution of speeds in the field, in cm/yr. Nothing is
// printed when all speeds are equal.
func printSpeedHistogram(w io.Writer, field *reconstruct.VelocityField) error {
	if len(field.Samples) == 0 || field.Summary.Min == field.Summary.Max {
		return nil
	}
	speeds := make([]float64, len(field.Samples))
	for i, v := range field.Samples {
		speeds[i] = v.Vector.Norm()
	}
	printf(w, "speed (cm/yr)")
	return histogram.Fprint(w, histogram.Hist(speedHistogramBins, speeds), histogram.Linear(speedHistogramWidth))
}

func velocityFieldTable(field *reconstruct.VelocityField) string {
	s := field.Summary
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("velocity field at %g Ma over %g Ma relative to plate %d", field.Time, field.DeltaTime, field.Anchor))
	tw.AppendHeader(table.Row{"vertices", "min", "max", "mean", "median", "std dev"})
	tw.AppendRow(table.Row{
		s.Count,
		fmt.Sprintf("%.4f", s.Min),
		fmt.Sprintf("%.4f", s.Max),
		fmt.Sprintf("%.4f", s.Mean),
		fmt.Sprintf("%.4f", s.Median),
		fmt.Sprintf("%.4f", s.StandardDeviation),
	})
	return tw.Render()
}
