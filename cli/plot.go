package cli

import (
	"fmt"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/tectonics/platerecon/reconstruct"
	"github.com/tectonics/platerecon/referenceframe"
	"github.com/tectonics/platerecon/spatialmath"
)

// longest velocity arrow drawn, in degrees.
const maxArrowDegrees = 5.0

var arrowColor = color.RGBA{R: 200, G: 50, B: 40, A: 255}

// plateColor gives every plate a stable color, spreading consecutive ids around the hue circle.
func plateColor(plate referenceframe.PlateID) color.Color {
	hue := math.Mod(float64(plate)*137.508, 360)
	return colorful.Hsv(hue, 0.7, 0.75)
}

// PlotAction renders the reconstruction, and optionally its velocity field, to a PNG file.
func PlotAction(c *cli.Context) error {
	p, err := newProject(c)
	if err != nil {
		return err
	}
	r, err := p.orchestrator.Reconstruct(p.ctx)
	if err != nil {
		return err
	}
	var field *reconstruct.VelocityField
	if c.Bool(velocityFlag) {
		delta := p.cfg.VelocityDeltaTime
		if c.IsSet(deltaFlag) {
			delta = c.Float64(deltaFlag)
		}
		if field, err = p.orchestrator.VelocityField(p.ctx, delta); err != nil {
			return err
		}
	}
	pl, err := newReconstructionPlot(r, field)
	if err != nil {
		return err
	}
	width := vg.Length(c.Float64(plotWidthFlag)) * vg.Inch
	path := c.String(outputFlag)
	if err := pl.Save(width, width/2, path); err != nil {
		return errors.Wrapf(err, "failed to save plot to %q", path)
	}
	printf(c.App.ErrWriter, "plotted %d geometries at %g Ma to %s", len(r.Geometries()), r.Time(), path)
	return nil
}

// newReconstructionPlot draws every reconstructed geometry in an equirectangular projection.
func newReconstructionPlot(r *reconstruct.Reconstruction, field *reconstruct.VelocityField) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%g Ma, anchor plate %d", r.Time(), r.Anchor())
	pl.X.Label.Text = "longitude"
	pl.Y.Label.Text = "latitude"
	pl.X.Min, pl.X.Max = -180, 180
	pl.Y.Min, pl.Y.Max = -90, 90
	pl.Add(plotter.NewGrid())

	for _, rfg := range r.Geometries() {
		c := plateColor(rfg.Feature.PlateID)
		switch g := rfg.Geometry.(type) {
		case *spatialmath.PointGeometry, *spatialmath.MultiPointGeometry:
			scatter, err := plotter.NewScatter(lonLats(g.Points()))
			if err != nil {
				return nil, errors.Wrapf(err, "feature %s", rfg.Feature.ID)
			}
			scatter.GlyphStyle.Color = c
			scatter.GlyphStyle.Radius = vg.Points(2)
			scatter.GlyphStyle.Shape = draw.CircleGlyph{}
			pl.Add(scatter)
		case *spatialmath.PolylineGeometry:
			if err := addPath(pl, g.Vertices, false, c); err != nil {
				return nil, errors.Wrapf(err, "feature %s", rfg.Feature.ID)
			}
		case *spatialmath.PolygonGeometry:
			for _, ring := range append([][]r3.Vector{g.Exterior}, g.Interiors...) {
				if err := addPath(pl, ring, true, c); err != nil {
					return nil, errors.Wrapf(err, "feature %s", rfg.Feature.ID)
				}
			}
		default:
			return nil, errors.Errorf("feature %s: cannot plot %v", rfg.Feature.ID, rfg.Geometry.Type())
		}
	}
	if field != nil {
		if err := addVelocityArrows(pl, field); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

func lonLats(points []r3.Vector) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		ll := spatialmath.LatLonFromPoint(p)
		xys[i] = plotter.XY{X: ll.Lon, Y: ll.Lat}
	}
	return xys
}

// splitAtDateline breaks a path wherever consecutive vertices are more than 180 degrees of
// longitude apart.
func splitAtDateline(xys plotter.XYs) []plotter.XYs {
	var parts []plotter.XYs
	start := 0
	for i := 1; i < len(xys); i++ {
		if math.Abs(xys[i].X-xys[i-1].X) > 180 {
			parts = append(parts, xys[start:i])
			start = i
		}
	}
	return append(parts, xys[start:])
}

func addPath(pl *plot.Plot, vertices []r3.Vector, closed bool, c color.Color) error {
	xys := lonLats(vertices)
	if closed && len(xys) > 0 {
		xys = append(xys, xys[0])
	}
	for _, part := range splitAtDateline(xys) {
		if len(part) < 2 {
			continue
		}
		line, err := plotter.NewLine(part)
		if err != nil {
			return err
		}
		line.Color = c
		line.Width = vg.Points(1)
		pl.Add(line)
	}
	return nil
}

// addVelocityArrows draws each sample as a segment pointing along its velocity, scaled so the
// fastest sample spans maxArrowDegrees.
func addVelocityArrows(pl *plot.Plot, field *reconstruct.VelocityField) error {
	if field.Summary.Max <= 0 {
		return nil
	}
	scale := maxArrowDegrees / field.Summary.Max
	for _, v := range field.Samples {
		// Colat is positive south.
		east, north := v.Lon*scale, -v.Colat*scale
		arrow, err := plotter.NewLine(plotter.XYs{
			{X: v.Point.Lon, Y: v.Point.Lat},
			{X: v.Point.Lon + east, Y: v.Point.Lat + north},
		})
		if err != nil {
			return err
		}
		arrow.Color = arrowColor
		arrow.Width = vg.Points(0.75)
		pl.Add(arrow)
	}
	return nil
}
