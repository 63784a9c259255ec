// Package cli contains the platerecon command line application.
package cli

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	configFlag    = "config"
	debugFlag     = "debug"
	rotationFlag  = "rotation"
	featuresFlag  = "features"
	timeFlag      = "time"
	anchorFlag    = "anchor"
	outputFlag    = "output"
	latFlag       = "lat"
	lonFlag       = "lon"
	plateFlag     = "plate"
	deltaFlag     = "delta"
	fieldFlag     = "field"
	velocityFlag  = "velocity"
	debounceFlag  = "debounce"
	plotWidthFlag = "width"
)

var app = &cli.App{
	Name:            "platerecon",
	Usage:           "reconstruct plate tectonic features to past geological times",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load project configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringSliceFlag{
			Name:    rotationFlag,
			Aliases: []string{"r"},
			Usage:   "PLATES4 rotation `FILE` to load (repeatable, overrides the config)",
		},
		&cli.StringSliceFlag{
			Name:    featuresFlag,
			Aliases: []string{"f"},
			Usage:   "GeoJSON feature `FILE` to load (repeatable, overrides the config)",
		},
		&cli.Float64Flag{
			Name:    timeFlag,
			Aliases: []string{"t"},
			Usage:   "reconstruction time in Ma",
		},
		&cli.UintFlag{
			Name:    anchorFlag,
			Aliases: []string{"a"},
			Usage:   "anchor plate id",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "reconstruct",
			Usage:     "reconstruct the features and write them as GeoJSON",
			UsageText: "platerecon [global options] reconstruct [-o FILE]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    outputFlag,
					Aliases: []string{"o"},
					Usage:   "write GeoJSON to `FILE` instead of stdout",
				},
			},
			Action: ReconstructAction,
		},
		{
			Name:   "tree",
			Usage:  "print the resolved rotation of every plate as an Euler pole",
			Action: TreeAction,
		},
		{
			Name:  "velocity",
			Usage: "print the velocity of a point moving with a plate, or of every reconstructed vertex",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: latFlag, Usage: "latitude of the point in degrees"},
				&cli.Float64Flag{Name: lonFlag, Usage: "longitude of the point in degrees"},
				&cli.UintFlag{Name: plateFlag, Usage: "plate the point moves with"},
				&cli.Float64Flag{Name: deltaFlag, Usage: "velocity interval in Ma (default from the config)"},
				&cli.BoolFlag{Name: fieldFlag, Usage: "summarize the velocity of every reconstructed vertex instead"},
			},
			Action: VelocityAction,
		},
		{
			Name:  "plot",
			Usage: "render the reconstructed features to a PNG map",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     outputFlag,
					Aliases:  []string{"o"},
					Usage:    "PNG `FILE` to write",
					Required: true,
				},
				&cli.BoolFlag{Name: velocityFlag, Usage: "draw velocity arrows"},
				&cli.Float64Flag{Name: deltaFlag, Usage: "velocity interval in Ma (default from the config)"},
				&cli.Float64Flag{Name: plotWidthFlag, Value: 10, Usage: "image width in inches"},
			},
			Action: PlotAction,
		},
		{
			Name:  "watch",
			Usage: "reconstruct again whenever a rotation or feature file changes",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    outputFlag,
					Aliases: []string{"o"},
					Usage:   "write GeoJSON to `FILE` instead of stdout",
				},
				&cli.DurationFlag{
					Name:  debounceFlag,
					Value: 500 * time.Millisecond,
					Usage: "wait this long after the last change before reconstructing",
				},
			},
			Action: WatchAction,
		},
	},
}

// NewApp returns the app with the given output writers.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
