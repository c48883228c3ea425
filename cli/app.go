// Package cli contains the copc command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	generalFlagFile     = "file"
	generalFlagLogLevel = "log-level"
	generalFlagParallel = "parallel"
	generalFlagCodec    = "codec"

	nodesFlagDepth       = "depth"
	queryFlagBox         = "box"
	queryFlagWithin      = "within"
	queryFlagResolution  = "resolution"
	queryFlagPoints      = "points"
	pointsFlagKey        = "key"
	pointsFlagLimit      = "limit"
	exportFlagOut        = "out"
	validateFlagVerbose  = "verbose"
	defaultPointsToPrint = 10
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "copc",
		Usage:           "inspect and query Cloud Optimized Point Cloud files",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     generalFlagFile,
				Aliases:  []string{"f"},
				Usage:    "read the COPC `FILE`",
				EnvVars:  []string{"COPC_FILE"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    generalFlagLogLevel,
				Usage:   "log level: debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"COPC_LOG_LEVEL"},
			},
			&cli.IntFlag{
				Name:    generalFlagParallel,
				Usage:   "number of point chunks decoded at once, 0 for the default",
				EnvVars: []string{"COPC_PARALLEL"},
			},
			&cli.StringFlag{
				Name:    generalFlagCodec,
				Usage:   "registered codec for point chunks, empty for the one the file declares",
				EnvVars: []string{"COPC_CODEC"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "print the file's metadata and per depth statistics",
				Action: InfoAction,
			},
			{
				Name:  "nodes",
				Usage: "list the nodes of the hierarchy",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  nodesFlagDepth,
						Usage: "only list nodes at this depth",
						Value: -1,
					},
				},
				Action: NodesAction,
			},
			{
				Name:   "pages",
				Usage:  "list the hierarchy pages",
				Action: PagesAction,
			},
			{
				Name:  "find",
				Usage: "look up one node",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     pointsFlagKey,
						Usage:    "node key as d-x-y-z",
						Required: true,
					},
				},
				Action: FindAction,
			},
			{
				Name:  "query",
				Usage: "find the nodes inside or intersecting a box",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     queryFlagBox,
						Usage:    "box as xmin,ymin,xmax,ymax or xmin,ymin,zmin,xmax,ymax,zmax",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  queryFlagWithin,
						Usage: "only return nodes inside the box",
					},
					&cli.Float64Flag{
						Name:  queryFlagResolution,
						Usage: "skip nodes finer than this resolution, 0 for all depths",
					},
					&cli.BoolFlag{
						Name:  queryFlagPoints,
						Usage: "also count the points inside the box",
					},
				},
				Action: QueryAction,
			},
			{
				Name:  "points",
				Usage: "print the points of one node",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     pointsFlagKey,
						Usage:    "node key as d-x-y-z",
						Required: true,
					},
					&cli.IntFlag{
						Name:  pointsFlagLimit,
						Usage: "number of points to print, 0 for all",
						Value: defaultPointsToPrint,
					},
				},
				Action: PointsAction,
			},
			{
				Name:      "export",
				Usage:     "write the points of a node or a box to a LAS file",
				UsageText: "copc --file <FILE> export --out <OUT> [--key <KEY> | --box <BOX>]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     exportFlagOut,
						Usage:    "output LAS file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  pointsFlagKey,
						Usage: "export the points of the node d-x-y-z",
					},
					&cli.StringFlag{
						Name:  queryFlagBox,
						Usage: "export the points inside the box",
					},
					&cli.Float64Flag{
						Name:  queryFlagResolution,
						Usage: "skip nodes finer than this resolution, 0 for all depths",
					},
				},
				Action: ExportAction,
			},
			{
				Name:  "validate",
				Usage: "check that every point lies inside its node and the header bounds",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  validateFlagVerbose,
						Usage: "log every offending node",
					},
				},
				Action: ValidateAction,
			},
		},
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
