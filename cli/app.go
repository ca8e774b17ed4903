// Package cli contains all business logic needed by the autostitch CLI command.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagSeed        = "seed"
	flagIterations  = "iterations"
	flagEpsilon     = "epsilon"
	flagInlierScope = "inlier-scope"
	flagThreshold   = "threshold"
	flagRadius      = "radius"
	flagBilinear    = "bilinear"
	flagMaxSize     = "max-size"
	flagDebugDir    = "debug-dir"
)

// pipelineFlags override fields of the loaded configuration when set.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  flagSeed,
			Usage: "seed of the RANSAC sampler",
		},
		&cli.IntFlag{
			Name:  flagIterations,
			Usage: "number of RANSAC trials",
		},
		&cli.Float64Flag{
			Name:  flagEpsilon,
			Usage: "inlier distance in pixels",
		},
		&cli.StringFlag{
			Name:  flagInlierScope,
			Usage: "score RANSAC trials against the \"full\" correspondence set or the \"sample\" only",
		},
		&cli.Float64Flag{
			Name:  flagThreshold,
			Usage: "ratio test threshold of the matcher",
		},
		&cli.IntFlag{
			Name:  flagRadius,
			Usage: "descriptor radius in pixels",
		},
		&cli.IntFlag{
			Name:  flagMaxSize,
			Usage: "detect features on images downscaled to at most this many pixels per side",
		},
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "autostitch",
		Usage:           "stitch two overlapping photos into a panorama",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load pipeline configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also append JSON logs to `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "stitch",
				Usage:     "estimate the homography between two images and composite them",
				ArgsUsage: "<image a> <image b> <panorama>",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  flagBilinear,
						Value: true,
						Usage: "sample bilinearly when warping",
					},
					&cli.StringFlag{
						Name:  flagDebugDir,
						Usage: "write intermediate images to `DIR`",
					},
				}, pipelineFlags()...),
				Action: StitchAction,
			},
			{
				Name:      "corners",
				Usage:     "detect Harris corners and draw them over the image",
				ArgsUsage: "<image> <overlay>",
				Action:    CornersAction,
			},
			{
				Name:      "match",
				Usage:     "match features between two images and draw the pairs side by side",
				ArgsUsage: "<image a> <image b> <pairs>",
				Flags:     pipelineFlags(),
				Action:    MatchAction,
			},
		},
	}
}
