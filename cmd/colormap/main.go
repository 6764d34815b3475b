// Package main runs color map optimization over a synthetic RGB-D capture of a textured sphere,
// first without camera refinement, then rigidly and then non-rigidly, printing the mean vertex color
// and photometric residual of each stage.
package main

import (
	"fmt"
	"image"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/colormap/colormap"
	"go.viam.com/colormap/logging"
	"go.viam.com/colormap/testutils"
)

const (
	flagConfig       = "config"
	flagIterations   = "iterations"
	flagNonRigidOnly = "non-rigid-only"
	flagDebug        = "debug"
	flagLogFile      = "log-file"
	flagWidth        = "width"
	flagHeight       = "height"
	flagFrames       = "frames"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:  "colormap",
		Usage: "optimize the vertex colors of a mesh from posed RGB-D frames",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load run configuration from YAML `FILE`",
			},
			&cli.IntFlag{
				Name:  flagIterations,
				Usage: "refinement iterations of the rigid and non-rigid stages",
			},
			&cli.BoolFlag{
				Name:  flagNonRigidOnly,
				Usage: "only run the non-rigid stage",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotating `FILE`",
			},
			&cli.IntFlag{
				Name:  flagWidth,
				Usage: "image width of the synthetic scene",
			},
			&cli.IntFlag{
				Name:  flagHeight,
				Usage: "image height of the synthetic scene",
			},
			&cli.IntFlag{
				Name:  flagFrames,
				Usage: "number of frames of the synthetic scene",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := configFromContext(c)
			if err != nil {
				return err
			}
			return run(c, cfg, out)
		},
	}
}

// configFromContext layers defaults, the config file and flags.
func configFromContext(c *cli.Context) (*runConfig, error) {
	cfg := defaultRunConfig()
	if path := c.String(flagConfig); path != "" {
		if err := loadRunConfig(path, cfg); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagIterations) {
		cfg.Iterations = c.Int(flagIterations)
	}
	if c.IsSet(flagNonRigidOnly) {
		cfg.NonRigidOnly = c.Bool(flagNonRigidOnly)
	}
	if c.IsSet(flagLogFile) {
		cfg.LogFile = c.String(flagLogFile)
	}
	if c.IsSet(flagWidth) {
		cfg.Scene.Width = c.Int(flagWidth)
	}
	if c.IsSet(flagHeight) {
		cfg.Scene.Height = c.Int(flagHeight)
	}
	if c.IsSet(flagFrames) {
		cfg.Scene.Frames = c.Int(flagFrames)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type stage struct {
	name       string
	iterations int
	nonRigid   bool
}

func run(c *cli.Context, cfg *runConfig, out io.Writer) error {
	var logger logging.Logger
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("colormap")
	} else {
		logger = logging.NewLogger("colormap")
	}
	if cfg.LogFile != "" {
		appender := logging.NewFileAppender(logging.DefaultFileConfig(cfg.LogFile))
		logger.AddAppender(appender)
		defer utils.UncheckedErrorFunc(appender.Close)
	}
	defer utils.UncheckedErrorFunc(logger.Sync)

	baseOpts, err := colormap.NewOptionsFromAttributes(cfg.Options)
	if err != nil {
		return err
	}

	sceneCfg := testutils.DefaultSceneConfig()
	sceneCfg.Width, sceneCfg.Height = cfg.Scene.Width, cfg.Scene.Height
	sceneCfg.NumFrames = cfg.Scene.Frames
	sceneCfg.Perturbation = cfg.Scene.Perturbation
	scene := testutils.NewSphereScene(sceneCfg)
	logger.Infow("rendered synthetic scene",
		"width", sceneCfg.Width, "height", sceneCfg.Height, "frames", sceneCfg.NumFrames, "vertices", scene.Mesh.NumVertices())

	colors := make([]image.Image, len(scene.Colors))
	for i, img := range scene.Colors {
		colors[i] = img
	}
	frames := make([]colormap.Frame, len(colors))
	for i := range colors {
		frames[i] = colormap.Frame{Color: colors[i], Depth: scene.Depths[i], Camera: scene.Cameras[i]}
	}

	stages := []stage{
		{name: "disabled"},
		{name: "rigid", iterations: cfg.Iterations},
		{name: "non_rigid", iterations: cfg.Iterations, nonRigid: true},
	}
	if cfg.NonRigidOnly {
		stages = stages[2:]
	}
	for _, st := range stages {
		opts := baseOpts
		opts.MaximumIteration = st.iterations
		opts.NonRigidCameraCoordinate = st.nonRigid
		opt, err := colormap.NewOptimizer(opts, logger.Sublogger(st.name))
		if err != nil {
			return err
		}
		summary, err := opt.Optimize(c.Context, scene.Mesh, frames)
		if err != nil {
			return errors.Wrapf(err, "%s stage", st.name)
		}
		mean, err := scene.Mesh.MeanColor()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%-10s mean color [%.6f %.6f %.6f] residual %.6f skipped %d\n",
			st.name, mean.R, mean.G, mean.B, summary.Residual, summary.SkippedUpdates); err != nil {
			return err
		}
	}
	return nil
}
