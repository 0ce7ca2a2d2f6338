package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxy-hybrid"
	app.Usage = "real-time hybrid raster and ray traced renderer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging and periodic stats",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "open a window and render the demo scene",
			Description: `
Rasterize a row of spheres into the G-buffer, ray trace the same spheres through
a BVH in a compute pass, and blend both images into the presented frame. The
middle sphere bobs so the BVH is rebuilt every frame.`,
			Action: Run,
			Flags: append(builderFlags(),
				cli.IntFlag{
					Name:  "width",
					Value: 800,
					Usage: "window width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 600,
					Usage: "window height",
				},
				cli.IntFlag{
					Name:  "tile",
					Value: 8,
					Usage: "raytrace workgroup edge length; must match the kernel",
				},
				cli.Float64Flag{
					Name:  "blend",
					Value: 0.5,
					Usage: "weight of the ray traced image in the composited frame",
				},
				cli.BoolFlag{
					Name:  "halt-on-error",
					Usage: "stop at the first failed frame instead of presenting a diagnostic frame",
				},
				cli.BoolFlag{
					Name:  "vsync",
					Usage: "wait for vertical blank when presenting",
				},
				cli.BoolFlag{
					Name:  "fallback-adapter",
					Usage: "force the software fallback adapter",
				},
				cli.IntFlag{
					Name:  "frames",
					Usage: "exit after rendering this many frames (0 runs until the window closes)",
				},
			),
		},
		{
			Name:        "stats",
			Usage:       "build the BVH for a generated scene and print statistics",
			Description: `Build the acceleration structure headlessly, without a device.`,
			Action:      Stats,
			Flags:       builderFlags(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func builderFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "spheres",
			Value: 9,
			Usage: "number of spheres in the demo row",
		},
		cli.IntFlag{
			Name:  "leaf-size",
			Value: 4,
			Usage: "maximum primitives per BVH leaf",
		},
		cli.IntFlag{
			Name:  "buckets",
			Value: 12,
			Usage: "SAH bucket count",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: 32,
			Usage: "BVH depth limit",
		},
	}
}
