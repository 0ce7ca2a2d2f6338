package main

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/scene"
	"github.com/urfave/cli"
)

// Stats builds the BVH of the demo scene and prints its statistics.
func Stats(ctx *cli.Context) error {
	setupLogging(ctx)

	builder, err := newBuilder(ctx)
	if err != nil {
		return err
	}
	primitives, payload, _ := scene.NewDemoScene(ctx.Int("spheres")).Snapshot()
	tree, err := builder.Build(primitives)
	if err != nil {
		return err
	}

	logger.Noticef("bvh statistics (%d bytes of primitive payload)\n%s", len(payload), profiler.BuildStatsTable(tree, builder))
	return nil
}
