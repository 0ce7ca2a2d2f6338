package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/frame"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/profiler"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/scene"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/window"
	"github.com/urfave/cli"
)

// Run opens a window and renders the demo scene until the window closes.
func Run(ctx *cli.Context) error {
	setupLogging(ctx)

	builder, err := newBuilder(ctx)
	if err != nil {
		return err
	}
	width, height := ctx.Int("width"), ctx.Int("height")
	if width <= 0 || height <= 0 {
		return &common.ConfigurationError{Setting: "size", Reason: "width and height must be positive"}
	}
	tile := ctx.Int("tile")
	if tile <= 0 {
		return &common.ConfigurationError{Setting: "tile", Reason: "tile must be positive"}
	}

	win, err := window.NewWindow(window.WithTitle("oxy-hybrid"), window.WithSize(width, height))
	if err != nil {
		return err
	}
	defer win.Close()

	presentMode := backend.PresentModeUncapped
	if ctx.Bool("vsync") {
		presentMode = backend.PresentModeVSync
	}
	dev, surface, err := backend.NewWGPU(win.SurfaceDescriptor(),
		backend.WithForceFallbackAdapter(ctx.Bool("fallback-adapter")),
		backend.WithPresentMode(presentMode),
	)
	if err != nil {
		return err
	}

	rc, err := renderer.NewContext(dev, surface, renderer.WithTile(uint32(tile)))
	if err != nil {
		surface.Release()
		dev.Release()
		return err
	}
	defer rc.Release()

	orch, err := frame.NewOrchestrator(rc, scene.NewDemoScene(ctx.Int("spheres")),
		frame.WithBuilder(builder),
		frame.WithSize(uint32(win.Width()), uint32(win.Height())),
		frame.WithTile(uint32(tile)),
		frame.WithBlend(float32(ctx.Float64("blend"))),
		frame.WithHaltOnError(ctx.Bool("halt-on-error")),
	)
	if err != nil {
		return err
	}
	defer orch.Release()

	verbose := ctx.GlobalBool("v") || ctx.GlobalBool("vv")
	e := engine.NewEngine(orch,
		engine.WithWindow(win),
		engine.WithProfiler(profiler.NewProfiler(
			profiler.WithResources(rc.Resources),
			profiler.WithPipelines(rc.Pipelines),
		)),
		engine.WithProfiling(verbose),
		engine.WithMaxFrames(uint64(max(ctx.Int("frames"), 0))),
	)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := e.Run(sigCtx); err != nil {
		return err
	}
	logger.Noticef("stopped after %d BVH generations", orch.Generation())
	return nil
}

// newBuilder maps the BVH flags onto builder options.
func newBuilder(ctx *cli.Context) (accel.Builder, error) {
	return accel.NewBuilder(
		accel.WithLeafSize(ctx.Int("leaf-size")),
		accel.WithBuckets(ctx.Int("buckets")),
		accel.WithMaxDepth(ctx.Int("max-depth")),
	)
}
