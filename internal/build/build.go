// Package build implements the Build Coordinator: the BUILD phase of the
// two-phase life cycle, with guaranteed pairing of buildStart/buildEnd even
// on failure.
package build

import (
	"context"

	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/diag"
	"github.com/vellumjs/vellum/internal/graph"
	"github.com/vellumjs/vellum/internal/hooks"
	"github.com/vellumjs/vellum/internal/options"
	"github.com/vellumjs/vellum/internal/perf"
	"github.com/vellumjs/vellum/internal/watch"
)

// FanOutConcurrency bounds how many plugin hooks run at once within a single
// parallel fan-out; 0 lets internal/hooks pick an
// unbounded pool, matching a plugin list that is typically small.
const FanOutConcurrency = 0

// Run normalizes the input options, constructs a Graph, drives the
// buildStart -> graph build -> buildEnd sequence and returns a Build handle.
// watcher is nil under a one-shot build.
func Run(ctx context.Context, raw options.RawOptions, warnSink diag.Sink, watcher *watch.Reactor) (*core.Build, error) {
	// Step 1: normalize input options.
	result, err := options.NormalizeInput(ctx, raw)
	if err != nil {
		return nil, err
	}
	input := result.Input

	// Step 2: initialize timers (if perf).
	timer := perf.New(input.Perf)
	timer.Begin("#BUILD")
	defer timer.End("#BUILD")

	// Step 3: construct a Graph bound to the current watcher reference, then
	// clear the watcher slot so it cannot be consumed twice.
	pc := &core.PluginContext{Sink: warnSink}
	g := graph.New(input.Plugins, input.Cache, watcher, pc)
	watcher = nil

	// Step 5: invoke buildStart fan-out.
	buildStartErr := timer.MeasureErr("##buildStart", func() error {
		return hooks.FanOutParallel(ctx, input.Plugins, FanOutConcurrency, func(ctx context.Context, p core.Plugin) error {
			if p.BuildStart == nil {
				return nil
			}
			return p.BuildStart(ctx, pc)
		})
	})

	var chunks []core.Chunk
	var graphErr error
	if buildStartErr == nil {
		// Step 6: graph.build(...).
		graphErr = timer.MeasureErr("##graphBuild", func() error {
			built, err := g.Build(ctx, input.Input, input.ManualChunks, input.InlineDynamicImports, input.PreserveModules)
			chunks = built
			return err
		})
	} else {
		graphErr = buildStartErr
	}

	// Step 7: invoke buildEnd fan-out. buildStart and buildEnd are paired:
	// buildEnd always runs, even when buildStart or graph construction
	// failed, and is handed the failure value.
	buildEndErr := timer.MeasureErr("##buildEnd", func() error {
		return hooks.FanOutParallel(ctx, input.Plugins, FanOutConcurrency, func(ctx context.Context, p core.Plugin) error {
			if p.BuildEnd == nil {
				return nil
			}
			return p.BuildEnd(ctx, pc, graphErr)
		})
	})

	// The original failure (buildStart or graph.build) always takes
	// precedence over a buildEnd failure.
	if graphErr != nil {
		return nil, graphErr
	}
	if buildEndErr != nil {
		return nil, buildEndErr
	}

	// Step 9: return a Build handle.
	return core.NewBuild(g, input, timer, chunks), nil
}
