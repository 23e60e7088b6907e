// Package hooks implements the Hook Driver: the four invocation shapes
// plugins are run under, with correct receiver binding, error propagation
// and short-circuit semantics.
package hooks

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/errcode"
)

// safeCall runs fn and converts a PluginContext.Error panic into a regular
// error, so every hook invocation in this package has the same "never
// panics across a plugin boundary" guarantee.
func safeCall(pluginName string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errcode.FromPlugin(pluginName, core.RecoverPluginPanic(r))
		}
	}()
	return fn()
}

// FanOutParallel runs invoke once per plugin (invoke itself skips plugins
// whose hook is nil), issuing every invocation before waiting for any of
// them, then awaits all of them before surfacing the first error; a failing
// plugin never abandons its in-flight siblings. This backs buildStart,
// buildEnd, ongenerate, onwrite and generateBundle.
func FanOutParallel(ctx context.Context, plugins []core.Plugin, maxConcurrency int, invoke func(ctx context.Context, p core.Plugin) error) error {
	p := pool.New().WithErrors().WithFirstError()
	if maxConcurrency > 0 {
		p = p.WithMaxGoroutines(maxConcurrency)
	}
	for _, plugin := range plugins {
		plugin := plugin
		p.Go(func() error {
			return safeCall(plugin.Name, func() error {
				return invoke(ctx, plugin)
			})
		})
	}
	return p.Wait()
}

// FoldOptions applies the "options" hook as a left-to-right reducing fold:
// each plugin receives the prior InputOptions and returns either a
// replacement or the unchanged value.
func FoldOptions(ctx context.Context, plugins []core.Plugin, initial core.InputOptions) (core.InputOptions, error) {
	current := initial
	for _, plugin := range plugins {
		if plugin.Options == nil {
			continue
		}
		var next core.InputOptions
		var changed bool
		err := safeCall(plugin.Name, func() error {
			var hookErr error
			next, changed, hookErr = plugin.Options(ctx, current)
			return hookErr
		})
		if err != nil {
			return current, err
		}
		if changed {
			current = next
		}
	}
	return current, nil
}

// FirstNonAbsent tries candidates in declared order and returns the first
// non-nil result. A nil result from every candidate means "absent".
func FirstNonAbsent[T any](ctx context.Context, plugins []core.Plugin, invoke func(ctx context.Context, p core.Plugin) (*T, error)) (*T, string, error) {
	for _, plugin := range plugins {
		result, err := func() (res *T, err error) {
			err = safeCall(plugin.Name, func() error {
				var hookErr error
				res, hookErr = invoke(ctx, plugin)
				return hookErr
			})
			return
		}()
		if err != nil {
			return nil, plugin.Name, err
		}
		if result != nil {
			return result, plugin.Name, nil
		}
	}
	return nil, "", nil
}

// TransformChunkPipeline runs the transformChunk hook sequentially over a
// chunk's rendered code, with each plugin's deprecated transformBundle
// invoked alongside its successor.
func TransformChunkPipeline(ctx context.Context, plugins []core.Plugin, pc *core.PluginContext, code string, out core.OutputOptions, chunk *core.OutputChunk) (string, error) {
	current := code
	for _, plugin := range plugins {
		for _, hook := range []func(context.Context, *core.PluginContext, string, core.OutputOptions, *core.OutputChunk) (*core.TransformResult, error){
			plugin.TransformChunk,
			plugin.TransformBundle,
		} {
			if hook == nil {
				continue
			}
			var result *core.TransformResult
			err := safeCall(plugin.Name, func() error {
				var hookErr error
				result, hookErr = hook(ctx, pc, current, out, chunk)
				return hookErr
			})
			if err != nil {
				return current, err
			}
			if result != nil {
				current = result.Code
			}
		}
	}
	return current, nil
}

// SequentialPipeline runs the "transform" shape: the emitted code of
// plugin k becomes the input to plugin k+1.
func SequentialPipeline(ctx context.Context, plugins []core.Plugin, code, id string, invoke func(ctx context.Context, p core.Plugin, code, id string) (*core.TransformResult, error)) (string, error) {
	current := code
	for _, plugin := range plugins {
		if plugin.Transform == nil {
			continue
		}
		var result *core.TransformResult
		err := safeCall(plugin.Name, func() error {
			var hookErr error
			result, hookErr = invoke(ctx, plugin, current, id)
			return hookErr
		})
		if err != nil {
			return current, err
		}
		if result != nil {
			current = result.Code
		}
	}
	return current, nil
}
