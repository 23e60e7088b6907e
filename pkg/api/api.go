// Package api is vellum's public surface: the typed option structs callers
// configure, the Plugin contract they implement against, and the top-level
// Rollup entry point returning a Build handle with Generate/Write and
// GetTimings. Go has no optional interface methods, so Plugin is
// re-exported from internal/core as one struct of named optional func
// fields rather than a type-asserted interface scheme.
package api

import (
	"context"

	"github.com/vellumjs/vellum/internal/build"
	"github.com/vellumjs/vellum/internal/cachestate"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/diag"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/internal/generate"
	"github.com/vellumjs/vellum/internal/options"
	"github.com/vellumjs/vellum/internal/perf"
	"github.com/vellumjs/vellum/internal/watch"
	"github.com/vellumjs/vellum/internal/writer"
)

// Re-exported data-model types so a caller imports only pkg/api, never
// internal/core directly.
type (
	Plugin               = core.Plugin
	ResolveIdResult      = core.ResolveIdResult
	LoadResult           = core.LoadResult
	TransformResult      = core.TransformResult
	OutputChunk          = core.OutputChunk
	OutputAsset          = core.OutputAsset
	Msg                  = core.Msg
	EntrySpec            = core.EntrySpec
	ExternalPolicy       = core.ExternalPolicy
	Format               = core.Format
	SourcemapMode        = core.SourcemapMode
	ExportMode           = core.ExportMode
	Addon                = core.Addon
	Cache                = cachestate.Cache
)

// Error is the structured failure value every core operation surfaces,
// re-exported so callers can errors.As against it without importing
// internal packages.
type (
	Error     = errcode.Error
	ErrorCode = errcode.Code
)

// Error codes.
const (
	ErrUnknownOption        = errcode.UnknownOption
	ErrInvalidOption        = errcode.InvalidOption
	ErrMissingOption        = errcode.MissingOption
	ErrDeprecatedOptions    = errcode.DeprecatedOptions
	ErrMissingOutputOption  = errcode.MissingOutputOption
	ErrUnsupportedLegacyOpt = errcode.UnsupportedLegacyOpt
	ErrFormatRequired       = errcode.FormatRequired
	ErrFormatDeprecated     = errcode.FormatDeprecated
	ErrConflictingOption    = errcode.ConflictingOption
	ErrAssetFinalized       = errcode.AssetFinalized
	ErrUnknownAsset         = errcode.UnknownAsset
	ErrAssetSourceMissing   = errcode.AssetSourceMissing
	ErrPluginError          = errcode.PluginError
)

// Output module formats.
const (
	FormatES     = core.FormatES
	FormatCJS    = core.FormatCJS
	FormatAMD    = core.FormatAMD
	FormatSystem = core.FormatSystem
	FormatIIFE   = core.FormatIIFE
	FormatUMD    = core.FormatUMD
)

// InputOptions is the loosely-typed configuration object accepted by
// Rollup; re-exported from internal/options so the Option Normalizer's
// contract is the public contract.
type InputOptions = options.RawOptions

// OutputOptions is the loosely-typed per-generate-call configuration
// object.
type OutputOptions = options.RawOutput

// AMDOptions is the legacy/explicit "amd" output option.
type AMDOptions = options.RawAMD

// OutputEntry is one filename -> chunk|asset mapping in a generate/write
// result, in stable sorted order: entry chunks first, then shared chunks,
// then assets.
type OutputEntry struct {
	FileName string
	IsAsset  bool
	Chunk    *OutputChunk
	Asset    *OutputAsset
}

// GenerateOutput is the result of Build.Generate/Build.Write.
type GenerateOutput struct {
	Output []OutputEntry
}

// StringAddon lifts a plain literal into an Addon.
func StringAddon(s string) Addon { return core.StringAddon(s) }

// Build is the handle returned by Rollup: exposes
// Generate, Write and GetTimings. A Build may be reused for any number of
// Generate/Write calls with different OutputOptions; the chunk-optimization
// idempotence latch is shared across all of
// them.
type Build struct {
	inner          *core.Build
	outputFallback *options.RawOutput
	sink           diag.Sink
}

// Rollup runs the BUILD phase and returns a Build
// handle. The returned future is already failed (a non-nil error) if option
// normalization itself fails.
func Rollup(ctx context.Context, opts InputOptions) (*Build, error) {
	sink := warnSink(opts)
	inner, err := build.Run(ctx, opts, sink, nil)
	if err != nil {
		return nil, err
	}
	return &Build{inner: inner, outputFallback: opts.OutputFallback, sink: sink}, nil
}

// Watch is Rollup plus a live fsnotify-backed watcher reference threaded
// into the Plugin Context. Watch only wires the handle plugins and the
// Graph may hold; it returns the reactor so the caller's own watch loop can
// decide what to rebuild in response to file-system events.
func Watch(ctx context.Context, opts InputOptions) (*Build, *watch.Reactor, error) {
	reactor, err := watch.New()
	if err != nil {
		return nil, nil, err
	}
	sink := warnSink(opts)
	inner, err := build.Run(ctx, opts, sink, reactor)
	if err != nil {
		reactor.Close()
		return nil, nil, err
	}
	return &Build{inner: inner, outputFallback: opts.OutputFallback, sink: sink}, reactor, nil
}

func warnSink(opts InputOptions) diag.Sink {
	collector := diag.NewCollector()
	if opts.OnWarn == nil {
		return collector
	}
	bridge := sinkFunc(func(m diag.Msg) {
		opts.OnWarn(core.Msg{Text: m.Text, Notes: m.Notes})
	})
	return diag.Tee{collector, bridge}
}

type sinkFunc func(diag.Msg)

func (f sinkFunc) OnWarn(m diag.Msg) { f(m) }

// Generate runs the GENERATE phase without writing to
// disk.
func (b *Build) Generate(ctx context.Context, output OutputOptions) (*GenerateOutput, error) {
	return b.run(ctx, output, false)
}

// Write runs the GENERATE phase and then persists the result to disk via the
// Output Writer.
func (b *Build) Write(ctx context.Context, output OutputOptions) (*GenerateOutput, error) {
	return b.run(ctx, output, true)
}

func (b *Build) run(ctx context.Context, output OutputOptions, isWrite bool) (*GenerateOutput, error) {
	raw := options.RawOptions{
		Output:         &output,
		OutputFallback: b.outputFallback,
	}
	_, result, normalized, err := generate.Run(ctx, b.inner, raw, isWrite)
	if err != nil {
		return nil, err
	}

	if isWrite {
		if werr := writer.Write(ctx, b.inner.Graph.Plugins(), normalized, result); werr != nil {
			return nil, werr
		}
	}

	return toGenerateOutput(result), nil
}

func toGenerateOutput(result *core.GenerateResult) *GenerateOutput {
	out := &GenerateOutput{Output: make([]OutputEntry, 0, len(result.Output))}
	for _, entry := range result.Output {
		switch entry.Kind {
		case core.BundleChunk:
			out.Output = append(out.Output, OutputEntry{FileName: entry.FileName, Chunk: entry.Chunk})
		case core.BundleAsset:
			out.Output = append(out.Output, OutputEntry{FileName: entry.FileName, IsAsset: true, Asset: entry.Asset})
		}
	}
	return out
}

// GetTimings returns the accumulated labeled-phase timings; empty when InputOptions.Perf was not set.
func (b *Build) GetTimings() map[string]float64 {
	return perfTimings(b.inner.Timer)
}

func perfTimings(t *perf.Timer) map[string]float64 {
	return t.Timings()
}

// Cache returns the Build's serializable cache snapshot, suitable for persisting and re-injecting via InputOptions.Cache on a
// subsequent Rollup call.
func (b *Build) Cache() *Cache {
	return b.inner.Cache()
}
