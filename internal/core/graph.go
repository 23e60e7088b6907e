package core

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vellumjs/vellum/internal/cachestate"
	"github.com/vellumjs/vellum/internal/perf"
)

// Graph is the module-graph collaborator the coordinators drive: Build turns
// an entry specifier into a chunk sequence, and the remaining accessors give
// the Build Coordinator and Generate Coordinator what they need. The parser,
// tree-shaker and chunk-assignment algorithm that decide what Build returns
// live behind this interface; internal/graph ships one reference
// implementation.
type Graph interface {
	Build(ctx context.Context, input EntrySpec, manualChunks map[string][]string, inlineDynamicImports, preserveModules bool) ([]Chunk, error)

	Plugins() []Plugin
	PluginContext() *PluginContext

	AssetsByID() map[string]*Asset

	// EmitAsset allocates a fresh asset id, used by the generateBundle-scoped
	// derived Plugin Context so assets emitted during generateBundle go
	// through the same registry as those emitted during build.
	EmitAsset(name string, source []byte, hasSource bool) (string, error)

	// MarkAssetScoped scopes an emitted asset to the current generate call,
	// so later calls repopulating their fresh bundles will not carry it over.
	MarkAssetScoped(assetID string) error

	// FinalizeAssets finalizes every pending (sourced, unnamed) asset into
	// bundle using template. Called at the start of every generate call.
	FinalizeAssets(bundle *OutputBundle, template string) error

	// FinalizeOneAsset finalizes one specific asset into bundle, used for
	// assets emitted during generateBundle itself.
	FinalizeOneAsset(assetID string, bundle *OutputBundle, template string) error

	// CheckAssetsSourced fails with ASSET_SOURCE_MISSING if any asset still
	// lacks both a source and a filename.
	CheckAssetsSourced() error

	GetCache() *cachestate.Cache
}

// Build is the handle returned by Rollup: a Graph plus per-Build state that
// must not be recomputed across repeated generate/write calls (notably the
// chunk-optimization idempotence latch).
type Build struct {
	Graph   Graph
	Options InputOptions
	Timer   *perf.Timer

	mu     sync.Mutex
	chunks []Chunk

	optimizeOnce sync.Once
	optimized    int32
}

// NewBuild wraps a Graph and its chunk sequence into a Build handle.
func NewBuild(graph Graph, options InputOptions, timer *perf.Timer, chunks []Chunk) *Build {
	return &Build{Graph: graph, Options: options, Timer: timer, chunks: chunks}
}

// Chunks returns the chunk sequence produced by the Build Coordinator.
func (b *Build) Chunks() []Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Chunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// OptimizeOnce runs fn at most once across the lifetime of this Build, even
// across repeated generate/write calls.
func (b *Build) OptimizeOnce(fn func()) {
	b.optimizeOnce.Do(func() {
		fn()
		atomic.StoreInt32(&b.optimized, 1)
	})
}

// Optimized reports whether the optimization pass has already run.
func (b *Build) Optimized() bool {
	return atomic.LoadInt32(&b.optimized) == 1
}

// Cache returns the Build's serializable snapshot.
func (b *Build) Cache() *cachestate.Cache {
	return b.Graph.GetCache()
}
