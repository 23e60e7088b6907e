// Package graph ships the reference implementation of the core.Graph
// collaborator. A full bundler would back this interface with a parser,
// tree-shaker and chunk-assignment algorithm; this Graph instead resolves
// entry specifiers to files on disk, loads and transforms them through the
// plugin hook chains, and renders each resulting chunk as a deterministic
// wrapper around its source text. That is enough to drive every
// Build/Generate Coordinator step end to end.
package graph

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/vellumjs/vellum/internal/assets"
	"github.com/vellumjs/vellum/internal/cachestate"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/internal/hooks"
	"github.com/vellumjs/vellum/internal/pathtmpl"
	"github.com/vellumjs/vellum/internal/watch"
)

// Default is the reference Graph. It is created fresh by the Build
// Coordinator for every rollup(input) call.
type Default struct {
	plugins []core.Plugin
	cache   *cachestate.Cache
	watcher *watch.Reactor

	registry *assets.Registry
	ctx      *core.PluginContext
}

// New constructs a reference Graph bound to the given plugin list, cache
// and watcher reference, and wires pc's asset/resolve capabilities to this
// Graph's own registry and resolver so the Plugin Context and Graph stay
// consistent for the lifetime of the Build.
func New(plugins []core.Plugin, cache *cachestate.Cache, watcher *watch.Reactor, pc *core.PluginContext) *Default {
	if cache == nil {
		cache = cachestate.New()
	}
	g := &Default{plugins: plugins, cache: cache, watcher: watcher, registry: assets.New()}
	pc.EmitAssetFn = g.registry.Emit
	pc.SetAssetSourceFn = g.registry.SetSource
	pc.AssetFileNameFn = g.registry.FileName
	pc.ResolveFn = g.resolveID
	pc.Watcher = watcher
	g.ctx = pc
	return g
}

func (g *Default) Plugins() []core.Plugin              { return g.plugins }
func (g *Default) PluginContext() *core.PluginContext  { return g.ctx }
func (g *Default) AssetsByID() map[string]*core.Asset  { return g.registry.ByID() }

// EmitAsset allocates a fresh asset id through this Graph's Asset Registry.
func (g *Default) EmitAsset(name string, source []byte, hasSource bool) (string, error) {
	return g.registry.Emit(name, source, hasSource)
}

// MarkAssetScoped scopes an asset to the generate call that emitted it.
func (g *Default) MarkAssetScoped(assetID string) error {
	return g.registry.MarkPerGenerate(assetID)
}

func (g *Default) GetCache() *cachestate.Cache { return g.cache }

// FinalizeAssets finalizes every asset with a source but no filename yet
// into bundle.
func (g *Default) FinalizeAssets(bundle *core.OutputBundle, template string) error {
	return g.registry.FinalizeAll(bundle, template)
}

// FinalizeOneAsset finalizes a single already-sourced asset into bundle,
// used by the generateBundle-scoped context when an asset is emitted with a
// source or given one during generateBundle.
func (g *Default) FinalizeOneAsset(assetID string, bundle *core.OutputBundle, template string) error {
	asset, ok := g.registry.Get(assetID)
	if !ok {
		return errcode.New(errcode.UnknownAsset, "no asset with id %q was emitted", assetID)
	}
	return g.registry.Finalize(asset, bundle, template)
}

// CheckAssetsSourced fails with ASSET_SOURCE_MISSING if any asset still
// lacks both a source and a filename.
func (g *Default) CheckAssetsSourced() error {
	return g.registry.ForceFinalizeUnsourced()
}

// Registry exposes the underlying Asset Registry directly, beyond what the
// core.Graph interface offers.
func (g *Default) Registry() *assets.Registry { return g.registry }

// resolveID implements the PluginContext's resolveId(id, importer) capability
// by running the full first-non-absent resolveId hook chain.
func (g *Default) resolveID(ctx context.Context, id, importer string) (*core.ResolveIdResult, error) {
	result, _, err := hooks.FirstNonAbsent(ctx, g.plugins, func(ctx context.Context, p core.Plugin) (*core.ResolveIdResult, error) {
		if p.ResolveId == nil {
			return nil, nil
		}
		return p.ResolveId(ctx, g.ctx, id, importer)
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	return &core.ResolveIdResult{ID: id}, nil
}

// loadSource implements the first-non-absent load hook chain, falling back
// to reading the resolved id as a real file path from disk.
func (g *Default) loadSource(ctx context.Context, id string) (string, error) {
	result, _, err := hooks.FirstNonAbsent(ctx, g.plugins, func(ctx context.Context, p core.Plugin) (*core.LoadResult, error) {
		if p.Load == nil {
			return nil, nil
		}
		return p.Load(ctx, g.ctx, id)
	})
	if err != nil {
		return "", err
	}
	if result != nil {
		return result.Code, nil
	}
	raw, err := os.ReadFile(id)
	if err != nil {
		return "", errcode.New(errcode.InvalidOption, "could not load %q: %v", id, err)
	}
	return string(raw), nil
}

// transform runs the sequential transform pipeline over a loaded module.
func (g *Default) transform(ctx context.Context, code, id string) (string, error) {
	return hooks.SequentialPipeline(ctx, g.plugins, code, id, func(ctx context.Context, p core.Plugin, code, id string) (*core.TransformResult, error) {
		if p.Transform == nil {
			return nil, nil
		}
		return p.Transform(ctx, g.ctx, code, id)
	})
}

// loadedModule is one resolved+loaded+transformed module, before chunk
// assignment groups modules into chunks.
type loadedModule struct {
	id   string
	name string
	code string
}

// Build implements the Graph collaborator interface:
// resolve every entry, load and transform it, then assign modules to chunks
// per manualChunks/inlineDynamicImports/preserveModules.
func (g *Default) Build(ctx context.Context, input core.EntrySpec, manualChunks map[string][]string, inlineDynamicImports, preserveModules bool) ([]core.Chunk, error) {
	entries := input.Resolve()
	modules := make([]loadedModule, 0, len(entries))

	for _, e := range entries {
		resolved, err := g.resolveID(ctx, e.Path, "")
		if err != nil {
			return nil, err
		}
		id := e.Path
		if resolved != nil && resolved.ID != "" {
			id = resolved.ID
		}
		if resolved != nil && resolved.External {
			continue
		}

		code, err := g.loadSource(ctx, id)
		if err != nil {
			return nil, err
		}
		code, err = g.transform(ctx, code, id)
		if err != nil {
			return nil, err
		}

		g.cache.Set(id, cachestate.ModuleState{ID: id, ContentHash: contentHashOf(code), TransformOutput: code})
		modules = append(modules, loadedModule{id: id, name: e.Name, code: code})
	}

	// manualChunks groups module ids into named shared chunks. preserveModules/inlineDynamicImports forbid
	// manualChunks, so this only ever runs with neither set.
	inManualGroup := make(map[string]string)
	if len(manualChunks) > 0 {
		var groupNames []string
		for name := range manualChunks {
			groupNames = append(groupNames, name)
		}
		sort.Strings(groupNames)
		for _, name := range groupNames {
			for _, id := range manualChunks[name] {
				inManualGroup[id] = name
			}
		}
	}

	chunks := make([]core.Chunk, 0, len(modules))
	sharedByName := make(map[string]*chunk)
	var sharedOrder []string

	for _, m := range modules {
		if groupName, ok := inManualGroup[m.id]; ok && !preserveModules && !inlineDynamicImports {
			sc, exists := sharedByName[groupName]
			if !exists {
				sc = &chunk{name: groupName, isEntry: false, isFacade: false}
				sharedByName[groupName] = sc
				sharedOrder = append(sharedOrder, groupName)
				chunks = append(chunks, sc)
			}
			sc.members = append(sc.members, m)
			sc.code = joinModuleCode(sc.members)
			continue
		}

		ec := &chunk{
			name:          m.name,
			isEntry:       true,
			isFacade:      true,
			entryModuleID: m.id,
			hasEntryID:    true,
			members:       []loadedModule{m},
			code:          m.code,
		}
		scanExports(ec)
		chunks = append(chunks, ec)
	}

	for _, name := range sharedOrder {
		scanExports(sharedByName[name])
	}

	return chunks, nil
}

func joinModuleCode(members []loadedModule) string {
	var b strings.Builder
	for i, m := range members {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.code)
	}
	return b.String()
}

func contentHashOf(code string) string {
	return pathtmpl.ContentHash([]byte(code))
}
