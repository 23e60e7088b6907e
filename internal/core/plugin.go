package core

import "context"

// Plugin is the plugin contract: a required name and any subset of the
// listed hooks. Go has no optional interface methods, so each hook is a
// nil-able function field; a nil field means the plugin does not implement
// that hook.
type Plugin struct {
	Name string

	// Options folds InputOptions left-to-right across plugins. Returning
	// ok == false means "unchanged".
	Options func(ctx context.Context, opts InputOptions) (next InputOptions, ok bool, err error)

	BuildStart func(ctx context.Context, pc *PluginContext) error
	BuildEnd   func(ctx context.Context, pc *PluginContext, buildErr error) error

	// ResolveId, Load and ResolveDynamicImport are "first-non-absent": the
	// first plugin to return a non-nil result wins. A result with
	// External == true is the "false" sentinel meaning "treat as external".
	ResolveId            func(ctx context.Context, pc *PluginContext, id, importer string) (*ResolveIdResult, error)
	Load                 func(ctx context.Context, pc *PluginContext, id string) (*LoadResult, error)
	ResolveDynamicImport func(ctx context.Context, pc *PluginContext, id, importer string) (*ResolveIdResult, error)

	// Transform is the sequential pipeline hook; consumed by the Graph, not
	// by the core's Hook Driver directly.
	Transform func(ctx context.Context, pc *PluginContext, code, id string) (*TransformResult, error)

	// TransformChunk is a sequential pipeline over a chunk's rendered code:
	// plugin k's output becomes plugin k+1's input. TransformBundle is its
	// deprecated predecessor, invoked alongside it without warning.
	TransformChunk  func(ctx context.Context, pc *PluginContext, code string, out OutputOptions, chunk *OutputChunk) (*TransformResult, error)
	TransformBundle func(ctx context.Context, pc *PluginContext, code string, out OutputOptions, chunk *OutputChunk) (*TransformResult, error)

	// GenerateBundle is a parallel fan-out hook invoked once per generate
	// call with a generateBundle-scoped Plugin Context.
	GenerateBundle func(ctx context.Context, pc *PluginContext, out OutputOptions, bundle *OutputBundle, isWrite bool) error

	// OnGenerate and OnWrite are deprecated legacy hooks, accepted alongside
	// their successors without warning in this version. OnGenerate receives
	// the rendered chunk twice, as a distinct positional argument and again
	// as chunk, a redundancy older plugins depend on.
	OnGenerate func(out OutputOptions, bundleChunk *OutputChunk, chunk *OutputChunk) error
	OnWrite    func(out OutputOptions, chunk *OutputChunk) error

	Banner Addon
	Footer Addon
	Intro  Addon
	Outro  Addon
}

// ResolveIdResult is the outcome of a resolveId/resolveDynamicImport hook.
type ResolveIdResult struct {
	ID         string
	External   bool
	PluginData interface{}
}

// LoadResult is the outcome of a load hook.
type LoadResult struct {
	Code       string
	PluginData interface{}
}

// TransformResult is the outcome of one stage of the transform pipeline.
type TransformResult struct {
	Code       string
	PluginData interface{}
}
