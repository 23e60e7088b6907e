package core

import (
	"context"

	"github.com/vellumjs/vellum/internal/diag"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/internal/watch"
)

// PluginContext is the per-build capability object bound as the receiver to
// every hook invocation. Its capabilities are wired as closures rather than
// as a dependency on internal/assets or internal/graph directly, which is
// what keeps this package at the bottom of the import graph: the owner of a
// Context (internal/graph or internal/generate) supplies the closures when
// it builds one.
type PluginContext struct {
	Sink diag.Sink

	ParseFn    func(src string, opts map[string]interface{}) (interface{}, error)
	ResolveFn  func(ctx context.Context, id, importer string) (*ResolveIdResult, error)
	IsExternal func(id, importer string, isResolved bool) bool

	EmitAssetFn      func(name string, source []byte, hasSource bool) (string, error)
	SetAssetSourceFn func(assetID string, source []byte) error
	AssetFileNameFn  func(assetID string) (string, error)

	Watcher *watch.Reactor
}

// Warn normalizes a plain string into a structured warning and forwards it
// to the user warning sink.
func (c *PluginContext) Warn(warning string, pos *errcode.Pos) {
	if c == nil || c.Sink == nil {
		return
	}
	c.Sink.OnWarn(diag.NormalizeWarning(warning, pos))
}

// pluginPanic carries a plugin-raised failure out of Error through a panic,
// since Error must not return to the plugin. The Hook Driver
// (internal/hooks) recovers exactly this type at each hook boundary and
// turns it back into a regular Go error; it must never escape past there.
type pluginPanic struct {
	err *errcode.Error
}

// Error raises a failure and never returns. Implemented as a
// panic recovered by internal/hooks at the hook-invocation boundary, which
// is the idiomatic Go analogue of a "throw" a plugin author expects to
// interrupt the current hook unconditionally.
func (c *PluginContext) Error(err error, pos *errcode.Pos) {
	wrapped, ok := err.(*errcode.Error)
	if !ok {
		wrapped = &errcode.Error{Code: errcode.PluginError, Message: err.Error(), Wrapped: err}
	}
	if pos != nil {
		wrapped.Pos = pos
	}
	panic(pluginPanic{err: wrapped})
}

// RecoverPluginPanic converts a pluginPanic recovered via recover() into an
// error, or re-panics anything else. Call this in a deferred function
// immediately around every hook invocation.
func RecoverPluginPanic(r interface{}) error {
	if r == nil {
		return nil
	}
	if pp, ok := r.(pluginPanic); ok {
		return pp.err
	}
	panic(r)
}

// Parse delegates to the configured parser.
func (c *PluginContext) Parse(src string, opts map[string]interface{}) (interface{}, error) {
	if c.ParseFn == nil {
		return nil, errcode.New(errcode.PluginError, "no parser is configured on this build")
	}
	return c.ParseFn(src, opts)
}

// ResolveId delegates to the Graph's resolver.
func (c *PluginContext) ResolveId(ctx context.Context, id, importer string) (*ResolveIdResult, error) {
	if c.ResolveFn == nil {
		return nil, nil
	}
	return c.ResolveFn(ctx, id, importer)
}

// IsExternalID applies the external-module policy.
func (c *PluginContext) IsExternalID(id, importer string, isResolved bool) bool {
	if c.IsExternal == nil {
		return false
	}
	return c.IsExternal(id, importer, isResolved)
}

// EmitAsset allocates an id in the Asset Registry.
func (c *PluginContext) EmitAsset(name string, source []byte) (string, error) {
	return c.EmitAssetFn(name, source, source != nil)
}

// SetAssetSource late-binds a source onto a previously emitted asset.
func (c *PluginContext) SetAssetSource(assetID string, source []byte) error {
	return c.SetAssetSourceFn(assetID, source)
}

// GetAssetFileName retrieves the final filename; fails if called before the
// name is assigned.
func (c *PluginContext) GetAssetFileName(assetID string) (string, error) {
	return c.AssetFileNameFn(assetID)
}

// WithOverrides returns a shallow copy of c with the given fields replaced,
// used to build the generateBundle-scoped derived context whose
// asset capabilities are shadowed so assets emitted by generateBundle
// plugins are scoped to that generate call.
func (c *PluginContext) WithOverrides(emit func(name string, source []byte, hasSource bool) (string, error),
	setSource func(assetID string, source []byte) error,
	fileName func(assetID string) (string, error)) *PluginContext {
	derived := *c
	derived.EmitAssetFn = emit
	derived.SetAssetSourceFn = setSource
	derived.AssetFileNameFn = fileName
	return &derived
}
