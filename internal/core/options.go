// Package core holds the data model shared by every component of the
// pipeline: InputOptions/OutputOptions, the Plugin
// contract, Chunk/Asset/OutputBundle, and the Graph collaborator interface.
// It sits at the bottom of the dependency graph, importing only the
// self-contained utility packages (diag, errcode, perf, cachestate, watch),
// so internal/options, internal/hooks, internal/assets, internal/graph,
// internal/build, internal/generate and internal/writer can all depend on it
// without creating an import cycle back through pkg/api.
package core

import (
	"sort"

	"github.com/vellumjs/vellum/internal/cachestate"
)

// EntrySpec is the entry specifier accepted by a build: either a single
// path, an ordered sequence of paths, or a named alias->path mapping.
// Exactly one of Single, List or Named should be populated; Resolve folds
// whichever is set into an ordered list of named entries.
type EntrySpec struct {
	Single string
	List   []string
	Named  map[string]string

	// NamedOrder fixes the order of the Named case, since Go map iteration
	// order is not stable and entry chunks must keep a stable emission order.
	NamedOrder []string
}

// NamedEntry is one resolved entry point.
type NamedEntry struct {
	Name string
	Path string
}

// Resolve returns the entry points in a stable order: declaration order for
// Single/List, NamedOrder for Named, or sorted by name when NamedOrder is
// empty.
func (e EntrySpec) Resolve() []NamedEntry {
	switch {
	case len(e.Named) > 0:
		order := e.NamedOrder
		if len(order) == 0 {
			for name := range e.Named {
				order = append(order, name)
			}
			sort.Strings(order)
		}
		out := make([]NamedEntry, 0, len(order))
		for _, name := range order {
			out = append(out, NamedEntry{Name: name, Path: e.Named[name]})
		}
		return out
	case len(e.List) > 0:
		out := make([]NamedEntry, 0, len(e.List))
		for _, p := range e.List {
			out = append(out, NamedEntry{Name: entryNameFromPath(p), Path: p})
		}
		return out
	case e.Single != "":
		return []NamedEntry{{Name: entryNameFromPath(e.Single), Path: e.Single}}
	default:
		return nil
	}
}

// Count reports how many entry points this specifier resolves to, without
// allocating the full slice; used by the "inlineDynamicImports forbids >1
// entry" validation.
func (e EntrySpec) Count() int {
	switch {
	case len(e.Named) > 0:
		return len(e.Named)
	case len(e.List) > 0:
		return len(e.List)
	case e.Single != "":
		return 1
	default:
		return 0
	}
}

func entryNameFromPath(p string) string {
	start := 0
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			start = i + 1
			break
		}
	}
	name := p[start:]
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

// ExternalPolicy decides whether a resolved id is external: an explicit set
// of ids, a predicate, or both.
type ExternalPolicy struct {
	IDs       map[string]bool
	Predicate func(id string, importer string, isResolved bool) bool
}

// IsExternal evaluates the policy. An unset policy treats nothing as
// external.
func (p ExternalPolicy) IsExternal(id, importer string, isResolved bool) bool {
	if p.IDs != nil && p.IDs[id] {
		return true
	}
	if p.Predicate != nil {
		return p.Predicate(id, importer, isResolved)
	}
	return false
}

// InputOptions is the normalized, immutable-after-normalization input
// configuration.
type InputOptions struct {
	Input   EntrySpec
	Plugins []Plugin

	External  ExternalPolicy
	TreeShake bool

	Cache *cachestate.Cache

	PreserveModules      bool
	InlineDynamicImports bool
	OptimizeChunks       bool
	ChunkGroupingSize    int
	PreferConst          bool
	Perf                 bool
	ShimMissingExports   bool

	// ManualChunks maps a chunk name to the set of module ids that belong in
	// it.
	ManualChunks map[string][]string

	OnWarn func(Msg)
}

// Msg is re-exported so callers of pkg/api don't need to import internal/diag
// directly; see internal/diag.Msg for the authoritative definition.
type Msg struct {
	Text  string
	Notes []string
}

// Format is the output module format.
type Format string

const (
	FormatES     Format = "es"
	FormatCJS    Format = "cjs"
	FormatAMD    Format = "amd"
	FormatSystem Format = "system"
	FormatIIFE   Format = "iife"
	FormatUMD    Format = "umd"
)

// SourcemapMode is the source-map mode.
type SourcemapMode uint8

const (
	SourcemapOff SourcemapMode = iota
	SourcemapExternal
	SourcemapInline
)

// ExportMode drives the facade chunk export decision.
type ExportMode string

const (
	ExportDefault ExportMode = "default"
	ExportNamed   ExportMode = "named"
	ExportNone    ExportMode = "none"
	ExportAuto    ExportMode = "auto"
)

// Addon is a normalized banner/footer/intro/outro contribution: a
// zero-argument callable returning a deferred literal.
type Addon func() (string, error)

// StringAddon lifts a plain literal into an Addon.
func StringAddon(s string) Addon {
	return func() (string, error) { return s, nil }
}

// OutputOptions is the per-generate-call configuration.
type OutputOptions struct {
	Format Format

	File string
	Dir  string

	EntryFileNames string
	ChunkFileNames string
	AssetFileNames string

	Sourcemap     SourcemapMode
	SourcemapFile string

	Globals map[string]string

	Banner Addon
	Footer Addon
	Intro  Addon
	Outro  Addon

	Compact              bool
	Indent               string
	Strict               bool
	Freeze               bool
	ESModule             bool
	NamespaceToStringTag bool
	Interop              bool
	Extend               bool

	ExportMode ExportMode

	// AMDModuleID carries amd.id, or the legacy top-level moduleId when amd
	// is unset.
	AMDModuleID string
}
