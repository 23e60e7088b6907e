package core

import "encoding/base64"

// SourceMap is the opaque source map attached to a rendered chunk. Actual
// source-map composition belongs to the renderer; the core only carries the
// serialized form and produces its two textual representations, the data-URL
// form and the sibling-file form.
type SourceMap struct {
	JSON string
}

// URLForm returns the inline "data:application/json;charset=utf-8;base64,..." form used
// when OutputOptions.Sourcemap == SourcemapInline.
func (m *SourceMap) URLForm() string {
	if m == nil {
		return ""
	}
	return "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(m.JSON))
}

// Addons is the composed banner/footer/intro/outro text for one generate
// call.
type Addons struct {
	Banner string
	Footer string
	Intro  string
	Outro  string
}

// Chunk is the unit of output code owned by the Graph. The reference
// implementation in internal/graph satisfies this interface; a real
// parser/tree-shaker-backed Graph would satisfy it with actual bundling
// logic.
type Chunk interface {
	// IsEntry reports whether this chunk corresponds directly to an entry
	// point (as opposed to a shared chunk split out by chunk assignment).
	IsEntry() bool

	// IsFacade reports whether this chunk's sole role is to re-export the
	// interface of an entry module.
	IsFacade() bool

	// EntryModuleID returns the entry module path this chunk was built from,
	// if any; used to compute inputBase and to name
	// preserveModules output.
	EntryModuleID() (string, bool)

	// EntryName returns the declared entry name, used to expand the [name] placeholder.
	EntryName() string

	// PreRender computes chunk-local state against the output options and
	// inputBase, before chunk optimization and naming.
	PreRender(out OutputOptions, inputBase string) error

	// Render produces the final code and source map for this chunk. addons have already been composed and are passed in so
	// render can place them correctly relative to the module body.
	Render(out OutputOptions, addons Addons) (code string, sourceMap *SourceMap, err error)

	// GenerateInternalExports derives this chunk's export mode/internal
	// export bindings for the given format.
	GenerateInternalExports(out OutputOptions) error

	// GetImportIDs returns the module/chunk ids this chunk imports from.
	GetImportIDs() []string

	// ModuleIDs returns every module id folded into this chunk, populating
	// OutputChunk.ModuleIDs.
	ModuleIDs() []string

	// GetExportNames returns the export names this chunk re-exports.
	GetExportNames() []string

	// ContentHash returns the first-8-hex-char content hash used to expand the [hash] filename placeholder during naming, computed over the chunk's pre-render source content.
	ContentHash() string

	// SetFileName/FileName implement the "assigned exactly once per generate
	// call" invariant; FileName's second return is false before
	// assignment.
	SetFileName(name string)
	FileName() (string, bool)
}
