package graph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/pathtmpl"
)

// chunk is the reference implementation of core.Chunk. Every entry point
// becomes its own facade chunk (the minimal graph has no cross-module
// dependency edges to split out); manualChunks groups are modeled as
// additional non-entry, non-facade shared chunks.
type chunk struct {
	name          string
	isEntry       bool
	isFacade      bool
	entryModuleID string
	hasEntryID    bool
	members       []loadedModule
	code          string

	hasDefaultExport bool
	namedExports     []string

	resolvedExportMode core.ExportMode
	format             core.Format
	inputBase          string

	fileName    string
	hasFileName bool
}

func (c *chunk) IsEntry() bool  { return c.isEntry }
func (c *chunk) IsFacade() bool { return c.isFacade }

func (c *chunk) EntryModuleID() (string, bool) {
	return c.entryModuleID, c.hasEntryID
}

func (c *chunk) EntryName() string { return c.name }

// PreRender stores the output format and inputBase for use during Render and
// GenerateInternalExports.
func (c *chunk) PreRender(out core.OutputOptions, inputBase string) error {
	c.format = out.Format
	c.inputBase = inputBase
	return nil
}

// GenerateInternalExports derives this facade's export mode: "auto"
// resolves to "default" when the facade has exactly one default export and
// no named exports, else "named".
func (c *chunk) GenerateInternalExports(out core.OutputOptions) error {
	if !c.isFacade {
		c.resolvedExportMode = core.ExportNone
		return nil
	}
	mode := out.ExportMode
	if mode == core.ExportAuto || mode == "" {
		if c.hasDefaultExport && len(c.namedExports) == 0 {
			mode = core.ExportDefault
		} else {
			mode = core.ExportNamed
		}
	}
	c.resolvedExportMode = mode
	return nil
}

// GetImportIDs returns the module/chunk ids this chunk imports from. The
// reference graph has no cross-chunk import edges (no real dependency
// scanning), so this is always empty.
func (c *chunk) GetImportIDs() []string { return nil }

// ModuleIDs returns every module id folded into this chunk.
func (c *chunk) ModuleIDs() []string { return moduleIDs(c.members) }

// GetExportNames returns the export names this chunk re-exports, per the
// resolved export mode.
func (c *chunk) GetExportNames() []string {
	switch c.resolvedExportMode {
	case core.ExportDefault:
		return []string{"default"}
	case core.ExportNamed:
		return append([]string(nil), c.namedExports...)
	default:
		return nil
	}
}

// ContentHash returns the first 8 hex characters of a stable hash over this
// chunk's pre-render source content.
func (c *chunk) ContentHash() string { return pathtmpl.ContentHash([]byte(c.code)) }

func (c *chunk) SetFileName(name string) { c.fileName = name; c.hasFileName = true }
func (c *chunk) FileName() (string, bool) { return c.fileName, c.hasFileName }

// Render produces the final code and source map for this chunk. Real
// JS-to-JS codegen belongs to a format finalizer; this wraps the module's
// transformed source text in a deterministic, format-tagged envelope so the
// Generate Coordinator and Output Writer have real bytes to carry through
// the pipeline.
func (c *chunk) Render(out core.OutputOptions, addons core.Addons) (string, *core.SourceMap, error) {
	var b strings.Builder
	if addons.Banner != "" {
		b.WriteString(addons.Banner)
		b.WriteString("\n")
	}
	if addons.Intro != "" {
		b.WriteString(addons.Intro)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "/* format=%s chunk=%s entry=%v facade=%v exports=%s */\n",
		out.Format, c.name, c.isEntry, c.isFacade, c.resolvedExportMode)
	b.WriteString(c.code)
	if !strings.HasSuffix(c.code, "\n") {
		b.WriteString("\n")
	}
	if addons.Outro != "" {
		b.WriteString(addons.Outro)
		b.WriteString("\n")
	}
	if addons.Footer != "" {
		b.WriteString(addons.Footer)
		b.WriteString("\n")
	}

	var sourceMap *core.SourceMap
	if out.Sourcemap != core.SourcemapOff {
		sources := moduleIDs(c.members)
		sourceMap = &core.SourceMap{JSON: buildSourceMapJSON(sources)}
	}
	return b.String(), sourceMap, nil
}

func moduleIDs(members []loadedModule) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.id)
	}
	return out
}

func buildSourceMapJSON(sources []string) string {
	quoted := make([]string, 0, len(sources))
	for _, s := range sources {
		quoted = append(quoted, fmt.Sprintf("%q", s))
	}
	return fmt.Sprintf(`{"version":3,"sources":[%s],"names":[],"mappings":""}`, strings.Join(quoted, ","))
}

var (
	defaultExportRe = regexp.MustCompile(`(?m)^\s*export\s+default\b`)
	namedExportRe   = regexp.MustCompile(`(?m)^\s*export\s+(?:const|let|var|function\*?|class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	namedBraceRe    = regexp.MustCompile(`(?m)^\s*export\s*\{([^}]*)\}`)
)

// scanExports performs a minimal lexical scan of a chunk's source text to
// discover its default/named exports, the input GenerateInternalExports
// needs to resolve the "auto" export mode. This is deliberately not a real
// parser; it recognizes the handful of export forms needed to make the
// auto/default/named decision observable in tests.
func scanExports(c *chunk) {
	c.hasDefaultExport = defaultExportRe.MatchString(c.code)

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == "default" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, m := range namedExportRe.FindAllStringSubmatch(c.code, -1) {
		add(m[1])
	}
	for _, m := range namedBraceRe.FindAllStringSubmatch(c.code, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if idx := strings.Index(part, " as "); idx >= 0 {
				part = strings.TrimSpace(part[idx+4:])
			}
			add(part)
		}
	}
	c.namedExports = names
}
