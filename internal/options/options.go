// Package options implements the Option Normalizer: merging user-supplied
// configuration with defaults, applying deprecation rewrites, validating
// mutually exclusive options, and materializing the InputOptions and
// OutputOptions data model (internal/core). Everything here is
// loosely-typed in, strict struct (or *errcode.Error) out.
package options

import (
	"context"

	"github.com/vellumjs/vellum/internal/cachestate"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/diag"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/internal/hooks"
)

// RawAMD is the legacy/explicit "amd" output option.
type RawAMD struct {
	ID string
}

// RawOutput is the loosely-typed per-generate-call configuration before
// normalization.
type RawOutput struct {
	Format string

	File string
	Dir  string

	EntryFileNames string
	ChunkFileNames string
	AssetFileNames string

	// Sourcemap accepts bool (true -> external) or one of "inline",
	// "external", "off"/"" to mirror the loosely-typed config object a
	// caller hands in.
	Sourcemap     interface{}
	SourcemapFile string

	Globals map[string]string

	Banner core.Addon
	Footer core.Addon
	Intro  core.Addon
	Outro  core.Addon

	Compact              bool
	Indent               string
	Strict               *bool
	Freeze               *bool
	ESModule             bool
	NamespaceToStringTag bool
	Interop              *bool
	Extend               bool

	AMD *RawAMD

	// ModuleID is the legacy top-level moduleId shorthand for amd.id.
	ModuleID string
}

// RawOptions is the loosely-typed InputOptions configuration object.
type RawOptions struct {
	Input    core.EntrySpec
	Plugins  []core.Plugin
	External core.ExternalPolicy

	TreeShake *bool

	Cache *cachestate.Cache

	PreserveModules      bool
	InlineDynamicImports bool
	OptimizeChunks       bool
	ChunkGroupingSize    int
	PreferConst          bool
	Perf                 bool
	ShimMissingExports   bool

	ManualChunks map[string][]string

	OnWarn func(core.Msg)

	// Legacy top-level hooks that must be rejected outright.
	LegacyTransform       bool
	LegacyLoad            bool
	LegacyResolveId       bool
	LegacyResolveExternal bool

	// Output holds a nested output config (highest precedence), OutputTop
	// holds top-level output fields used as a shorthand (middle precedence),
	// and OutputFallback is the input-level fallback (lowest precedence).
	Output         *RawOutput
	OutputTop      *RawOutput
	OutputFallback *RawOutput

	// DeprecatedPairsUsed records (oldName, newName) pairs a loose config
	// loader (e.g. cmd/vellum's YAML loader) detected before binding to this
	// struct, so the normalizer can report them via DEPRECATED_OPTIONS.
	DeprecatedPairsUsed [][2]string
}

// Result is everything NormalizeInput produces: the InputOptions plus any
// warnings raised while normalizing (the options hook can itself call
// PluginContext.Warn through a collector in future iterations; today the
// normalizer only emits DEPRECATED_OPTIONS).
type Result struct {
	Input    core.InputOptions
	Warnings []diag.Msg
}

// NormalizeInput merges, validates and defaults the loosely-typed input
// configuration into an immutable core.InputOptions.
func NormalizeInput(ctx context.Context, raw RawOptions) (*Result, error) {
	if raw.LegacyTransform || raw.LegacyLoad || raw.LegacyResolveId || raw.LegacyResolveExternal {
		return nil, errcode.New(errcode.UnsupportedLegacyOpt,
			"transform/load/resolveId/resolveExternal are not supported at the top level; use a plugin")
	}

	treeShake := true
	if raw.TreeShake != nil {
		treeShake = *raw.TreeShake
	}

	cache := raw.Cache
	if cache == nil {
		cache = cachestate.New()
	}

	input := core.InputOptions{
		Input:                raw.Input,
		Plugins:              raw.Plugins,
		External:             raw.External,
		TreeShake:            treeShake,
		Cache:                cache,
		PreserveModules:      raw.PreserveModules,
		InlineDynamicImports: raw.InlineDynamicImports,
		OptimizeChunks:       raw.OptimizeChunks,
		ChunkGroupingSize:    raw.ChunkGroupingSize,
		PreferConst:          raw.PreferConst,
		Perf:                 raw.Perf,
		ShimMissingExports:   raw.ShimMissingExports,
		ManualChunks:         raw.ManualChunks,
		OnWarn:               raw.OnWarn,
	}

	if err := validateChunkingCombos(input); err != nil {
		return nil, err
	}

	folded, err := hooks.FoldOptions(ctx, input.Plugins, input)
	if err != nil {
		return nil, err
	}
	input = folded

	// The fold runs first so a plugin's options hook can still supply the
	// entry specifier.
	if input.Input.Count() == 0 {
		return nil, errcode.New(errcode.MissingOption, "you must supply an input entry specifier")
	}

	var warnings []diag.Msg
	if len(raw.DeprecatedPairsUsed) > 0 {
		msg := diag.DeprecatedOptionsWarning(raw.DeprecatedPairsUsed)
		warnings = append(warnings, msg)
		if input.OnWarn != nil {
			input.OnWarn(core.Msg{Text: msg.Text, Notes: msg.Notes})
		}
	}

	return &Result{Input: input, Warnings: warnings}, nil
}

// validateChunkingCombos rejects the chunking toggles that cannot coexist:
// inlineDynamicImports forbids manualChunks, optimizeChunks and multiple
// entries; preserveModules forbids all three of the others.
func validateChunkingCombos(input core.InputOptions) error {
	if input.InlineDynamicImports {
		if len(input.ManualChunks) > 0 {
			return errcode.New(errcode.InvalidOption, "inlineDynamicImports cannot be combined with manualChunks")
		}
		if input.OptimizeChunks {
			return errcode.New(errcode.InvalidOption, "inlineDynamicImports cannot be combined with optimizeChunks")
		}
		if input.Input.Count() > 1 {
			return errcode.New(errcode.InvalidOption, "inlineDynamicImports requires a single entry point")
		}
	}
	if input.PreserveModules {
		if input.InlineDynamicImports {
			return errcode.New(errcode.InvalidOption, "preserveModules cannot be combined with inlineDynamicImports")
		}
		if len(input.ManualChunks) > 0 {
			return errcode.New(errcode.InvalidOption, "preserveModules cannot be combined with manualChunks")
		}
		if input.OptimizeChunks {
			return errcode.New(errcode.InvalidOption, "preserveModules cannot be combined with optimizeChunks")
		}
	}
	return nil
}

// mergeOutputLayers overlays three partial RawOutput sources by precedence:
// nested .output highest, top-level output fields next, input-level
// fallback lowest.
func mergeOutputLayers(nested, top, fallback *RawOutput) RawOutput {
	var merged RawOutput
	for _, layer := range []*RawOutput{fallback, top, nested} {
		if layer == nil {
			continue
		}
		overlay(&merged, layer)
	}
	return merged
}

func overlay(dst, src *RawOutput) {
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.File != "" {
		dst.File = src.File
	}
	if src.Dir != "" {
		dst.Dir = src.Dir
	}
	if src.EntryFileNames != "" {
		dst.EntryFileNames = src.EntryFileNames
	}
	if src.ChunkFileNames != "" {
		dst.ChunkFileNames = src.ChunkFileNames
	}
	if src.AssetFileNames != "" {
		dst.AssetFileNames = src.AssetFileNames
	}
	if src.Sourcemap != nil {
		dst.Sourcemap = src.Sourcemap
	}
	if src.SourcemapFile != "" {
		dst.SourcemapFile = src.SourcemapFile
	}
	if src.Globals != nil {
		dst.Globals = src.Globals
	}
	if src.Banner != nil {
		dst.Banner = src.Banner
	}
	if src.Footer != nil {
		dst.Footer = src.Footer
	}
	if src.Intro != nil {
		dst.Intro = src.Intro
	}
	if src.Outro != nil {
		dst.Outro = src.Outro
	}
	if src.Compact {
		dst.Compact = true
	}
	if src.Indent != "" {
		dst.Indent = src.Indent
	}
	if src.Strict != nil {
		dst.Strict = src.Strict
	}
	if src.Freeze != nil {
		dst.Freeze = src.Freeze
	}
	if src.ESModule {
		dst.ESModule = true
	}
	if src.NamespaceToStringTag {
		dst.NamespaceToStringTag = true
	}
	if src.Interop != nil {
		dst.Interop = src.Interop
	}
	if src.Extend {
		dst.Extend = true
	}
	if src.AMD != nil {
		dst.AMD = src.AMD
	}
	if src.ModuleID != "" {
		dst.ModuleID = src.ModuleID
	}
}

// NormalizeOutput merges, validates and defaults the per-generate-call
// output configuration; it runs afresh at the start of every generate call.
func NormalizeOutput(raw RawOptions) (core.OutputOptions, error) {
	merged := mergeOutputLayers(raw.Output, raw.OutputTop, raw.OutputFallback)

	if merged.AMD != nil && merged.ModuleID != "" {
		return core.OutputOptions{}, errcode.New(errcode.ConflictingOption,
			"output.amd and the legacy output.moduleId cannot both be set")
	}

	if merged.Format == "" {
		return core.OutputOptions{}, errcode.New(errcode.FormatRequired, "output.format is required")
	}
	if merged.Format == "es6" {
		return core.OutputOptions{}, errcode.New(errcode.FormatDeprecated,
			`output.format "es6" was renamed to "es"`)
	}
	format, err := validateFormat(merged.Format)
	if err != nil {
		return core.OutputOptions{}, err
	}

	if merged.File != "" && merged.Dir != "" {
		return core.OutputOptions{}, errcode.New(errcode.InvalidOption, "output.file and output.dir are mutually exclusive")
	}

	sourcemap, err := validateSourcemap(merged.Sourcemap)
	if err != nil {
		return core.OutputOptions{}, err
	}
	if merged.SourcemapFile != "" && merged.File == "" {
		return core.OutputOptions{}, errcode.New(errcode.InvalidOption, "output.sourcemapFile is only valid in single-chunk (output.file) mode")
	}

	entryFileNames := merged.EntryFileNames
	if entryFileNames == "" {
		entryFileNames = "[name].js"
	}
	chunkFileNames := merged.ChunkFileNames
	if chunkFileNames == "" {
		chunkFileNames = "[name]-[hash].js"
	}
	assetFileNames := merged.AssetFileNames
	if assetFileNames == "" {
		assetFileNames = "assets/[name]-[hash][extname]"
	}

	amdModuleID := merged.ModuleID
	if merged.AMD != nil {
		amdModuleID = merged.AMD.ID
	}

	out := core.OutputOptions{
		Format:               format,
		File:                 merged.File,
		Dir:                  merged.Dir,
		EntryFileNames:       entryFileNames,
		ChunkFileNames:       chunkFileNames,
		AssetFileNames:       assetFileNames,
		Sourcemap:            sourcemap,
		SourcemapFile:        merged.SourcemapFile,
		Globals:              merged.Globals,
		Banner:               nonNilAddon(merged.Banner),
		Footer:               nonNilAddon(merged.Footer),
		Intro:                nonNilAddon(merged.Intro),
		Outro:                nonNilAddon(merged.Outro),
		Compact:              merged.Compact,
		Indent:               defaultIndent(merged),
		Strict:               defaultTrue(merged.Strict),
		Freeze:               defaultTrue(merged.Freeze),
		ESModule:             merged.ESModule,
		NamespaceToStringTag: merged.NamespaceToStringTag,
		Interop:              defaultTrue(merged.Interop),
		Extend:               merged.Extend,
		ExportMode:           core.ExportAuto,
		AMDModuleID:          amdModuleID,
	}
	return out, nil
}

func nonNilAddon(a core.Addon) core.Addon {
	if a != nil {
		return a
	}
	return core.StringAddon("")
}

func defaultTrue(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

func defaultIndent(o RawOutput) string {
	if o.Compact {
		return ""
	}
	if o.Indent != "" {
		return o.Indent
	}
	return "\t"
}

func validateFormat(value string) (core.Format, error) {
	switch value {
	case "es", "esm", "module":
		return core.FormatES, nil
	case "cjs", "commonjs":
		return core.FormatCJS, nil
	case "amd":
		return core.FormatAMD, nil
	case "system", "systemjs":
		return core.FormatSystem, nil
	case "iife":
		return core.FormatIIFE, nil
	case "umd":
		return core.FormatUMD, nil
	default:
		return "", errcode.New(errcode.InvalidOption, "unsupported output.format %q", value)
	}
}

func validateSourcemap(value interface{}) (core.SourcemapMode, error) {
	switch v := value.(type) {
	case nil:
		return core.SourcemapOff, nil
	case bool:
		if v {
			return core.SourcemapExternal, nil
		}
		return core.SourcemapOff, nil
	case string:
		switch v {
		case "", "off", "false":
			return core.SourcemapOff, nil
		case "inline":
			return core.SourcemapInline, nil
		case "external", "true":
			return core.SourcemapExternal, nil
		default:
			return core.SourcemapOff, errcode.New(errcode.InvalidOption, "unsupported output.sourcemap %q", v)
		}
	default:
		return core.SourcemapOff, errcode.New(errcode.InvalidOption, "output.sourcemap must be a bool or string")
	}
}
