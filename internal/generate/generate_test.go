package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumjs/vellum/internal/build"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/diag"
	"github.com/vellumjs/vellum/internal/options"
)

func writeEntry(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func buildSingleEntry(t *testing.T, plugins []core.Plugin) *core.Build {
	t.Helper()
	dir := t.TempDir()
	path := writeEntry(t, dir, "main.js", "export default 1;\n")
	raw := options.RawOptions{Input: core.EntrySpec{Single: path}, Plugins: plugins}
	b, err := build.Run(context.Background(), raw, diag.NewCollector(), nil)
	require.NoError(t, err)
	return b
}

func buildTwoEntries(t *testing.T) *core.Build {
	t.Helper()
	dir := t.TempDir()
	a := writeEntry(t, dir, "a.js", "export const a = 1;\n")
	c := writeEntry(t, dir, "b.js", "export const b = 2;\n")
	raw := options.RawOptions{Input: core.EntrySpec{List: []string{a, c}}}
	b, err := build.Run(context.Background(), raw, diag.NewCollector(), nil)
	require.NoError(t, err)
	return b
}

func TestRunSingleEntryUMDSucceeds(t *testing.T) {
	b := buildSingleEntry(t, nil)
	_, result, out, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "umd", Dir: "dist"}}, false)
	require.NoError(t, err)
	require.Len(t, result.Output, 1)
	assert.Equal(t, core.FormatUMD, out.Format)
}

func TestRunTwoEntryUMDFails(t *testing.T) {
	b := buildTwoEntries(t)
	_, _, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "umd", Dir: "dist"}}, false)
	require.Error(t, err)
}

func TestRunFileAndDirConflict(t *testing.T) {
	b := buildSingleEntry(t, nil)
	_, _, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", File: "out.js", Dir: "dist"}}, false)
	require.Error(t, err)
}

func TestRunRendersChunkContent(t *testing.T) {
	b := buildSingleEntry(t, nil)
	_, result, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	require.Len(t, result.Output, 1)
	entry := result.Output[0]
	require.Equal(t, core.BundleChunk, entry.Kind)
	assert.Contains(t, entry.Chunk.Code, "export default 1;")
	assert.True(t, entry.Chunk.IsEntry)
}

func TestRunIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	b := buildSingleEntry(t, nil)
	_, first, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	_, second, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)

	require.Len(t, first.Output, 1)
	require.Len(t, second.Output, 1)
	assert.Equal(t, first.Output[0].Chunk.Code, second.Output[0].Chunk.Code)
	assert.Equal(t, first.Output[0].FileName, second.Output[0].FileName)
}

func TestRunChunkOptimizationRunsAtMostOnce(t *testing.T) {
	raw := options.RawOptions{
		Input:          core.EntrySpec{Single: writeEntry(t, t.TempDir(), "main.js", "export default 1;")},
		OptimizeChunks: true,
	}
	b, err := build.Run(context.Background(), raw, diag.NewCollector(), nil)
	require.NoError(t, err)

	assert.False(t, b.Optimized())
	_, _, _, err = Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	assert.True(t, b.Optimized())

	_, _, _, err = Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist2"}}, false)
	require.NoError(t, err)
	assert.True(t, b.Optimized(), "a second generate call must not re-run optimization")
}

func TestRunEmptyPluginListProducesOutput(t *testing.T) {
	b := buildSingleEntry(t, nil)
	_, result, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Output)
}

func TestRunFinalizesEmittedAssets(t *testing.T) {
	plugin := core.Plugin{
		Name: "asset-emitter",
		GenerateBundle: func(ctx context.Context, pc *core.PluginContext, out core.OutputOptions, bundle *core.OutputBundle, isWrite bool) error {
			_, err := pc.EmitAsset("logo.png", []byte("binary"))
			return err
		},
	}
	b := buildSingleEntry(t, []core.Plugin{plugin})
	_, result, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)

	var sawAsset bool
	for _, entry := range result.Output {
		if entry.Kind == core.BundleAsset {
			sawAsset = true
			assert.Equal(t, "assets/logo-", entry.Asset.FileName[:len("assets/logo-")])
		}
	}
	assert.True(t, sawAsset)
}

func TestRunBuildPhaseAssetAppearsInEveryGenerateCall(t *testing.T) {
	plugin := core.Plugin{
		Name: "logo",
		BuildStart: func(ctx context.Context, pc *core.PluginContext) error {
			_, err := pc.EmitAsset("logo.png", []byte("binary"))
			return err
		},
	}
	b := buildSingleEntry(t, []core.Plugin{plugin})

	raw := options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}
	_, first, _, err := Run(context.Background(), b, raw, false)
	require.NoError(t, err)
	_, second, _, err := Run(context.Background(), b, raw, false)
	require.NoError(t, err)

	firstAsset := assetFileNames(first)
	secondAsset := assetFileNames(second)
	require.Len(t, firstAsset, 1)
	assert.Equal(t, firstAsset, secondAsset, "a build-phase asset must be present in every generate call's bundle")
}

func TestRunGenerateBundleAssetsDoNotLeakBetweenCalls(t *testing.T) {
	plugin := core.Plugin{
		Name: "per-call",
		GenerateBundle: func(ctx context.Context, pc *core.PluginContext, out core.OutputOptions, bundle *core.OutputBundle, isWrite bool) error {
			_, err := pc.EmitAsset("style.css", []byte("body{}"))
			return err
		},
	}
	b := buildSingleEntry(t, []core.Plugin{plugin})

	raw := options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}
	_, first, _, err := Run(context.Background(), b, raw, false)
	require.NoError(t, err)
	_, second, _, err := Run(context.Background(), b, raw, false)
	require.NoError(t, err)

	firstAsset := assetFileNames(first)
	secondAsset := assetFileNames(second)
	require.Len(t, firstAsset, 1)
	require.Len(t, secondAsset, 1, "the second call sees only its own emission, not the first call's")
	assert.Equal(t, firstAsset, secondAsset, "identical emissions produce identical filenames across calls")
}

func assetFileNames(result *core.GenerateResult) []string {
	var names []string
	for _, entry := range result.Output {
		if entry.Kind == core.BundleAsset {
			names = append(names, entry.FileName)
		}
	}
	return names
}

func TestRunEntryNamesKeepSubdirectoriesRelativeToInputBase(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	a := writeEntry(t, dir, "a.js", "export const a = 1;\n")
	b2 := writeEntry(t, sub, "b.js", "export const b = 2;\n")

	raw := options.RawOptions{Input: core.EntrySpec{List: []string{a, b2}}}
	b, err := build.Run(context.Background(), raw, diag.NewCollector(), nil)
	require.NoError(t, err)

	_, result, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	require.Len(t, result.Output, 2)
	assert.Equal(t, "a.js", result.Output[0].FileName)
	assert.Equal(t, "sub/b.js", result.Output[1].FileName)
}

func TestRunFailsWhenAssetNeverGetsASource(t *testing.T) {
	plugin := core.Plugin{
		Name: "dangling-asset",
		GenerateBundle: func(ctx context.Context, pc *core.PluginContext, out core.OutputOptions, bundle *core.OutputBundle, isWrite bool) error {
			_, err := pc.EmitAsset("never.bin", nil)
			return err
		},
	}
	b := buildSingleEntry(t, []core.Plugin{plugin})
	_, _, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.Error(t, err)
}

func TestRunAppliesTransformChunkPipelineToRenderedCode(t *testing.T) {
	plugins := []core.Plugin{
		{
			Name: "minify",
			TransformChunk: func(ctx context.Context, pc *core.PluginContext, code string, out core.OutputOptions, chunk *core.OutputChunk) (*core.TransformResult, error) {
				return &core.TransformResult{Code: code + "// minified\n"}, nil
			},
		},
		{
			Name: "legacy",
			TransformBundle: func(ctx context.Context, pc *core.PluginContext, code string, out core.OutputOptions, chunk *core.OutputChunk) (*core.TransformResult, error) {
				return &core.TransformResult{Code: code + "// legacy\n"}, nil
			},
		},
	}
	b := buildSingleEntry(t, plugins)
	_, result, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	require.Len(t, result.Output, 1)

	code := result.Output[0].Chunk.Code
	minified := len("// minified\n// legacy\n")
	assert.Equal(t, "// minified\n// legacy\n", code[len(code)-minified:], "transformChunk output feeds the deprecated transformBundle, in declared order")
}

func TestRunLegacyOnGenerateSeesTransformedCode(t *testing.T) {
	var observed string
	plugins := []core.Plugin{
		{
			Name: "stamp",
			TransformChunk: func(ctx context.Context, pc *core.PluginContext, code string, out core.OutputOptions, chunk *core.OutputChunk) (*core.TransformResult, error) {
				return &core.TransformResult{Code: code + "// stamped\n"}, nil
			},
			OnGenerate: func(out core.OutputOptions, bundleChunk *core.OutputChunk, chunk *core.OutputChunk) error {
				observed = chunk.Code
				return nil
			},
		},
	}
	b := buildSingleEntry(t, plugins)
	_, _, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	assert.Contains(t, observed, "// stamped")
}

func TestRunOutputOrderEntriesBeforeAssets(t *testing.T) {
	plugin := core.Plugin{
		Name: "asset-emitter",
		GenerateBundle: func(ctx context.Context, pc *core.PluginContext, out core.OutputOptions, bundle *core.OutputBundle, isWrite bool) error {
			_, err := pc.EmitAsset("style.css", []byte("body{}"))
			return err
		},
	}
	b := buildSingleEntry(t, []core.Plugin{plugin})
	_, result, _, err := Run(context.Background(), b, options.RawOptions{Output: &options.RawOutput{Format: "es", Dir: "dist"}}, false)
	require.NoError(t, err)
	require.Len(t, result.Output, 2)
	assert.Equal(t, core.BundleChunk, result.Output[0].Kind)
	assert.Equal(t, core.BundleAsset, result.Output[1].Kind)
}
