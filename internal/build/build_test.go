package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/diag"
	"github.com/vellumjs/vellum/internal/options"
)

func writeEntry(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunPairsBuildStartAndBuildEnd(t *testing.T) {
	var startRan, endRan bool
	var endSawError error
	plugin := core.Plugin{
		Name: "tracker",
		BuildStart: func(ctx context.Context, pc *core.PluginContext) error {
			startRan = true
			return nil
		},
		BuildEnd: func(ctx context.Context, pc *core.PluginContext, buildErr error) error {
			endRan = true
			endSawError = buildErr
			return nil
		},
	}
	raw := options.RawOptions{
		Input:   core.EntrySpec{Single: writeEntry(t, "export default 1;")},
		Plugins: []core.Plugin{plugin},
	}
	b, err := Run(context.Background(), raw, diag.NewCollector(), nil)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, startRan)
	assert.True(t, endRan)
	assert.NoError(t, endSawError)
}

func TestRunStillCallsBuildEndWhenGraphBuildFails(t *testing.T) {
	var endSawError error
	plugin := core.Plugin{
		Name: "load-fails",
		Load: func(ctx context.Context, pc *core.PluginContext, id string) (*core.LoadResult, error) {
			return nil, errors.New("load exploded")
		},
		BuildEnd: func(ctx context.Context, pc *core.PluginContext, buildErr error) error {
			endSawError = buildErr
			return nil
		},
	}
	raw := options.RawOptions{
		Input:   core.EntrySpec{Single: "anything.js"},
		Plugins: []core.Plugin{plugin},
	}
	_, err := Run(context.Background(), raw, diag.NewCollector(), nil)
	require.Error(t, err)
	require.Error(t, endSawError)
	assert.Equal(t, err, endSawError, "buildEnd must observe the same failure the caller sees")
}

func TestRunOriginalFailureTakesPrecedenceOverBuildEndFailure(t *testing.T) {
	plugin := core.Plugin{
		Name: "both-fail",
		Load: func(ctx context.Context, pc *core.PluginContext, id string) (*core.LoadResult, error) {
			return nil, errors.New("graph failure")
		},
		BuildEnd: func(ctx context.Context, pc *core.PluginContext, buildErr error) error {
			return errors.New("buildEnd failure")
		},
	}
	raw := options.RawOptions{
		Input:   core.EntrySpec{Single: "anything.js"},
		Plugins: []core.Plugin{plugin},
	}
	_, err := Run(context.Background(), raw, diag.NewCollector(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph failure")
}

func TestRunFailsFastOnBadOptions(t *testing.T) {
	raw := options.RawOptions{
		Input:                core.EntrySpec{List: []string{"a.js", "b.js"}},
		InlineDynamicImports: true,
	}
	_, err := Run(context.Background(), raw, diag.NewCollector(), nil)
	require.Error(t, err)
}

func TestRunReturnsBuildHandleWithChunks(t *testing.T) {
	raw := options.RawOptions{Input: core.EntrySpec{Single: writeEntry(t, "export const x = 1;")}}
	b, err := Run(context.Background(), raw, diag.NewCollector(), nil)
	require.NoError(t, err)
	assert.Len(t, b.Chunks(), 1)
}
