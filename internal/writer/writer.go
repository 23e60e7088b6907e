// Package writer implements the Output Writer: persisting an output bundle
// to disk, with the optional sibling .map file, the sourceMappingURL
// comment, and legacy onwrite hook dispatch. Parallel writes across bundle
// entries use the same github.com/sourcegraph/conc/pool construction
// internal/hooks uses for the Hook Driver's fan-outs.
package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"
	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/internal/hooks"
)

// Write persists every entry in bundle to disk under the directory implied
// by out (out.Dir, or the directory of out.File in single-file mode), then
// invokes each plugin's legacy onwrite hook for every chunk written. Errors from one entry do not prevent the others already
// in flight from completing; write errors fail the call but partially
// written files are left on disk.
func Write(ctx context.Context, plugins []core.Plugin, out core.OutputOptions, result *core.GenerateResult) error {
	if out.File == "" && out.Dir == "" {
		return errcode.New(errcode.MissingOutputOption, "you must set output.file or output.dir to write a bundle")
	}
	destDir := out.Dir
	if destDir == "" {
		destDir = filepath.Dir(out.File)
	}

	p := pool.New().WithErrors()
	for _, entry := range result.Output {
		entry := entry
		p.Go(func() error {
			return writeEntry(ctx, plugins, destDir, out, entry)
		})
	}
	return p.Wait()
}

func writeEntry(ctx context.Context, plugins []core.Plugin, destDir string, out core.OutputOptions, entry *core.BundleEntry) error {
	switch entry.Kind {
	case core.BundleAsset:
		return writeAsset(destDir, entry.Asset)
	case core.BundleChunk:
		if err := writeChunk(destDir, out, entry.Chunk); err != nil {
			return err
		}
		return hooks.FanOutParallel(ctx, plugins, 0, func(ctx context.Context, plug core.Plugin) error {
			if plug.OnWrite == nil {
				return nil
			}
			return plug.OnWrite(out, entry.Chunk)
		})
	default:
		return errcode.New(errcode.InvalidOption, "unknown bundle entry kind for %q", entry.FileName)
	}
}

func writeAsset(destDir string, asset *core.OutputAsset) error {
	dest := filepath.Join(destDir, asset.FileName)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errcode.New(errcode.InvalidOption, "could not create directory for %q: %v", asset.FileName, err)
	}
	if err := os.WriteFile(dest, asset.Source, 0o644); err != nil {
		return errcode.New(errcode.InvalidOption, "could not write %q: %v", asset.FileName, err)
	}
	return nil
}

// writeChunk writes the map sibling first, then the code file, for
// deterministic crash semantics.
func writeChunk(destDir string, out core.OutputOptions, chunk *core.OutputChunk) error {
	dest := filepath.Join(destDir, chunk.FileName)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errcode.New(errcode.InvalidOption, "could not create directory for %q: %v", chunk.FileName, err)
	}

	code := chunk.Code
	if out.Sourcemap != core.SourcemapOff && chunk.Map != nil {
		switch out.Sourcemap {
		case core.SourcemapInline:
			code += "\n//# sourceMappingURL=" + chunk.Map.URLForm() + "\n"
		case core.SourcemapExternal:
			mapName := mapFileName(out, chunk)
			mapDest := filepath.Join(destDir, mapName)
			if err := os.WriteFile(mapDest, []byte(chunk.Map.JSON), 0o644); err != nil {
				return errcode.New(errcode.InvalidOption, "could not write %q: %v", mapName, err)
			}
			code += "\n//# sourceMappingURL=" + filepath.Base(mapName) + "\n"
		}
	}

	if err := os.WriteFile(dest, []byte(code), 0o644); err != nil {
		return errcode.New(errcode.InvalidOption, "could not write %q: %v", chunk.FileName, err)
	}
	return nil
}

// mapFileName honors output.sourcemapFile when set; otherwise it is the
// chunk's own filename with ".map" appended.
func mapFileName(out core.OutputOptions, chunk *core.OutputChunk) string {
	if out.SourcemapFile != "" {
		return out.SourcemapFile
	}
	return fmt.Sprintf("%s.map", chunk.FileName)
}
