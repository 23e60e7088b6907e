// Config loading for the vellum CLI: a YAML file mapping onto pkg/api's
// InputOptions/OutputOptions.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vellumjs/vellum/internal/core"
	"github.com/vellumjs/vellum/internal/errcode"
	"github.com/vellumjs/vellum/pkg/api"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of vellum.yaml.
type fileConfig struct {
	// Input accepts a single path, a list of paths, or a name->path mapping;
	// decoded dynamically since YAML doesn't distinguish the three shapes at
	// the struct-tag level.
	Input interface{} `yaml:"input"`

	// Entry is the deprecated alias for Input, rewritten with a
	// DEPRECATED_OPTIONS warning rather than failing outright.
	Entry interface{} `yaml:"entry"`

	External []string `yaml:"external"`

	PreserveModules      bool `yaml:"preserveModules"`
	InlineDynamicImports bool `yaml:"inlineDynamicImports"`
	OptimizeChunks       bool `yaml:"optimizeChunks"`
	ChunkGroupingSize    int  `yaml:"chunkGroupingSize"`
	PreferConst          bool `yaml:"preferConst"`
	Perf                 bool `yaml:"perf"`
	ShimMissingExports   bool `yaml:"shimMissingExports"`

	Output outputConfig `yaml:"output"`
}

type outputConfig struct {
	Format string `yaml:"format"`

	File string `yaml:"file"`
	Dir  string `yaml:"dir"`

	// Dest is the deprecated alias for File.
	Dest string `yaml:"dest"`

	EntryFileNames string `yaml:"entryFileNames"`
	ChunkFileNames string `yaml:"chunkFileNames"`
	AssetFileNames string `yaml:"assetFileNames"`

	Sourcemap     interface{} `yaml:"sourcemap"`
	SourcemapFile string      `yaml:"sourcemapFile"`

	Compact bool   `yaml:"compact"`
	Indent  string `yaml:"indent"`
}

// loadConfig reads and decodes path into a fileConfig.
func loadConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// yaml.v3 reports unknown keys as "field X not found in type ...".
		if strings.Contains(err.Error(), "not found in type") {
			return nil, errcode.New(errcode.UnknownOption, "parsing %s: %v", path, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// toInputOptions translates the loosely-typed YAML document into an
// api.InputOptions, recording any deprecated-alias rewrites it performs.
func (c *fileConfig) toInputOptions() (api.InputOptions, error) {
	var deprecated [][2]string

	entrySpec, err := decodeEntrySpec(c.Input)
	if err != nil {
		return api.InputOptions{}, err
	}
	if entrySpec.Count() == 0 && c.Entry != nil {
		entrySpec, err = decodeEntrySpec(c.Entry)
		if err != nil {
			return api.InputOptions{}, err
		}
		deprecated = append(deprecated, [2]string{"entry", "input"})
	}

	outFile := c.Output.File
	if outFile == "" && c.Output.Dest != "" {
		outFile = c.Output.Dest
		deprecated = append(deprecated, [2]string{"output.dest", "output.file"})
	}

	var external api.ExternalPolicy
	if len(c.External) > 0 {
		ids := make(map[string]bool, len(c.External))
		for _, id := range c.External {
			ids[id] = true
		}
		external = api.ExternalPolicy{IDs: ids}
	}

	return api.InputOptions{
		Input:                entrySpec,
		External:             external,
		PreserveModules:      c.PreserveModules,
		InlineDynamicImports: c.InlineDynamicImports,
		OptimizeChunks:       c.OptimizeChunks,
		ChunkGroupingSize:    c.ChunkGroupingSize,
		PreferConst:          c.PreferConst,
		Perf:                 c.Perf,
		ShimMissingExports:   c.ShimMissingExports,
		DeprecatedPairsUsed:  deprecated,
		Output: &api.OutputOptions{
			Format:         c.Output.Format,
			File:           outFile,
			Dir:            c.Output.Dir,
			EntryFileNames: c.Output.EntryFileNames,
			ChunkFileNames: c.Output.ChunkFileNames,
			AssetFileNames: c.Output.AssetFileNames,
			Sourcemap:      c.Output.Sourcemap,
			SourcemapFile:  c.Output.SourcemapFile,
			Compact:        c.Output.Compact,
			Indent:         c.Output.Indent,
		},
	}, nil
}

// decodeEntrySpec interprets a YAML input value that may be a single
// string, a sequence of strings, or a name->path mapping. A mapping is
// decoded into a Go map, so its key order is not kept: named entries are
// ordered by name.
func decodeEntrySpec(value interface{}) (core.EntrySpec, error) {
	switch v := value.(type) {
	case nil:
		return core.EntrySpec{}, nil
	case string:
		return core.EntrySpec{Single: v}, nil
	case []interface{}:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return core.EntrySpec{}, fmt.Errorf("input: expected a string list, found %T", item)
			}
			list = append(list, s)
		}
		return core.EntrySpec{List: list}, nil
	case map[string]interface{}:
		named := make(map[string]string, len(v))
		order := make([]string, 0, len(v))
		for name, path := range v {
			s, ok := path.(string)
			if !ok {
				return core.EntrySpec{}, fmt.Errorf("input.%s: expected a string, found %T", name, path)
			}
			named[name] = s
			order = append(order, name)
		}
		sort.Strings(order)
		return core.EntrySpec{Named: named, NamedOrder: order}, nil
	default:
		return core.EntrySpec{}, fmt.Errorf("input: unsupported shape %T", value)
	}
}
