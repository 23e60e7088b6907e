// Command vellum is the CLI front-end around pkg/api: one build command
// driven by a YAML config file, with no diagnostic formatting of its own
// beyond what internal/diag already renders through Msg.Text/Notes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vellumjs/vellum/pkg/api"
)

var (
	version = "0.1.0"
	cfgFile string
	verbose bool

	formatOverride string
	fileOverride   string
	dirOverride    string
	sourcemap      bool
)

var rootCmd = &cobra.Command{
	Use:     "vellum",
	Short:   "A JavaScript module bundler core",
	Long:    `vellum resolves, loads and transforms a module graph and emits one or more output chunks, driven by a plugin chain.`,
	Version: version,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the BUILD and GENERATE phases and write the bundle to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		inputOpts, err := cfg.toInputOptions()
		if err != nil {
			return fmt.Errorf("reading %s: %w", cfgFile, err)
		}

		if formatOverride != "" {
			inputOpts.Output.Format = formatOverride
		}
		if fileOverride != "" {
			inputOpts.Output.File = fileOverride
		}
		if dirOverride != "" {
			inputOpts.Output.Dir = dirOverride
		}
		if sourcemap {
			inputOpts.Output.Sourcemap = true
		}

		inputOpts.OnWarn = func(m api.Msg) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", m.Text)
			for _, note := range m.Notes {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", note)
			}
		}

		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "loaded config from %s\n", cfgFile)
		}

		ctx := cmd.Context()
		build, err := api.Rollup(ctx, inputOpts)
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}

		result, err := build.Write(ctx, *inputOpts.Output)
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d output %s\n", len(result.Output), pluralEntries(len(result.Output)))

		if inputOpts.Perf {
			for label, ms := range build.GetTimings() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %.2fms\n", label, ms)
			}
		}
		return nil
	},
}

func pluralEntries(n int) string {
	if n == 1 {
		return "entry"
	}
	return "entries"
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "vellum.config.yaml", "path to the vellum YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	buildCmd.Flags().StringVar(&formatOverride, "format", "", "override output.format from the config file")
	buildCmd.Flags().StringVar(&fileOverride, "file", "", "override output.file")
	buildCmd.Flags().StringVar(&dirOverride, "dir", "", "override output.dir")
	buildCmd.Flags().BoolVar(&sourcemap, "sourcemap", false, "force output.sourcemap=true")

	rootCmd.AddCommand(buildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
