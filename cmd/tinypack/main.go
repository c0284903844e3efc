package main

// The tinypack CLI links a scanned module graph into output chunks. The
// scan stage runs as a separate tool; its serialized output (a JSON scan
// snapshot, see internal/scanfile) is this command's input.

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/logger"
	"github.com/tinypack/tinypack/internal/scanfile"
	"github.com/tinypack/tinypack/pkg/api"
)

var flags struct {
	format      string
	platform    string
	outdir      string
	outfile     string
	entryNames  string
	chunkNames  string
	entryGlobs  []string
	noShaking   bool
	inlineDyn   bool
	logLevel    string
	listOutputs bool
}

func main() {
	root := &cobra.Command{
		Use:   "tinypack <scan-snapshot.json>",
		Short: "Link a scanned JavaScript module graph into chunks",
		Args:  cobra.ExactArgs(1),
		RunE:  run,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.Flags().StringVar(&flags.format, "format", "esm", "Output format: esm or cjs")
	root.Flags().StringVar(&flags.platform, "platform", "browser", "Platform: browser, node, or neutral")
	root.Flags().StringVar(&flags.outdir, "outdir", "dist", "Output directory")
	root.Flags().StringVar(&flags.outfile, "outfile", "", "Single output file (forbids code splitting)")
	root.Flags().StringVar(&flags.entryNames, "entry-names", "", "Entry chunk filename template")
	root.Flags().StringVar(&flags.chunkNames, "chunk-names", "", "Common chunk filename template")
	root.Flags().StringArrayVar(&flags.entryGlobs, "entry", nil, "Glob over module ids selecting entry points (overrides the snapshot's)")
	root.Flags().BoolVar(&flags.noShaking, "no-tree-shaking", false, "Disable tree shaking")
	root.Flags().BoolVar(&flags.inlineDyn, "inline-dynamic-imports", false, "Inline dynamic imports instead of splitting")
	root.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level: info, warning, error, or silent")
	root.Flags().BoolVar(&flags.listOutputs, "list", false, "Print output paths instead of writing files")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	scan, err := scanfile.Decode(data)
	if err != nil {
		return err
	}

	if len(flags.entryGlobs) > 0 {
		if scan.EntryPoints, err = selectEntryPoints(scan, flags.entryGlobs); err != nil {
			return err
		}
	}

	options, err := buildOptions()
	if err != nil {
		return err
	}

	result := api.Link(scan, options)

	logger.PrintMessages(messagesToLog(result), logger.OutputOptions{
		Color:    logger.ColorIfTerminal,
		LogLevel: convertLogLevel(flags.logLevel),
	})

	if flags.listOutputs {
		for _, file := range result.OutputFiles {
			fmt.Println(file.Path)
		}
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("build failed with %d error(s)", len(result.Errors))
	}
	return nil
}

// selectEntryPoints matches the snapshot's module ids against the --entry
// globs, in glob order then module order, so the entry list (and with it
// chunk identity) is stable.
func selectEntryPoints(scan *api.ScanOutput, globs []string) ([]graph.EntryPoint, error) {
	var entryPoints []graph.EntryPoint
	seen := make(map[uint32]bool)

	for _, glob := range globs {
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid entry glob %q", glob)
		}
		matched := false
		for sourceIndex := range scan.Modules {
			module := &scan.Modules[sourceIndex]
			if _, ok := module.Normal(); !ok {
				continue
			}
			ok, _ := doublestar.Match(glob, module.StableID)
			if !ok || seen[uint32(sourceIndex)] {
				continue
			}
			seen[uint32(sourceIndex)] = true
			matched = true
			entryPoints = append(entryPoints, graph.EntryPoint{
				SourceIndex: uint32(sourceIndex),
				Kind:        graph.EntryPointUserDefined,
			})
		}
		if !matched {
			return nil, fmt.Errorf("entry glob %q matched no modules", glob)
		}
	}
	return entryPoints, nil
}

func buildOptions() (api.BuildOptions, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return api.BuildOptions{}, err
	}

	options := api.BuildOptions{
		DisableTreeShaking:   flags.noShaking,
		InlineDynamicImports: flags.inlineDyn,
		EntryNames:           flags.entryNames,
		ChunkNames:           flags.chunkNames,
		Outdir:               flags.outdir,
		Outfile:              flags.outfile,
		AbsWorkingDir:        cwd,
		Write:                !flags.listOutputs,
		LogLevel:             api.LogLevelSilent, // messages are printed below
	}

	switch flags.format {
	case "esm":
		options.Format = api.FormatESModule
	case "cjs":
		options.Format = api.FormatCommonJS
	default:
		return api.BuildOptions{}, fmt.Errorf("invalid format %q", flags.format)
	}

	switch flags.platform {
	case "browser":
		options.Platform = api.PlatformBrowser
	case "node":
		options.Platform = api.PlatformNode
	case "neutral":
		options.Platform = api.PlatformNeutral
	default:
		return api.BuildOptions{}, fmt.Errorf("invalid platform %q", flags.platform)
	}

	return options, nil
}

func convertLogLevel(level string) logger.LogLevel {
	switch level {
	case "warning":
		return logger.LevelWarning
	case "error":
		return logger.LevelError
	case "silent":
		return logger.LevelSilent
	default:
		return logger.LevelNone
	}
}

func messagesToLog(result api.BuildResult) []logger.Msg {
	var msgs []logger.Msg
	for _, message := range result.Errors {
		msgs = append(msgs, logger.Msg{Kind: logger.Error, Data: logger.MsgData{Text: message.Text, File: message.File}})
	}
	for _, message := range result.Warnings {
		msgs = append(msgs, logger.Msg{Kind: logger.Warning, Data: logger.MsgData{Text: message.Text, File: message.File}})
	}
	return msgs
}
