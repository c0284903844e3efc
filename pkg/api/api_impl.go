package api

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/linker"
	"github.com/tinypack/tinypack/internal/logger"
)

// Filename hashes travel through the linker as placeholders (the core
// computes relative paths against preliminary filenames); they are
// materialized here, outside the core.
var hashPlaceholder = regexp.MustCompile(`!~\{\d{3}\}~`)

// Link runs the link–chunk–finalize pipeline over a scanned module graph.
func Link(scan *ScanOutput, buildOptions BuildOptions) BuildResult {
	log := logger.NewDeferLog(convertLogLevel(buildOptions.LogLevel))
	options := convertOptions(buildOptions)

	outputFiles := linker.Link(&options, log, scan)
	outputFiles = substituteHashes(outputFiles)

	msgs := log.Done()
	result := BuildResult{
		BuildID:  uuid.NewString(),
		Errors:   convertMessages(msgs, logger.Error),
		Warnings: convertMessages(msgs, logger.Warning),
	}

	for _, file := range outputFiles {
		result.OutputFiles = append(result.OutputFiles, OutputFile{
			Path:     file.Path,
			Contents: file.Contents,
		})
	}

	if buildOptions.Write && len(result.Errors) == 0 {
		writeOutputFiles(result.OutputFiles, buildOptions, &result)
	}
	return result
}

func convertLogLevel(level LogLevel) logger.LogLevel {
	switch level {
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		return logger.LevelNone
	}
}

func convertOptions(buildOptions BuildOptions) config.Options {
	options := config.Options{
		TreeShaking:          !buildOptions.DisableTreeShaking,
		InlineDynamicImports: buildOptions.InlineDynamicImports,
		EntryNames:           buildOptions.EntryNames,
		ChunkNames:           buildOptions.ChunkNames,
		OutDir:               buildOptions.Outdir,
		OutFile:              buildOptions.Outfile,
		AbsWorkingDir:        buildOptions.AbsWorkingDir,
	}

	switch buildOptions.Format {
	case FormatCommonJS:
		options.Format = config.FormatCommonJS
	default:
		options.Format = config.FormatESModule
	}

	switch buildOptions.Platform {
	case PlatformNode:
		options.Platform = config.PlatformNode
	case PlatformNeutral:
		options.Platform = config.PlatformNeutral
	default:
		options.Platform = config.PlatformBrowser
	}

	return options
}

// substituteHashes replaces each chunk's placeholder with the first eight
// hex characters of its content hash, in every filename and in every
// chunk body (cross-chunk import specifiers embed the placeholders too).
// Hashing the pre-substitution content keeps the fixed point trivial and
// the output deterministic.
func substituteHashes(outputFiles []linker.OutputFile) []linker.OutputFile {
	replacements := make(map[string]string)
	for _, file := range outputFiles {
		placeholder := hashPlaceholder.FindString(file.Path)
		if placeholder == "" {
			continue
		}
		sum := sha256.Sum256(file.Contents)
		replacements[placeholder] = hex.EncodeToString(sum[:])[:8]
	}
	if len(replacements) == 0 {
		return outputFiles
	}

	applyAll := func(text string) string {
		for placeholder, hash := range replacements {
			text = strings.ReplaceAll(text, placeholder, hash)
		}
		return text
	}
	for i := range outputFiles {
		outputFiles[i].Path = applyAll(outputFiles[i].Path)
		outputFiles[i].Contents = []byte(applyAll(string(outputFiles[i].Contents)))
	}
	return outputFiles
}

func writeOutputFiles(files []OutputFile, buildOptions BuildOptions, result *BuildResult) {
	outDir := buildOptions.Outdir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(buildOptions.AbsWorkingDir, outDir)
	}
	for _, file := range files {
		absPath := filepath.Join(outDir, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			result.Errors = append(result.Errors, Message{Text: "Failed to create output directory: " + err.Error()})
			return
		}
		if err := os.WriteFile(absPath, file.Contents, 0o644); err != nil {
			result.Errors = append(result.Errors, Message{Text: "Failed to write output file: " + err.Error()})
			return
		}
	}
}
