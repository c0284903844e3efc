package api

// The public surface of the bundler core. The scan stage is an external
// collaborator: callers hand over an already-scanned module graph (see
// internal/scanfile for the serialized form the CLI consumes) and get
// back rendered chunks.

import (
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/logger"
)

type Format uint8

const (
	FormatESModule Format = iota
	FormatCommonJS
)

type Platform uint8

const (
	PlatformBrowser Platform = iota
	PlatformNode
	PlatformNeutral
)

type LogLevel uint8

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarning
	LogLevelError
	LogLevelSilent
)

type Message struct {
	Text string

	// Stable module id providing context, if any
	File string
}

type OutputFile struct {
	// Relative to the output directory
	Path string

	Contents []byte
}

type BuildOptions struct {
	Format   Format
	Platform Platform

	// Tree shaking is on by default
	DisableTreeShaking bool

	InlineDynamicImports bool

	// "[name]" and "[hash]" templates
	EntryNames string
	ChunkNames string

	Outdir  string
	Outfile string

	AbsWorkingDir string

	LogLevel LogLevel

	// Write output files to Outdir
	Write bool
}

type BuildResult struct {
	// Correlates this build's log lines and artifacts
	BuildID string

	OutputFiles []OutputFile

	Errors   []Message
	Warnings []Message
}

// ScanOutput is the module graph the core links: the module table, the
// symbol database, the entry points, and the runtime-module brief.
type ScanOutput = graph.LinkerGraph

func convertMessages(msgs []logger.Msg, kind logger.MsgKind) []Message {
	var out []Message
	for _, msg := range msgs {
		if msg.Kind == kind {
			out = append(out, Message{Text: msg.Data.Text, File: msg.Data.File})
		}
	}
	return out
}
