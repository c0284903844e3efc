package linker

// The link–chunk–finalize pipeline. Each stage method on linkerContext
// depends on the full completion of the previous one:
//
//   computeExecutionOrder     topological order + cycle warnings
//   determineSideEffects      memoized side-effect propagation
//   bindImportsAndExports     export-star walks + import matching (writes
//                             union-find links into the symbol database)
//   prepareExportInfo         namespace-object statement infos and the
//                             facade references entry chunks keep alive
//   includeStatements         tree shaking
//   patchModuleDependencies   distill symbol-level edges into the
//                             dependency lists the splitter traverses
//   computeChunks             entry-reachability bitsets -> chunk graph,
//                             chunk names and preliminary filenames
//   computeCrossChunkLinks    per-chunk imports/exports + global aliases
//   generateChunks            per-chunk rename, finalize, print, emit
//
// The context owns no hidden state: everything lives here and is passed
// to the output.

import (
	"sort"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
	"github.com/tinypack/tinypack/internal/logger"
)

type OutputFile struct {
	// Relative to the output directory
	Path string

	Contents []byte
}

type linkerContext struct {
	options *config.Options
	log     logger.Log
	graph   *graph.LinkerGraph

	// Canonical symbol refs that survived tree shaking
	usedSymbolRefs map[ast.Ref]bool

	// Local import symbol -> intermediate re-export hops recorded while the
	// import was matched. Consulted when member-expression chains walk the
	// same exports.
	reexportChains map[ast.Ref][]ast.Ref

	// Modules whose determined side effects are truthy
	sideEffectsModules map[uint32]bool

	// ESM only: external module -> imported names -> local symbols, in
	// deterministic discovery order, merged onto facade symbols in stage 3
	externalMerge      map[uint32]*externalMergeEntry
	externalMergeOrder []uint32

	chunks []chunkInfo

	// Module source index -> chunk index
	moduleToChunk []ast.Index32

	// Entry module source index -> chunk index
	entryModuleToChunk map[uint32]uint32

	// Final deterministic chunk emission order
	sortedChunkIndices []uint32
}

type crossChunkImportItem struct {
	ref         ast.Ref
	exportAlias string
}

type chunkImportsFromChunk struct {
	chunkIndex uint32
	items      []crossChunkImportItem
}

type externalImportItem struct {
	// The local "imported as" symbol
	ref ast.Ref

	// The interface-side name, "*" for star imports
	alias string
}

type chunkImportsFromExternal struct {
	sourceIndex uint32
	items       []externalImportItem
}

type chunkInfo struct {
	// Reachability over entry points; equality of bit sets defines chunks
	entryBits helpers.BitSet

	execOrder uint32

	isEntryPoint       bool
	isUserDefinedEntry bool
	entryBit           uint
	entrySourceIndex   uint32

	// Sorted by module execution order
	filesInChunk []uint32

	crossChunkImports        []uint32
	crossChunkDynamicImports []uint32

	// Sorted by importee chunk execution order
	importsFromOtherChunks []chunkImportsFromChunk

	// Sorted by external module execution order
	importsFromExternalModules []chunkImportsFromExternal

	// Canonical symbol -> globally deconflicted export alias
	exportsToOtherChunks map[ast.Ref]string

	// CJS only: importee chunk index -> local binding holding its require
	requireBindingNames map[uint32]string

	canonicalNames map[ast.Ref]string

	name string

	// Output path relative to the output directory; may contain a hash
	// placeholder until the caller materializes it
	relPath string
}

// Link runs the whole pipeline. The returned files are in deterministic
// chunk order. Fatal errors are accumulated on the log and cause the
// remaining stages to be skipped.
func Link(options *config.Options, log logger.Log, g *graph.LinkerGraph) []OutputFile {
	if len(g.EntryPoints) == 0 {
		log.AddError("", "No entry points configured")
		return nil
	}

	c := linkerContext{
		options:        options,
		log:            log,
		graph:          g,
		usedSymbolRefs: make(map[ast.Ref]bool),
		reexportChains: make(map[ast.Ref][]ast.Ref),
	}

	c.prepareLinkingMeta()
	c.computeExecutionOrder()
	c.determineSideEffects()
	c.bindImportsAndExports()
	c.prepareExportInfo()
	if log.HasErrors() {
		return nil
	}

	c.includeStatements()
	c.patchModuleDependencies()
	c.computeChunks()
	if len(c.chunks) > 1 && options.OutFile != "" {
		log.AddError("", "Cannot use the single-file output option when code splitting produces multiple chunks")
		return nil
	}
	c.computeCrossChunkLinks()
	if log.HasErrors() {
		return nil
	}

	return c.generateChunks()
}

// prepareLinkingMeta seeds each module's linking metadata from its import
// records: the static dependency list, the star exports that point at
// external modules, and the promotion of importees with no exports to ESM.
// It also discovers dynamic-import entry points unless they are being
// inlined.
func (c *linkerContext) prepareLinkingMeta() {
	g := c.graph

	entrySet := make(map[uint32]bool, len(g.EntryPoints))
	for _, entryPoint := range g.EntryPoints {
		entrySet[entryPoint.SourceIndex] = true
	}
	var dynamicEntries []uint32

	for sourceIndex := range g.Modules {
		module := &g.Modules[sourceIndex]
		repr, ok := module.Normal()
		if !ok {
			continue
		}

		for recordIndex, record := range *repr.ImportRecords() {
			importeeIndex := record.SourceIndex.GetIndex()
			importee := &g.Modules[importeeIndex]
			importeeRepr, importeeIsNormal := importee.Normal()

			if !importeeIsNormal && record.Flags.Has(ast.IsExportStar) {
				repr.Meta.StarExportsFromExternalModules = append(
					repr.Meta.StarExportsFromExternalModules, uint32(recordIndex))
			}

			switch record.Kind {
			case ast.ImportStmt:
				repr.Meta.AddDependency(importeeIndex)
				if importeeIsNormal && importeeRepr.ExportsKind == graph.ExportsNone {
					importeeRepr.ExportsKind = graph.ExportsESM
				}

			case ast.ImportDynamic:
				if c.options.InlineDynamicImports {
					repr.Meta.AddDependency(importeeIndex)
				} else if importeeIsNormal && !entrySet[importeeIndex] {
					entrySet[importeeIndex] = true
					dynamicEntries = append(dynamicEntries, importeeIndex)
				}
			}
		}
	}

	for _, sourceIndex := range dynamicEntries {
		g.EntryPoints = append(g.EntryPoints, graph.EntryPoint{
			SourceIndex: sourceIndex,
			Kind:        graph.EntryPointDynamicImport,
		})
	}
}

// Deterministic iteration over a module's named imports: sorted by the
// local symbol's inner index, which is scan order.
func sortedNamedImportRefs(repr *graph.NormalRepr) []ast.Ref {
	refs := make([]ast.Ref, 0, len(repr.NamedImports))
	for ref := range repr.NamedImports {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i int, j int) bool {
		return refs[i].InnerIndex < refs[j].InnerIndex
	})
	return refs
}

// An insertion-ordered set of symbol refs. Iterating the "refs" slice is
// deterministic as long as insertions were.
type orderedRefSet struct {
	refs []ast.Ref
	seen map[ast.Ref]bool
}

func (s *orderedRefSet) add(ref ast.Ref) {
	if s.seen == nil {
		s.seen = make(map[ast.Ref]bool)
	}
	if !s.seen[ref] {
		s.seen[ref] = true
		s.refs = append(s.refs, ref)
	}
}

type orderedUint32Set struct {
	values []uint32
	seen   map[uint32]bool
}

func (s *orderedUint32Set) add(value uint32) {
	if s.seen == nil {
		s.seen = make(map[uint32]bool)
	}
	if !s.seen[value] {
		s.seen[value] = true
		s.values = append(s.values, value)
	}
}
