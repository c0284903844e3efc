package linker

// Once binding is complete, every module gets its namespace-object
// statement info (the reserved index 0 slot), and every entry point gets
// the list of facade references its chunk's prologue and epilogue must
// keep alive. Both feed the tree shaker.

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/js_ast"
)

func (c *linkerContext) prepareExportInfo() {
	g := c.graph
	isCJS := c.options.Format == config.FormatCommonJS

	for sourceIndex := range g.Modules {
		module := &g.Modules[sourceIndex]
		repr, ok := module.Normal()
		if !ok {
			continue
		}

		var declared []ast.Ref
		var referenced []graph.ReferencedSymbol

		if len(repr.Meta.SortedResolvedExports) > 0 {
			referenced = append(referenced, graph.ReferencedSymbol{Ref: g.RuntimeSymbol("__export")})
			for _, name := range repr.Meta.SortedResolvedExports {
				referenced = append(referenced, graph.ReferencedSymbol{Ref: repr.Meta.ResolvedExports[name].Ref})
			}
		}

		if len(repr.Meta.StarExportsFromExternalModules) > 0 {
			referenced = append(referenced, graph.ReferencedSymbol{Ref: g.RuntimeSymbol("__reExport")})
			for _, recordIndex := range repr.Meta.StarExportsFromExternalModules {
				record := &(*repr.ImportRecords())[recordIndex]
				external := &g.Modules[record.SourceIndex.GetIndex()]
				symbol := g.Symbols.Get(record.NamespaceRef)
				symbol.OriginalName = "import_" + js_ast.LegitimizeIdentifier(external.StableID)
				if !isCJS {
					// The finalizer synthesizes "import * as <ns> from 'ext'", so
					// the record's namespace binding is declared here
					declared = append(declared, record.NamespaceRef)
					referenced = append(referenced, graph.ReferencedSymbol{Ref: record.NamespaceRef})
				}
			}
		}

		declared = append(declared, repr.NamespaceRef)
		repr.ReplaceNamespaceStmtInfo(graph.StmtInfo{
			DeclaredSymbols:   declared,
			ReferencedSymbols: referenced,
		})

		// Inlined dynamic imports rewrite to a promise of the importee's
		// namespace object, so that namespace must survive tree shaking
		if c.options.InlineDynamicImports {
			for stmtIndex := 1; stmtIndex < len(repr.StmtInfos); stmtIndex++ {
				info := &repr.StmtInfos[stmtIndex]
				for _, recordIndex := range info.ImportRecordIndices {
					record := &(*repr.ImportRecords())[recordIndex]
					if record.Kind != ast.ImportDynamic {
						continue
					}
					if importeeRepr, ok := g.Modules[record.SourceIndex.GetIndex()].Normal(); ok {
						info.ReferencedSymbols = append(info.ReferencedSymbols,
							graph.ReferencedSymbol{Ref: importeeRepr.NamespaceRef})
					}
				}
			}
		}

		// In CJS output, importing anything but bare side effects from an
		// external module turns into "__toESM(require(...))", which both
		// needs the helper and must survive tree shaking.
		if isCJS {
			for stmtIndex := 1; stmtIndex < len(repr.StmtInfos); stmtIndex++ {
				info := &repr.StmtInfos[stmtIndex]
				for _, recordIndex := range info.ImportRecordIndices {
					record := &(*repr.ImportRecords())[recordIndex]
					if _, isExternal := g.Modules[record.SourceIndex.GetIndex()].External(); isExternal &&
						record.Kind.IsStatic() &&
						!record.Flags.Has(ast.IsPlainImport) &&
						!record.Flags.Has(ast.IsExportStar) {
						info.ReferencedSymbols = append(info.ReferencedSymbols,
							graph.ReferencedSymbol{Ref: g.RuntimeSymbol("__toESM")})
						info.HasSideEffect = true
						break
					}
				}
			}
		}
	}

	for _, entryPoint := range g.EntryPoints {
		repr, ok := g.Modules[entryPoint.SourceIndex].Normal()
		if !ok {
			continue
		}
		for _, name := range repr.Meta.SortedResolvedExports {
			repr.Meta.ReferencedSymbolsByEntryPointChunk = append(
				repr.Meta.ReferencedSymbolsByEntryPointChunk,
				repr.Meta.ResolvedExports[name].Ref)
		}
		if isCJS {
			repr.Meta.ReferencedSymbolsByEntryPointChunk = append(
				repr.Meta.ReferencedSymbolsByEntryPointChunk,
				g.RuntimeSymbol("__toCommonJS"), repr.NamespaceRef)
		}
	}
}
