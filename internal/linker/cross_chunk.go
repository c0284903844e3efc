package linker

// Cross-chunk linking. Pass A collects, per chunk, every symbol its
// included statements depend on (after canonicalization and namespace
// alias resolution) and assigns every declared symbol its owning chunk.
// Pass B turns depended symbols whose owning chunk differs into
// cross-chunk imports and marks them exported from the owner. Pass C
// deconflicts the export aliases globally. Pass D copies the chosen
// aliases onto the import items.

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
	"github.com/tinypack/tinypack/internal/js_ast"
)

type crossChunkPassAOutput struct {
	depended       orderedRefSet
	dynamicImports orderedUint32Set

	externalModules orderedUint32Set
	externalItems   map[uint32][]externalImportItem

	// Symbols declared by included statements; their chunk assignment is
	// applied serially after the parallel region
	declared []ast.Ref
}

func (c *linkerContext) computeCrossChunkLinks() {
	g := c.graph

	// Pass A: parallel over chunks, each writing only its own accumulator
	passA := make([]crossChunkPassAOutput, len(c.chunks))
	waitGroup := helpers.MakeThreadSafeWaitGroup()
	waitGroup.Add(1)
	for chunkIndex := range c.chunks {
		waitGroup.Add(1)
		go func(chunkIndex int) {
			passA[chunkIndex] = c.collectDependedSymbols(uint32(chunkIndex))
			waitGroup.Done()
		}(chunkIndex)
	}
	waitGroup.Done()
	waitGroup.Wait()

	for chunkIndex := range c.chunks {
		for _, ref := range passA[chunkIndex].declared {
			g.Symbols.Get(ref).ChunkIndex = ast.MakeIndex32(uint32(chunkIndex))
		}
	}

	// Pass B: sequential
	exportedSymbols := make([]orderedRefSet, len(c.chunks))
	crossChunkImports := make([]orderedUint32Set, len(c.chunks))
	importsFromOtherChunks := make([]map[uint32][]crossChunkImportItem, len(c.chunks))
	for chunkIndex := range c.chunks {
		importsFromOtherChunks[chunkIndex] = make(map[uint32][]crossChunkImportItem)
	}

	for chunkIndex := range c.chunks {
		chunk := &c.chunks[chunkIndex]

		for _, ref := range passA[chunkIndex].depended.refs {
			if !c.usedSymbolRefs[ref] {
				continue
			}
			if _, isExternal := g.Modules[ref.SourceIndex].External(); isExternal {
				continue
			}
			symbol := g.Symbols.Get(ref)
			if symbol.Kind == js_ast.SymbolUnbound {
				// Globals are declared by no module and belong to no chunk
				continue
			}
			if !symbol.ChunkIndex.IsValid() {
				panic("Internal error")
			}
			importeeChunk := symbol.ChunkIndex.GetIndex()
			if importeeChunk == uint32(chunkIndex) {
				continue
			}
			crossChunkImports[chunkIndex].add(importeeChunk)
			importsFromOtherChunks[chunkIndex][importeeChunk] =
				append(importsFromOtherChunks[chunkIndex][importeeChunk], crossChunkImportItem{ref: ref})
			exportedSymbols[importeeChunk].add(ref)
		}

		// An entry chunk must import every chunk its entry can reach that has
		// side effects, even when no symbol requires it, to preserve
		// evaluation order
		if chunk.isEntryPoint {
			for otherIndex := range c.chunks {
				if otherIndex == chunkIndex {
					continue
				}
				other := &c.chunks[otherIndex]
				if other.entryBits.HasBit(chunk.entryBit) && c.chunkHasSideEffects(other) {
					crossChunkImports[chunkIndex].add(uint32(otherIndex))
					if _, ok := importsFromOtherChunks[chunkIndex][uint32(otherIndex)]; !ok {
						importsFromOtherChunks[chunkIndex][uint32(otherIndex)] = nil
					}
				}
			}
		}
	}

	// Pass C: deconflict export aliases globally. Iterating exports in
	// descending owner execution order makes names from later modules (the
	// entries) win the unsuffixed form.
	aliasUsed := make(map[string]bool)
	aliasCounts := make(map[string]uint32)
	for chunkIndex := range c.chunks {
		exported := make([]ast.Ref, len(exportedSymbols[chunkIndex].refs))
		copy(exported, exportedSymbols[chunkIndex].refs)
		sort.Slice(exported, func(i int, j int) bool {
			a, b := exported[i], exported[j]
			aOrder, bOrder := g.Modules[a.SourceIndex].ExecOrder, g.Modules[b.SourceIndex].ExecOrder
			if aOrder != bOrder {
				return aOrder > bOrder
			}
			if a.SourceIndex != b.SourceIndex {
				return a.SourceIndex < b.SourceIndex
			}
			return a.InnerIndex < b.InnerIndex
		})

		for _, ref := range exported {
			base := js_ast.LegitimizeIdentifier(g.Symbols.Get(ref).OriginalName)
			alias := base
			count := aliasCounts[base]
			if count > 0 {
				alias = base + "$" + strconv.FormatUint(uint64(count), 10)
			}
			for aliasUsed[alias] {
				count++
				alias = base + "$" + strconv.FormatUint(uint64(count), 10)
			}
			aliasCounts[base] = count + 1
			aliasUsed[alias] = true
			c.chunks[chunkIndex].exportsToOtherChunks[ref] = alias
		}
	}

	// Pass D: annotate import items with their export alias, parallel over
	// chunks; also apply the deterministic orderings
	waitGroup = helpers.MakeThreadSafeWaitGroup()
	waitGroup.Add(1)
	for chunkIndex := range c.chunks {
		waitGroup.Add(1)
		go func(chunkIndex int) {
			c.finishCrossChunkImports(
				uint32(chunkIndex),
				&passA[chunkIndex],
				crossChunkImports[chunkIndex].values,
				importsFromOtherChunks[chunkIndex])
			waitGroup.Done()
		}(chunkIndex)
	}
	waitGroup.Done()
	waitGroup.Wait()
}

func (c *linkerContext) collectDependedSymbols(chunkIndex uint32) crossChunkPassAOutput {
	g := c.graph
	chunk := &c.chunks[chunkIndex]
	output := crossChunkPassAOutput{externalItems: make(map[uint32][]externalImportItem)}

	addDepended := func(ref ast.Ref) {
		canonical := g.Symbols.CanonicalRef(ref)
		if alias := g.Symbols.Get(canonical).NamespaceAlias; alias != nil {
			canonical = g.Symbols.CanonicalRef(alias.NamespaceRef)
		}
		output.depended.add(canonical)
	}

	for _, sourceIndex := range chunk.filesInChunk {
		repr, ok := g.Modules[sourceIndex].Normal()
		if !ok {
			continue
		}

		for _, record := range *repr.ImportRecords() {
			importee := &g.Modules[record.SourceIndex.GetIndex()]
			if importeeRepr, isNormal := importee.Normal(); isNormal {
				if record.Kind == ast.ImportDynamic && importeeRepr.Flags.Has(graph.ModuleIncluded) {
					if importeeChunk := c.moduleToChunk[record.SourceIndex.GetIndex()]; importeeChunk.IsValid() {
						output.dynamicImports.add(importeeChunk.GetIndex())
					}
				}
				continue
			}
			// Register the external module even with no named imports so a
			// side-effect import line can be emitted
			if record.Kind.IsStatic() && !record.Flags.Has(ast.IsExportStar) {
				output.externalModules.add(record.SourceIndex.GetIndex())
			}
		}

		for _, importedAs := range sortedNamedImportRefs(repr) {
			namedImport := repr.NamedImports[importedAs]
			record := &(*repr.ImportRecords())[namedImport.ImportRecordIndex]
			if _, isExternal := g.Modules[record.SourceIndex.GetIndex()].External(); isExternal {
				externalIndex := record.SourceIndex.GetIndex()
				output.externalModules.add(externalIndex)
				output.externalItems[externalIndex] = append(output.externalItems[externalIndex],
					externalImportItem{ref: importedAs, alias: namedImport.Alias})
			}
		}

		for stmtIndex := range repr.StmtInfos {
			info := &repr.StmtInfos[stmtIndex]
			if !info.IsIncluded {
				continue
			}
			output.declared = append(output.declared, info.DeclaredSymbols...)
			for _, reference := range info.ReferencedSymbols {
				if reference.IsMemberExpr() {
					if resolution, ok := repr.Meta.ResolvedMemberExprs[reference.Span]; ok && resolution.Ref.IsValid() {
						addDepended(resolution.Ref)
					}
					continue
				}
				addDepended(reference.Ref)
			}
		}
	}

	if chunk.isEntryPoint {
		if repr, ok := g.Modules[chunk.entrySourceIndex].Normal(); ok {
			for _, ref := range repr.Meta.ReferencedSymbolsByEntryPointChunk {
				addDepended(ref)
			}
		}
	}

	return output
}

func (c *linkerContext) chunkHasSideEffects(chunk *chunkInfo) bool {
	return !(len(chunk.filesInChunk) == 1 && chunk.filesInChunk[0] == c.graph.RuntimeSourceIndex)
}

func (c *linkerContext) finishCrossChunkImports(
	chunkIndex uint32,
	passA *crossChunkPassAOutput,
	crossImports []uint32,
	importsMap map[uint32][]crossChunkImportItem,
) {
	g := c.graph
	chunk := &c.chunks[chunkIndex]

	// Cross-chunk imports sort by the stable module ids of the importee
	// chunk, so the order survives chunk-index churn between builds
	sortKeys := make(map[uint32]string, len(crossImports))
	for _, importee := range crossImports {
		ids := make([]string, 0, len(c.chunks[importee].filesInChunk))
		for _, sourceIndex := range c.chunks[importee].filesInChunk {
			ids = append(ids, g.Modules[sourceIndex].StableID)
		}
		sort.Strings(ids)
		sortKeys[importee] = strings.Join(ids, "\x00")
	}
	chunk.crossChunkImports = make([]uint32, len(crossImports))
	copy(chunk.crossChunkImports, crossImports)
	sort.Slice(chunk.crossChunkImports, func(i int, j int) bool {
		return sortKeys[chunk.crossChunkImports[i]] < sortKeys[chunk.crossChunkImports[j]]
	})

	chunk.crossChunkDynamicImports = passA.dynamicImports.values

	importees := make([]uint32, 0, len(importsMap))
	for importee := range importsMap {
		importees = append(importees, importee)
	}
	sort.Slice(importees, func(i int, j int) bool {
		return c.chunks[importees[i]].execOrder < c.chunks[importees[j]].execOrder
	})
	chunk.importsFromOtherChunks = make([]chunkImportsFromChunk, 0, len(importees))
	for _, importee := range importees {
		items := importsMap[importee]
		for i := range items {
			items[i].exportAlias = c.chunks[importee].exportsToOtherChunks[items[i].ref]
		}
		chunk.importsFromOtherChunks = append(chunk.importsFromOtherChunks, chunkImportsFromChunk{
			chunkIndex: importee,
			items:      items,
		})
	}

	externals := make([]uint32, len(passA.externalModules.values))
	copy(externals, passA.externalModules.values)
	sort.Slice(externals, func(i int, j int) bool {
		return g.Modules[externals[i]].ExecOrder < g.Modules[externals[j]].ExecOrder
	})
	chunk.importsFromExternalModules = make([]chunkImportsFromExternal, 0, len(externals))
	for _, externalIndex := range externals {
		chunk.importsFromExternalModules = append(chunk.importsFromExternalModules, chunkImportsFromExternal{
			sourceIndex: externalIndex,
			items:       passA.externalItems[externalIndex],
		})
	}
}
