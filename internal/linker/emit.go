package linker

// Chunk generation: per chunk (in parallel), deconflict symbol names,
// finalize and print each included module, and wrap the sources in the
// output format's prologue and epilogue. Everything a chunk reads from
// other chunks (names, export aliases, filenames) was computed by the
// sequential passes before this fan-out.

import (
	"sort"
	"strings"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/js_printer"
	"github.com/tinypack/tinypack/internal/renamer"
)

func (c *linkerContext) generateChunks() []OutputFile {
	outputFiles := make([]OutputFile, len(c.sortedChunkIndices))

	waitGroup := helpers.MakeThreadSafeWaitGroup()
	waitGroup.Add(1)
	for position, chunkIndex := range c.sortedChunkIndices {
		waitGroup.Add(1)
		go func(position int, chunkIndex uint32) {
			outputFiles[position] = c.generateChunk(chunkIndex)
			waitGroup.Done()
		}(position, chunkIndex)
	}
	waitGroup.Done()
	waitGroup.Wait()

	return outputFiles
}

func (c *linkerContext) generateChunk(chunkIndex uint32) OutputFile {
	chunk := &c.chunks[chunkIndex]
	r := c.renameSymbolsInChunk(chunkIndex)

	isESM := c.options.Format.KeepsImportExportSyntax()
	j := helpers.Joiner{}

	// Print each included module up front so the prologue can weave the
	// runtime module in at the right position for CJS
	moduleSources := make(map[uint32][]byte, len(chunk.filesInChunk))
	for _, sourceIndex := range chunk.filesInChunk {
		repr, ok := c.graph.Modules[sourceIndex].Normal()
		if !ok || !repr.Flags.Has(graph.ModuleIncluded) {
			continue
		}
		stmts := c.finalizeModule(sourceIndex, chunkIndex)
		records := *repr.ImportRecords()
		paths := make([]string, len(records))
		for i := range records {
			if _, isExternal := c.graph.Modules[records[i].SourceIndex.GetIndex()].External(); isExternal {
				paths[i] = c.graph.Modules[records[i].SourceIndex.GetIndex()].StableID
			}
		}
		moduleSources[sourceIndex] = js_printer.Print(stmts, r, js_printer.Options{ImportRecordPaths: paths})
	}

	appendModule := func(sourceIndex uint32) {
		source, ok := moduleSources[sourceIndex]
		if !ok || len(source) == 0 {
			return
		}
		j.AddString("// " + c.graph.Modules[sourceIndex].StableID + "\n")
		j.AddString(string(source))
	}

	if isESM {
		c.renderESMImports(chunk, &j)
		for _, sourceIndex := range chunk.filesInChunk {
			appendModule(sourceIndex)
		}
		if chunk.isEntryPoint {
			c.renderESMExternalStarExports(chunk, &j)
		}
		c.renderESMExports(chunkIndex, chunk, &j)
	} else {
		if len(chunk.filesInChunk) > 0 {
			j.AddString("\"use strict\";\n")
		}
		// The runtime must precede any require() line because the requires
		// may be wrapped in __toESM
		runtimeInChunk := false
		for _, sourceIndex := range chunk.filesInChunk {
			if sourceIndex == c.graph.RuntimeSourceIndex {
				runtimeInChunk = true
				appendModule(sourceIndex)
			}
		}
		c.renderCJSImports(chunkIndex, chunk, &j)
		for _, sourceIndex := range chunk.filesInChunk {
			if runtimeInChunk && sourceIndex == c.graph.RuntimeSourceIndex {
				continue
			}
			appendModule(sourceIndex)
		}
		c.renderCJSExports(chunkIndex, chunk, &j)
	}

	j.EnsureNewlineAtEnd()
	return OutputFile{Path: chunk.relPath, Contents: j.Done()}
}

// renameSymbolsInChunk is the per-chunk symbol deconfliction (the
// renamer's reservations plus claims in deterministic order). The entry
// module is claimed first so its names win the unsuffixed forms; the
// runtime module is claimed before everything because its statements are
// pre-rendered text that cannot be renamed.
func (c *linkerContext) renameSymbolsInChunk(chunkIndex uint32) *renamer.NumberRenamer {
	g := c.graph
	chunk := &c.chunks[chunkIndex]
	r := renamer.NewNumberRenamer(g.Symbols, c.options.Format)
	isCJS := c.options.Format == config.FormatCommonJS

	// Never shadow a name any module in the chunk resolves at run time
	for _, sourceIndex := range chunk.filesInChunk {
		for innerIndex := range g.Symbols.SymbolsForSource[sourceIndex] {
			symbol := &g.Symbols.SymbolsForSource[sourceIndex][innerIndex]
			if symbol.Kind == js_ast.SymbolUnbound {
				r.Reserve(symbol.OriginalName)
			}
		}
	}

	if runtimeChunk := c.moduleToChunk[g.RuntimeSourceIndex]; runtimeChunk.IsValid() && runtimeChunk.GetIndex() == chunkIndex {
		for innerIndex := range g.Symbols.SymbolsForSource[g.RuntimeSourceIndex] {
			r.AddTopLevelSymbol(ast.Ref{SourceIndex: g.RuntimeSourceIndex, InnerIndex: uint32(innerIndex)})
		}
	}

	for _, external := range chunk.importsFromExternalModules {
		if isCJS {
			if repr, ok := g.Modules[external.sourceIndex].External(); ok {
				r.AddTopLevelSymbol(repr.NamespaceRef)
			}
		} else {
			for innerIndex := range g.Symbols.SymbolsForSource[external.sourceIndex] {
				r.AddTopLevelSymbol(ast.Ref{SourceIndex: external.sourceIndex, InnerIndex: uint32(innerIndex)})
			}
		}
	}
	if isCJS && chunk.isEntryPoint {
		if repr, ok := g.Modules[chunk.entrySourceIndex].Normal(); ok {
			for _, recordIndex := range repr.Meta.StarExportsFromExternalModules {
				record := &(*repr.ImportRecords())[recordIndex]
				if externalRepr, ok := g.Modules[record.SourceIndex.GetIndex()].External(); ok {
					r.AddTopLevelSymbol(externalRepr.NamespaceRef)
				}
			}
		}
	}

	// Imports from other chunks behave like declarations in this chunk
	for _, imports := range chunk.importsFromOtherChunks {
		for _, item := range imports.items {
			r.AddTopLevelSymbol(item.ref)
		}
	}
	if isCJS {
		for _, imports := range chunk.importsFromOtherChunks {
			chunk.requireBindingNames[imports.chunkIndex] =
				r.CreateConflictlessName("require_" + c.chunks[imports.chunkIndex].name)
		}
	}

	if chunk.isEntryPoint {
		if repr, ok := g.Modules[chunk.entrySourceIndex].Normal(); ok {
			for _, ref := range repr.Meta.ReferencedSymbolsByEntryPointChunk {
				r.AddTopLevelSymbol(ref)
			}
		}
	}

	// Traverse in reverse execution order so the entry module's symbols are
	// claimed before the modules it imports
	for i := len(chunk.filesInChunk) - 1; i >= 0; i-- {
		sourceIndex := chunk.filesInChunk[i]
		if sourceIndex == g.RuntimeSourceIndex {
			continue
		}
		repr, ok := g.Modules[sourceIndex].Normal()
		if !ok {
			continue
		}
		for stmtIndex := range repr.StmtInfos {
			info := &repr.StmtInfos[stmtIndex]
			if !info.IsIncluded {
				continue
			}
			for _, ref := range info.DeclaredSymbols {
				r.AddTopLevelSymbol(ref)
			}
		}
	}

	chunk.canonicalNames = r.CanonicalNames()
	return r
}

func propertyAccess(object string, property string) string {
	if js_ast.IsIdentifier(property) {
		return object + "." + property
	}
	return object + "[" + js_printer.QuoteJS(property) + "]"
}

func quoteAliasIfNeeded(alias string) string {
	if js_ast.IsIdentifier(alias) {
		return alias
	}
	return js_printer.QuoteJS(alias)
}

func appendImportDecl(j *helpers.Joiner, specifiers []string, defaultAliases []string, path string) {
	var firstDefault string
	if len(defaultAliases) > 0 {
		firstDefault = defaultAliases[0]
		for _, alias := range defaultAliases[1:] {
			specifiers = append(specifiers, "default as "+alias)
		}
		sort.Strings(specifiers)
	}

	switch {
	case len(specifiers) > 0 && firstDefault != "":
		j.AddString("import " + firstDefault + ", { " + strings.Join(specifiers, ", ") + " } from " + js_printer.QuoteJS(path) + ";\n")
	case len(specifiers) > 0:
		j.AddString("import { " + strings.Join(specifiers, ", ") + " } from " + js_printer.QuoteJS(path) + ";\n")
	case firstDefault != "":
		j.AddString("import " + firstDefault + " from " + js_printer.QuoteJS(path) + ";\n")
	default:
		j.AddString("import " + js_printer.QuoteJS(path) + ";\n")
	}
}

func (c *linkerContext) renderESMImports(chunk *chunkInfo, j *helpers.Joiner) {
	g := c.graph

	for _, imports := range chunk.importsFromOtherChunks {
		importee := &c.chunks[imports.chunkIndex]
		path := helpers.RelativeImportPath(chunk.relPath, importee.relPath)
		var specifiers []string
		var defaultAliases []string
		for _, item := range imports.items {
			imported := g.Symbols.CanonicalName(item.ref, chunk.canonicalNames)
			switch {
			case item.exportAlias == imported:
				specifiers = append(specifiers, imported)
			case item.exportAlias == "default":
				defaultAliases = append(defaultAliases, imported)
			default:
				specifiers = append(specifiers, quoteAliasIfNeeded(item.exportAlias)+" as "+imported)
			}
		}
		specifiers = sortAndDedupe(specifiers)
		if len(specifiers) == 0 && len(defaultAliases) == 0 {
			j.AddString("import " + js_printer.QuoteJS(path) + ";\n")
			continue
		}
		appendImportDecl(j, specifiers, sortAndDedupe(defaultAliases), path)
	}

	for _, external := range chunk.importsFromExternalModules {
		module := &g.Modules[external.sourceIndex]
		path := module.StableID
		hasStarImport := false
		var specifiers []string
		var defaultAliases []string

		for _, item := range external.items {
			canonical := g.Symbols.CanonicalRef(item.ref)
			if !c.usedSymbolRefs[canonical] {
				continue
			}
			name := g.Symbols.CanonicalName(canonical, chunk.canonicalNames)
			switch {
			case item.alias == "*":
				if !hasStarImport {
					hasStarImport = true
					j.AddString("import * as " + name + " from " + js_printer.QuoteJS(path) + ";\n")
				}
			case item.alias == name:
				specifiers = append(specifiers, name)
			case item.alias == "default":
				defaultAliases = append(defaultAliases, name)
			default:
				specifiers = append(specifiers, quoteAliasIfNeeded(item.alias)+" as "+name)
			}
		}

		specifiers = sortAndDedupe(specifiers)
		defaultAliases = sortAndDedupe(defaultAliases)
		if len(specifiers) > 0 || len(defaultAliases) > 0 {
			appendImportDecl(j, specifiers, defaultAliases, path)
		} else if module.SideEffects.Has() && !hasStarImport {
			j.AddString("import " + js_printer.QuoteJS(path) + ";\n")
		}
	}
}

func sortAndDedupe(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	var prev string
	for i, value := range values {
		if i == 0 || value != prev {
			out = append(out, value)
		}
		prev = value
	}
	return out
}

func (c *linkerContext) renderESMExternalStarExports(chunk *chunkInfo, j *helpers.Joiner) {
	repr, ok := c.graph.Modules[chunk.entrySourceIndex].Normal()
	if !ok {
		return
	}
	seen := make(map[string]bool)
	for _, recordIndex := range repr.Meta.StarExportsFromExternalModules {
		record := &(*repr.ImportRecords())[recordIndex]
		path := c.graph.Modules[record.SourceIndex.GetIndex()].StableID
		if !seen[path] {
			seen[path] = true
			j.AddString("export * from " + js_printer.QuoteJS(path) + ";\n")
		}
	}
}

func (c *linkerContext) renderESMExports(chunkIndex uint32, chunk *chunkInfo, j *helpers.Joiner) {
	g := c.graph
	var items []string

	if chunk.isEntryPoint {
		repr, ok := g.Modules[chunk.entrySourceIndex].Normal()
		if !ok {
			return
		}
		for _, name := range repr.Meta.SortedResolvedExports {
			ref := repr.Meta.ResolvedExports[name].Ref
			canonical := g.Symbols.CanonicalRef(ref)
			symbol := g.Symbols.Get(canonical)
			canonicalName := g.Symbols.CanonicalName(canonical, chunk.canonicalNames)
			if alias := symbol.NamespaceAlias; alias != nil {
				// Re-exported CommonJS externals need a local binding to export
				nsName := g.Symbols.CanonicalName(alias.NamespaceRef, chunk.canonicalNames)
				j.AddString("var " + canonicalName + " = " + nsName + "." + alias.Alias + ";\n")
			}
			if canonicalName == name {
				items = append(items, name)
			} else {
				items = append(items, canonicalName+" as "+quoteAliasIfNeeded(name))
			}
		}
	} else {
		aliases := make([]string, 0, len(chunk.exportsToOtherChunks))
		byAlias := make(map[string]ast.Ref, len(chunk.exportsToOtherChunks))
		for ref, alias := range chunk.exportsToOtherChunks {
			aliases = append(aliases, alias)
			byAlias[alias] = ref
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			canonicalName := g.Symbols.CanonicalName(byAlias[alias], chunk.canonicalNames)
			if canonicalName == alias {
				items = append(items, alias)
			} else {
				items = append(items, canonicalName+" as "+quoteAliasIfNeeded(alias))
			}
		}
	}

	if len(items) > 0 {
		j.AddString("export { " + strings.Join(items, ", ") + " };\n")
	}
}

// stringForSymbol is the text form of finalizedExprForSymbol, for the
// pieces of the output that are assembled as strings rather than AST.
func (c *linkerContext) stringForSymbol(ref ast.Ref, chunkIndex uint32, chunk *chunkInfo) string {
	g := c.graph
	canonical := g.Symbols.CanonicalRef(ref)
	symbol := g.Symbols.Get(canonical)
	if _, isExternal := g.Modules[canonical.SourceIndex].External(); !isExternal &&
		c.options.Format == config.FormatCommonJS &&
		symbol.ChunkIndex.IsValid() && symbol.ChunkIndex.GetIndex() != chunkIndex {
		importeeChunk := symbol.ChunkIndex.GetIndex()
		return chunk.requireBindingNames[importeeChunk] + "." +
			c.chunks[importeeChunk].exportsToOtherChunks[canonical]
	}
	return g.Symbols.CanonicalName(canonical, chunk.canonicalNames)
}

func (c *linkerContext) renderCJSImports(chunkIndex uint32, chunk *chunkInfo, j *helpers.Joiner) {
	g := c.graph

	for _, imports := range chunk.importsFromOtherChunks {
		importee := &c.chunks[imports.chunkIndex]
		path := helpers.RelativeImportPath(chunk.relPath, importee.relPath)
		if len(imports.items) == 0 {
			j.AddString("require(" + js_printer.QuoteJS(path) + ");\n")
		} else {
			j.AddString("const " + chunk.requireBindingNames[imports.chunkIndex] +
				" = require(" + js_printer.QuoteJS(path) + ");\n")
		}
	}

	for _, external := range chunk.importsFromExternalModules {
		module := &g.Modules[external.sourceIndex]
		repr, _ := module.External()
		requireCall := "require(" + js_printer.QuoteJS(module.StableID) + ")"

		if c.usedSymbolRefs[g.Symbols.CanonicalRef(repr.NamespaceRef)] {
			toESM := c.stringForSymbol(g.RuntimeSymbol("__toESM"), chunkIndex, chunk)
			nsName := g.Symbols.CanonicalName(repr.NamespaceRef, chunk.canonicalNames)
			j.AddString("const " + nsName + " = " + toESM + "(" + requireCall + ");\n")
		} else if module.SideEffects.Has() {
			j.AddString(requireCall + ";\n")
		}
	}
}

func (c *linkerContext) renderCJSExports(chunkIndex uint32, chunk *chunkInfo, j *helpers.Joiner) {
	g := c.graph

	renderDefineProperty := func(name string, value string) string {
		return "Object.defineProperty(exports, " + js_printer.QuoteJS(name) +
			", { enumerable: true, get: () => " + value + " });\n"
	}

	if chunk.isEntryPoint {
		repr, ok := g.Modules[chunk.entrySourceIndex].Normal()
		if !ok {
			return
		}
		for _, name := range repr.Meta.SortedResolvedExports {
			ref := repr.Meta.ResolvedExports[name].Ref
			canonical := g.Symbols.CanonicalRef(ref)
			symbol := g.Symbols.Get(canonical)

			var value string
			if alias := symbol.NamespaceAlias; alias != nil {
				nsName := g.Symbols.CanonicalName(alias.NamespaceRef, chunk.canonicalNames)
				value = nsName + "." + alias.Alias
			} else if _, isExternal := g.Modules[canonical.SourceIndex].External(); isExternal {
				value = g.Symbols.CanonicalName(canonical, chunk.canonicalNames)
			} else if symbol.ChunkIndex.IsValid() && symbol.ChunkIndex.GetIndex() != chunkIndex {
				importeeChunk := symbol.ChunkIndex.GetIndex()
				value = chunk.requireBindingNames[importeeChunk] + "." +
					c.chunks[importeeChunk].exportsToOtherChunks[canonical]
			} else {
				value = g.Symbols.CanonicalName(canonical, chunk.canonicalNames)
			}

			// Live bindings are preserved unless the symbol provably never
			// changes after initialization
			if symbol.Flags.Has(js_ast.IsConst) || symbol.Flags.Has(js_ast.IsNotReassigned) {
				j.AddString(propertyAccess("exports", name) + " = " + value + ";\n")
			} else {
				j.AddString(renderDefineProperty(name, value))
			}
		}

		// "export * from 'external'" copies the external's properties onto
		// this module's exports at run time
		for _, recordIndex := range repr.Meta.StarExportsFromExternalModules {
			record := &(*repr.ImportRecords())[recordIndex]
			module := &g.Modules[record.SourceIndex.GetIndex()]
			externalRepr, _ := module.External()
			nsName := g.Symbols.CanonicalName(externalRepr.NamespaceRef, chunk.canonicalNames)
			j.AddString("var " + nsName + " = require(" + js_printer.QuoteJS(module.StableID) + ");\n")
			j.AddString("Object.keys(" + nsName + ").forEach(function (k) {\n" +
				"  if (k !== \"default\" && !Object.prototype.hasOwnProperty.call(exports, k))\n" +
				"    Object.defineProperty(exports, k, { enumerable: true, get: () => " + nsName + "[k] });\n" +
				"});\n")
		}
	} else {
		aliases := make([]string, 0, len(chunk.exportsToOtherChunks))
		byAlias := make(map[string]ast.Ref, len(chunk.exportsToOtherChunks))
		for ref, alias := range chunk.exportsToOtherChunks {
			aliases = append(aliases, alias)
			byAlias[alias] = ref
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			canonicalName := g.Symbols.CanonicalName(byAlias[alias], chunk.canonicalNames)
			j.AddString(renderDefineProperty(alias, canonicalName))
		}
	}
}
