package linker

// The import/export binder. Stage 1 seeds every module's resolved-export
// map, walking "export *" targets depth-first with a stack to break
// cycles. Stage 2 matches each named import to its producing export,
// following re-export chains, and writes the result into the symbol
// database as union-find links (or namespace aliases for CommonJS
// externals). Stage 3 merges all ESM imports of the same (external,
// name) pair onto one facade symbol so each pair emits exactly one import
// specifier. Stage 4 resolves member-expression chains that start at a
// namespace object.

import (
	"fmt"
	"sort"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/logger"
)

type externalMergeEntry struct {
	names  []string
	byName map[string]*orderedRefSet
}

func (c *linkerContext) bindImportsAndExports() {
	g := c.graph

	// Stage 1: seed resolved exports, parallel over modules. Each goroutine
	// only writes its own module's metadata.
	waitGroup := helpers.MakeThreadSafeWaitGroup()
	waitGroup.Add(1)
	for sourceIndex := range g.Modules {
		if repr, ok := g.Modules[sourceIndex].Normal(); ok {
			waitGroup.Add(1)
			go func(sourceIndex uint32, repr *graph.NormalRepr) {
				c.seedResolvedExports(sourceIndex, repr)
				waitGroup.Done()
			}(uint32(sourceIndex), repr)
		}
	}
	waitGroup.Done()
	waitGroup.Wait()

	c.sideEffectsModules = make(map[uint32]bool)
	for sourceIndex := range g.Modules {
		if g.Modules[sourceIndex].SideEffects.Has() {
			c.sideEffectsModules[uint32(sourceIndex)] = true
		}
	}

	// Stage 2: match imports, sequential. Writes are isolated to links
	// originating at the importer's own symbols.
	c.externalMergeOrder = nil
	c.externalMerge = make(map[uint32]*externalMergeEntry)
	for sourceIndex := range g.Modules {
		c.matchImportsWithExportsForModule(uint32(sourceIndex))
	}

	// Stage 3: external import merge (ESM only)
	if c.options.Format.KeepsImportExportSyntax() {
		for _, externalIndex := range c.externalMergeOrder {
			entry := c.externalMerge[externalIndex]
			for _, name := range entry.names {
				refs := entry.byName[name].refs
				facadeName := name
				if name == "default" {
					facadeName = g.Symbols.Get(refs[0]).OriginalName
				} else {
					facadeName = js_ast.LegitimizeIdentifier(name)
				}
				target := g.GenerateNewSymbol(externalIndex, facadeName)
				for _, ref := range refs {
					g.Symbols.Link(ref, target)
				}
			}
		}
	}

	// Deterministic key lists, ambiguous entries excluded
	c.computeSortedResolvedExports()

	// Stage 4: member-expression chains, parallel over modules with the
	// per-module outputs merged afterwards
	c.resolveMemberExprRefs()
}

func (c *linkerContext) seedResolvedExports(sourceIndex uint32, repr *graph.NormalRepr) {
	resolved := make(map[string]graph.ExportData, len(repr.NamedExports))
	for name, export := range repr.NamedExports {
		resolved[name] = graph.ExportData{Ref: export.Ref}
	}
	if len(repr.ExportStarImportRecords) > 0 {
		repr.Flags |= graph.ModuleHasStarExport
		c.addExportsForExportStar(resolved, sourceIndex, nil)
	}
	repr.Meta.ResolvedExports = resolved
}

func (c *linkerContext) addExportsForExportStar(
	resolved map[string]graph.ExportData,
	sourceIndex uint32,
	stack []uint32,
) {
	for _, prev := range stack {
		if prev == sourceIndex {
			return
		}
	}
	stack = append(stack, sourceIndex)

	repr, ok := c.graph.Modules[sourceIndex].Normal()
	if !ok {
		return
	}

	for _, recordIndex := range repr.ExportStarImportRecords {
		record := &(*repr.ImportRecords())[recordIndex]
		depIndex := record.SourceIndex.GetIndex()
		depRepr, ok := c.graph.Modules[depIndex].Normal()
		if !ok {
			// Star exports of external modules are re-exported at run time
			continue
		}

		// Iteration must be deterministic because it decides the order of
		// ambiguity candidates
		names := make([]string, 0, len(depRepr.NamedExports))
		for name := range depRepr.NamedExports {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			// ES6 export star statements ignore exports named "default"
			if name == "default" {
				continue
			}

			// This export star is shadowed if any module on the walk stack has
			// a matching real named export
			shadowed := false
			for _, stackIndex := range stack {
				if stackRepr, ok := c.graph.Modules[stackIndex].Normal(); ok {
					if _, ok := stackRepr.NamedExports[name]; ok {
						shadowed = true
						break
					}
				}
			}
			if shadowed {
				continue
			}

			export := depRepr.NamedExports[name]
			if existing, ok := resolved[name]; !ok {
				resolved[name] = graph.ExportData{Ref: export.Ref}
			} else if existing.Ref != export.Ref {
				// Two distinct star targets provide this name. Whether that is a
				// real ambiguity cannot be decided until imports resolve, so park
				// the candidate.
				duplicate := false
				for _, candidate := range existing.PotentiallyAmbiguousRefs {
					if candidate == export.Ref {
						duplicate = true
						break
					}
				}
				if !duplicate {
					existing.PotentiallyAmbiguousRefs = append(existing.PotentiallyAmbiguousRefs, export.Ref)
					resolved[name] = existing
				}
			}
		}

		c.addExportsForExportStar(resolved, depIndex, stack)
	}
}

type importTracker struct {
	importerIndex uint32
	importedAs    ast.Ref

	// "*" or the literal imported name
	imported string
}

type importStatus uint8

const (
	importNoMatch importStatus = iota
	importMatched
	importAmbiguous
	importExternal
)

// advanceImportTracker resolves one hop: which symbol (or external
// namespace) does this named import land on in its importee?
func (c *linkerContext) advanceImportTracker(tracker importTracker) (importStatus, ast.Ref, uint32, []ast.Ref) {
	repr, _ := c.graph.Modules[tracker.importerIndex].Normal()
	namedImport := repr.NamedImports[tracker.importedAs]
	record := &(*repr.ImportRecords())[namedImport.ImportRecordIndex]
	importeeIndex := record.SourceIndex.GetIndex()

	importee := &c.graph.Modules[importeeIndex]
	if external, ok := importee.External(); ok {
		return importExternal, external.NamespaceRef, importeeIndex, nil
	}
	importeeRepr, _ := importee.Normal()

	if tracker.imported == "*" {
		return importMatched, importeeRepr.NamespaceRef, importeeIndex, nil
	}

	if export, ok := importeeRepr.Meta.ResolvedExports[tracker.imported]; ok {
		if len(export.PotentiallyAmbiguousRefs) > 0 && c.exportIsAmbiguous(export) {
			return importAmbiguous, export.Ref, importeeIndex, export.PotentiallyAmbiguousRefs
		}
		return importMatched, export.Ref, importeeIndex, nil
	}

	return importNoMatch, ast.InvalidRef, importeeIndex, nil
}

// exportIsAmbiguous decides whether parked candidates really point at
// different final symbols. Re-export chains are followed structurally so
// the answer does not depend on how much of the union-find is built yet.
func (c *linkerContext) exportIsAmbiguous(export graph.ExportData) bool {
	final := c.finalTargetOf(export.Ref)
	for _, candidate := range export.PotentiallyAmbiguousRefs {
		if c.finalTargetOf(candidate) != final {
			return true
		}
	}
	return false
}

func (c *linkerContext) finalTargetOf(ref ast.Ref) ast.Ref {
	visited := map[ast.Ref]bool{}
	for {
		if visited[ref] {
			return ref
		}
		visited[ref] = true

		repr, ok := c.graph.Modules[ref.SourceIndex].Normal()
		if !ok {
			return ref
		}
		namedImport, ok := repr.NamedImports[ref]
		if !ok {
			return ref
		}
		record := &(*repr.ImportRecords())[namedImport.ImportRecordIndex]
		importee := &c.graph.Modules[record.SourceIndex.GetIndex()]
		importeeRepr, isNormal := importee.Normal()
		if !isNormal {
			return ref
		}
		if namedImport.Alias == "*" {
			return importeeRepr.NamespaceRef
		}
		export, ok := importeeRepr.Meta.ResolvedExports[namedImport.Alias]
		if !ok {
			return ref
		}
		ref = export.Ref
	}
}

type matchKind uint8

const (
	matchCycle matchKind = iota
	matchNoMatch
	matchNamespace
	matchNormal
	matchNormalAndNamespace
	matchAmbiguous
)

type matchResult struct {
	kind matchKind

	// matchNormal: the producing symbol. matchNamespace and
	// matchNormalAndNamespace: the namespace symbol.
	ref ast.Ref

	// matchNormalAndNamespace: the property to access off the namespace
	alias string

	// matchNormal: intermediate re-export hops
	reexports []ast.Ref

	// matchNoMatch and matchAmbiguous context for diagnostics
	importeeIndex uint32
	ambiguousRefs []ast.Ref
}

func (c *linkerContext) matchImportWithExport(tracker importTracker, stack []importTracker) matchResult {
	var reexports []ast.Ref

	for {
		for _, prev := range stack {
			if prev.importerIndex == tracker.importerIndex && prev.importedAs == tracker.importedAs {
				// Benign: an import cycle through re-exports yields nothing but
				// is not an error
				return matchResult{kind: matchCycle}
			}
		}
		stack = append(stack, tracker)

		status, ref, importeeIndex, ambiguousRefs := c.advanceImportTracker(tracker)
		switch status {
		case importNoMatch:
			return matchResult{kind: matchNoMatch, importeeIndex: importeeIndex}

		case importAmbiguous:
			return matchResult{kind: matchAmbiguous, ref: ref, importeeIndex: importeeIndex, ambiguousRefs: ambiguousRefs}

		case importExternal:
			if c.options.Format.KeepsImportExportSyntax() {
				// Imports from external modules are preserved as-is in ESM
				// output, so the local symbol is its own final form
				return matchResult{kind: matchNormal, ref: tracker.importedAs}
			}
			if tracker.imported == "*" {
				return matchResult{kind: matchNamespace, ref: ref}
			}
			return matchResult{kind: matchNormalAndNamespace, ref: ref, alias: tracker.imported}

		case importMatched:
			ownerRepr, _ := c.graph.Modules[ref.SourceIndex].Normal()
			if another, ok := ownerRepr.NamedImports[ref]; ok {
				// The match is itself a re-export of another import; follow it
				record := &(*ownerRepr.ImportRecords())[another.ImportRecordIndex]
				if _, isExternal := c.graph.Modules[record.SourceIndex.GetIndex()].External(); isExternal {
					return matchResult{kind: matchNormal, ref: ref}
				}
				reexports = append(reexports, ref)
				tracker = importTracker{
					importerIndex: ref.SourceIndex,
					importedAs:    ref,
					imported:      another.Alias,
				}
				continue
			}
			return matchResult{kind: matchNormal, ref: ref, reexports: reexports}
		}
	}
}

func (c *linkerContext) matchImportsWithExportsForModule(sourceIndex uint32) {
	repr, ok := c.graph.Modules[sourceIndex].Normal()
	if !ok {
		return
	}
	isESM := c.options.Format.KeepsImportExportSyntax()

	for _, importedAs := range sortedNamedImportRefs(repr) {
		namedImport := repr.NamedImports[importedAs]
		record := &(*repr.ImportRecords())[namedImport.ImportRecordIndex]
		importeeIndex := record.SourceIndex.GetIndex()
		_, isExternal := c.graph.Modules[importeeIndex].External()

		if isESM && isExternal && namedImport.Alias != "*" {
			entry := c.externalMerge[importeeIndex]
			if entry == nil {
				entry = &externalMergeEntry{byName: make(map[string]*orderedRefSet)}
				c.externalMerge[importeeIndex] = entry
				c.externalMergeOrder = append(c.externalMergeOrder, importeeIndex)
			}
			set := entry.byName[namedImport.Alias]
			if set == nil {
				set = &orderedRefSet{}
				entry.byName[namedImport.Alias] = set
				entry.names = append(entry.names, namedImport.Alias)
			}
			set.add(importedAs)
		}

		result := c.matchImportWithExport(importTracker{
			importerIndex: sourceIndex,
			importedAs:    importedAs,
			imported:      namedImport.Alias,
		}, nil)

		switch result.kind {
		case matchCycle:

		case matchNamespace:
			c.graph.Symbols.Link(importedAs, result.ref)

		case matchNormal:
			for _, hop := range result.reexports {
				if c.sideEffectsModules[hop.SourceIndex] {
					repr.Meta.AddDependency(hop.SourceIndex)
				}
			}
			if len(result.reexports) > 0 {
				c.reexportChains[importedAs] = result.reexports
			}
			c.graph.Symbols.Link(importedAs, result.ref)

		case matchNormalAndNamespace:
			c.graph.Symbols.Get(importedAs).NamespaceAlias = &js_ast.NamespaceAlias{
				NamespaceRef: result.ref,
				Alias:        result.alias,
			}

		case matchNoMatch:
			c.log.AddError(c.graph.Modules[sourceIndex].StableID, fmt.Sprintf(
				"%q is not exported by %q, imported by %q",
				namedImport.Alias,
				c.graph.Modules[result.importeeIndex].StableID,
				c.graph.Modules[sourceIndex].StableID))

		case matchAmbiguous:
			first := c.graph.Modules[result.ref.SourceIndex].StableID
			second := first
			if len(result.ambiguousRefs) > 0 {
				second = c.graph.Modules[result.ambiguousRefs[0].SourceIndex].StableID
			}
			c.log.AddError(c.graph.Modules[sourceIndex].StableID, fmt.Sprintf(
				"%q re-exports %q from %q and %q (will be ignored)",
				c.graph.Modules[result.importeeIndex].StableID,
				namedImport.Alias, first, second))
		}
	}
}

func (c *linkerContext) computeSortedResolvedExports() {
	for sourceIndex := range c.graph.Modules {
		repr, ok := c.graph.Modules[sourceIndex].Normal()
		if !ok {
			continue
		}
		names := make([]string, 0, len(repr.Meta.ResolvedExports))
		for name, export := range repr.Meta.ResolvedExports {
			if len(export.PotentiallyAmbiguousRefs) > 0 && c.exportIsAmbiguous(export) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
		repr.Meta.SortedResolvedExports = names
	}
}

// resolveMemberExprRefs walks every member-expression reference whose
// object canonicalizes to a module namespace object, following properties
// through resolved exports until the chain leaves namespace territory.
func (c *linkerContext) resolveMemberExprRefs() {
	g := c.graph

	outputs := make([]memberExprOutput, len(g.Modules))

	waitGroup := helpers.MakeThreadSafeWaitGroup()
	waitGroup.Add(1)
	for sourceIndex := range g.Modules {
		repr, ok := g.Modules[sourceIndex].Normal()
		if !ok {
			continue
		}
		waitGroup.Add(1)
		go func(sourceIndex uint32, repr *graph.NormalRepr) {
			outputs[sourceIndex] = c.resolveMemberExprRefsForModule(repr)
			waitGroup.Done()
		}(uint32(sourceIndex), repr)
	}
	waitGroup.Done()
	waitGroup.Wait()

	for sourceIndex := range g.Modules {
		repr, ok := g.Modules[sourceIndex].Normal()
		if !ok {
			continue
		}
		output := &outputs[sourceIndex]
		repr.Meta.ResolvedMemberExprs = output.resolved
		for _, dep := range output.sideEffectDeps {
			repr.Meta.AddDependency(dep)
		}
		for _, message := range output.warningMessages {
			c.log.AddWarning(g.Modules[sourceIndex].StableID, message)
		}
	}
}

type memberExprOutput struct {
	resolved        map[logger.Loc]graph.MemberExprResolution
	sideEffectDeps  []uint32
	warningMessages []string
}

func (c *linkerContext) resolveMemberExprRefsForModule(repr *graph.NormalRepr) memberExprOutput {
	g := c.graph
	output := memberExprOutput{resolved: make(map[logger.Loc]graph.MemberExprResolution)}

	for stmtIndex := range repr.StmtInfos {
		for _, reference := range repr.StmtInfos[stmtIndex].ReferencedSymbols {
			if !reference.IsMemberExpr() {
				continue
			}

			canonical := g.Symbols.CanonicalRef(reference.Ref)
			ownerRepr, ok := g.Modules[canonical.SourceIndex].Normal()
			if !ok {
				continue
			}

			isNamespaceRef := ownerRepr.NamespaceRef == canonical
			props := reference.Props
			cursor := 0
			recorded := false

			for cursor < len(props) && isNamespaceRef {
				name := props[cursor]
				export, ok := ownerRepr.Meta.ResolvedExports[name]
				if !ok {
					// Accessing a property the namespace never exports folds the
					// whole prefix to "void 0"
					output.resolved[reference.Span] = graph.MemberExprResolution{
						Ref:   ast.InvalidRef,
						Props: props[cursor:],
					}
					output.warningMessages = append(output.warningMessages, fmt.Sprintf(
						"%q is not exported by %q; the property access will be undefined",
						name, g.Modules[canonical.SourceIndex].StableID))
					recorded = true
					break
				}
				if len(export.PotentiallyAmbiguousRefs) > 0 && c.exportIsAmbiguous(export) {
					output.resolved[reference.Span] = graph.MemberExprResolution{
						Ref:   ast.InvalidRef,
						Props: props[cursor:],
					}
					recorded = true
					break
				}

				// Keep side-effectful re-export hops alive even though the chain
				// bypasses the import statements that would have done so
				for _, hop := range c.reexportChains[export.Ref] {
					if c.sideEffectsModules[hop.SourceIndex] {
						output.sideEffectDeps = append(output.sideEffectDeps, hop.SourceIndex)
					}
				}

				canonical = g.Symbols.CanonicalRef(export.Ref)
				cursor++
				ownerRepr, ok = g.Modules[canonical.SourceIndex].Normal()
				if !ok {
					break
				}
				isNamespaceRef = ownerRepr.NamespaceRef == canonical
			}

			if !recorded && cursor > 0 {
				output.resolved[reference.Span] = graph.MemberExprResolution{
					Ref:   canonical,
					Props: props[cursor:],
				}
			}
		}
	}
	return output
}
