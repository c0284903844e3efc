package linker

// Tree shaking: starting from each entry point, mark the modules and
// statements that must be emitted. Inclusion flows along three edges:
// symbol references (a statement pulls in every statement declaring a
// symbol it uses), side effects (an included module pulls in all of its
// side-effectful statements), and dependencies (an included module pulls
// in every dependency that has side effects). The traversal is sequential
// because the inclusion bits are shared mutable state.

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/graph"
)

func (c *linkerContext) includeStatements() {
	g := c.graph

	for _, entryPoint := range g.EntryPoints {
		repr, ok := g.Modules[entryPoint.SourceIndex].Normal()
		if !ok {
			continue
		}
		for _, ref := range repr.Meta.ReferencedSymbolsByEntryPointChunk {
			c.includeSymbol(ref)
		}
		c.includeModule(entryPoint.SourceIndex)
	}
}

func (c *linkerContext) includeSymbol(ref ast.Ref) {
	g := c.graph

	canonical := g.Symbols.CanonicalRef(ref)
	if alias := g.Symbols.Get(canonical).NamespaceAlias; alias != nil {
		canonical = g.Symbols.CanonicalRef(alias.NamespaceRef)
	}

	c.usedSymbolRefs[canonical] = true

	c.includeDeclaringStatements(ref)
	if ref != canonical {
		c.includeDeclaringStatements(canonical)
	}
}

func (c *linkerContext) includeDeclaringStatements(ref ast.Ref) {
	repr, ok := c.graph.Modules[ref.SourceIndex].Normal()
	if !ok {
		return
	}
	c.includeModule(ref.SourceIndex)
	for _, stmtIndex := range repr.TopLevelSymbolToStmts[ref] {
		c.includeStatement(ref.SourceIndex, stmtIndex)
	}
}

func (c *linkerContext) includeModule(sourceIndex uint32) {
	g := c.graph
	module := &g.Modules[sourceIndex]
	repr, ok := module.Normal()
	if !ok {
		return
	}

	if repr.Flags.Has(graph.ModuleIncluded) {
		return
	}
	repr.Flags |= graph.ModuleIncluded

	// The runtime module's statements are only pulled in by references
	if sourceIndex == g.RuntimeSourceIndex {
		return
	}

	if c.options.TreeShaking && module.SideEffects.Kind != graph.SideEffectsNoTreeShake {
		hasEval := repr.Flags.Has(graph.ModuleHasEval)
		for stmtIndex := range repr.StmtInfos {
			info := &repr.StmtInfos[stmtIndex]
			if info.HasSideEffect || (hasEval && stmtIndex != 0 && len(info.DeclaredSymbols) > 0) {
				c.includeStatement(sourceIndex, uint32(stmtIndex))
			}
		}
	} else {
		// Everything except the reserved namespace-object slot, which still
		// only appears when referenced
		for stmtIndex := 1; stmtIndex < len(repr.StmtInfos); stmtIndex++ {
			c.includeStatement(sourceIndex, uint32(stmtIndex))
		}
	}

	for _, dependency := range repr.Meta.Dependencies {
		if _, ok := g.Modules[dependency].Normal(); ok {
			if !c.options.TreeShaking || g.Modules[dependency].SideEffects.Has() {
				c.includeModule(dependency)
			}
		}
	}

	// A direct "eval" can observe any import binding by name
	if repr.Flags.Has(graph.ModuleHasEval) {
		for _, ref := range sortedNamedImportRefs(repr) {
			c.includeSymbol(ref)
		}
	}
}

func (c *linkerContext) includeStatement(sourceIndex uint32, stmtIndex uint32) {
	repr, _ := c.graph.Modules[sourceIndex].Normal()
	info := &repr.StmtInfos[stmtIndex]

	if info.IsIncluded {
		return
	}
	info.IsIncluded = true

	for _, reference := range info.ReferencedSymbols {
		if reference.IsMemberExpr() {
			if resolution, ok := repr.Meta.ResolvedMemberExprs[reference.Span]; ok && resolution.Ref.IsValid() {
				c.includeSymbol(resolution.Ref)
			}
			continue
		}
		c.includeSymbol(reference.Ref)
	}
}

// patchModuleDependencies distills the symbol-level edges the tree shaker
// discovered into each module's dependency list, so the code splitter's
// reachability walk sees everything a module's emitted code will touch
// (including the runtime module, which nothing imports).
func (c *linkerContext) patchModuleDependencies() {
	g := c.graph

	for sourceIndex := range g.Modules {
		repr, ok := g.Modules[sourceIndex].Normal()
		if !ok {
			continue
		}
		meta := &repr.Meta

		for _, ref := range meta.ReferencedSymbolsByEntryPointChunk {
			meta.AddDependency(g.Symbols.CanonicalRef(ref).SourceIndex)
		}

		addOwner := func(ref ast.Ref) {
			canonical := g.Symbols.CanonicalRef(ref)
			meta.AddDependency(canonical.SourceIndex)
			if alias := g.Symbols.Get(canonical).NamespaceAlias; alias != nil {
				meta.AddDependency(alias.NamespaceRef.SourceIndex)
			}
		}

		for stmtIndex := range repr.StmtInfos {
			info := &repr.StmtInfos[stmtIndex]
			if !info.IsIncluded {
				continue
			}
			for _, reference := range info.ReferencedSymbols {
				if reference.IsMemberExpr() {
					if resolution, ok := meta.ResolvedMemberExprs[reference.Span]; ok && resolution.Ref.IsValid() {
						addOwner(resolution.Ref)
					}
					continue
				}
				addOwner(reference.Ref)
			}
		}
	}
}
