package graph

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/js_ast"
)

// LinkerGraph is everything the link stage consumes from the scan stage:
// the module table, the symbol database, the entry points, and the brief
// describing the synthetic runtime module. The linker treats the module
// table as immutable except for the mutations the pipeline explicitly
// performs (exports-kind promotion, side-effect determination, inclusion
// flags, linking metadata).
type LinkerGraph struct {
	// Indexed by source index
	Modules []Module

	Symbols js_ast.SymbolMap

	EntryPoints []EntryPoint

	RuntimeSourceIndex uint32

	runtimeSymbols map[string]ast.Ref
}

func MakeLinkerGraph(
	modules []Module,
	symbols js_ast.SymbolMap,
	entryPoints []EntryPoint,
	runtimeSourceIndex uint32,
	runtimeSymbols map[string]ast.Ref,
) *LinkerGraph {
	return &LinkerGraph{
		Modules:            modules,
		Symbols:            symbols,
		EntryPoints:        entryPoints,
		RuntimeSourceIndex: runtimeSourceIndex,
		runtimeSymbols:     runtimeSymbols,
	}
}

// RuntimeSymbol looks up a runtime helper such as "__export". Asking for a
// helper the runtime module doesn't declare is a bug in the linker.
func (g *LinkerGraph) RuntimeSymbol(name string) ast.Ref {
	ref, ok := g.runtimeSymbols[name]
	if !ok {
		panic("Internal error")
	}
	return ref
}

// GenerateNewSymbol adds a facade symbol owned by the given module.
func (g *LinkerGraph) GenerateNewSymbol(sourceIndex uint32, name string) ast.Ref {
	return g.Symbols.CreateFacade(sourceIndex, name)
}
