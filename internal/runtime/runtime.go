package runtime

// The runtime module is a synthetic module holding the helper functions
// the finalizer and the chunk emitter reference (namespace construction,
// re-export wiring, CommonJS interop). It is seeded first into the
// execution order so it always runs before any user module, and its
// statements are only pulled into a chunk by symbol references, never by
// side effects.
//
// The helpers are authored as JavaScript text. Their symbols are claimed
// before any other symbol during per-chunk renaming, so the text never
// needs rewriting.

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/js_ast"
)

const StableID = "tinypack:runtime"

type helperInfo struct {
	name   string
	source string

	// Names of other helpers this one references
	deps []string
}

var helpers = []helperInfo{
	{name: "__create", source: "var __create = Object.create;\n"},
	{name: "__defProp", source: "var __defProp = Object.defineProperty;\n"},
	{name: "__getOwnPropDesc", source: "var __getOwnPropDesc = Object.getOwnPropertyDescriptor;\n"},
	{name: "__getOwnPropNames", source: "var __getOwnPropNames = Object.getOwnPropertyNames;\n"},
	{name: "__getProtoOf", source: "var __getProtoOf = Object.getPrototypeOf;\n"},
	{name: "__hasOwnProp", source: "var __hasOwnProp = Object.prototype.hasOwnProperty;\n"},
	{
		name: "__export",
		source: `var __export = (target, all) => {
  for (var name in all)
    __defProp(target, name, { get: all[name], enumerable: true });
};
`,
		deps: []string{"__defProp"},
	},
	{
		name: "__copyProps",
		source: `var __copyProps = (to, from, except, desc) => {
  if (from && typeof from === "object" || typeof from === "function") {
    for (let key of __getOwnPropNames(from))
      if (!__hasOwnProp.call(to, key) && key !== except)
        __defProp(to, key, { get: () => from[key], enumerable: !(desc = __getOwnPropDesc(from, key)) || desc.enumerable });
  }
  return to;
};
`,
		deps: []string{"__getOwnPropNames", "__hasOwnProp", "__defProp", "__getOwnPropDesc"},
	},
	{
		name: "__reExport",
		source: `var __reExport = (target, mod, secondTarget) => (__copyProps(target, mod, "default"), secondTarget && __copyProps(secondTarget, mod, "default"));
`,
		deps: []string{"__copyProps"},
	},
	{
		name: "__toESM",
		source: `var __toESM = (mod, isNodeMode, target) => (target = mod != null ? __create(__getProtoOf(mod)) : {}, __copyProps(isNodeMode || !mod || !mod.__esModule ? __defProp(target, "default", { value: mod, enumerable: true }) : target, mod));
`,
		deps: []string{"__create", "__getProtoOf", "__copyProps", "__defProp"},
	},
	{
		name: "__toCommonJS",
		source: `var __toCommonJS = (mod) => __copyProps(__defProp({}, "__esModule", { value: true }), mod);
`,
		deps: []string{"__copyProps", "__defProp"},
	},
}

// CreateModule builds the runtime module for the given source index,
// returning the module, its symbol slice, and the helper name table.
func CreateModule(sourceIndex uint32) (graph.Module, []js_ast.Symbol, map[string]ast.Ref) {
	symbols := []js_ast.Symbol{
		{OriginalName: "runtime_exports", Link: ast.InvalidRef, Kind: js_ast.SymbolFacade},
		{OriginalName: "runtime_default", Link: ast.InvalidRef, Kind: js_ast.SymbolFacade},
	}
	nsRef := ast.Ref{SourceIndex: sourceIndex, InnerIndex: 0}
	defaultRef := ast.Ref{SourceIndex: sourceIndex, InnerIndex: 1}

	byName := make(map[string]ast.Ref, len(helpers))
	for _, h := range helpers {
		byName[h.name] = ast.Ref{SourceIndex: sourceIndex, InnerIndex: uint32(len(symbols))}
		symbols = append(symbols, js_ast.Symbol{
			OriginalName: h.name,
			Link:         ast.InvalidRef,
			Kind:         js_ast.SymbolHoisted,
			Flags:        js_ast.IsNotReassigned,
		})
	}

	normal := &graph.NormalRepr{
		NamespaceRef:     nsRef,
		DefaultExportRef: defaultRef,
		ExportsKind:      graph.ExportsESM,
	}

	// Reserved namespace-object slot
	normal.AddStmtInfo(graph.StmtInfo{DeclaredSymbols: []ast.Ref{nsRef}})

	for _, h := range helpers {
		refs := make([]graph.ReferencedSymbol, 0, len(h.deps))
		for _, dep := range h.deps {
			refs = append(refs, graph.ReferencedSymbol{Ref: byName[dep]})
		}
		normal.Stmts = append(normal.Stmts, js_ast.Stmt{Data: &js_ast.SRaw{Source: h.source}})
		normal.AddStmtInfo(graph.StmtInfo{
			DeclaredSymbols:   []ast.Ref{byName[h.name]},
			ReferencedSymbols: refs,
		})
	}

	module := graph.Module{
		StableID: StableID,
		ReprName: "runtime",
		Repr:     normal,
		// The runtime never has side effects regardless of analysis
		SideEffects: graph.SideEffects{Kind: graph.SideEffectsUserDefined, Value: false},
	}
	return module, symbols, byName
}
