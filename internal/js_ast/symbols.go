package js_ast

import "github.com/tinypack/tinypack/internal/ast"

type SymbolKind uint8

const (
	// A reference to something the module never declares. These resolve to
	// globals at run time and must never be renamed or shadowed.
	SymbolUnbound SymbolKind = iota

	// A binding declared in the module's top-level scope (including import
	// bindings, which are hoisted by linking)
	SymbolHoisted

	// A binding inside a nested scope. The per-chunk renamer does not touch
	// these; they keep their source names.
	SymbolNested

	// A synthesized symbol that never appears in source: namespace objects,
	// default-export names, external-import merge targets
	SymbolFacade
)

type SymbolFlags uint8

const (
	IsConst SymbolFlags = 1 << iota
	IsNotReassigned
)

func (flags SymbolFlags) Has(flag SymbolFlags) bool {
	return (flags & flag) != 0
}

// If this is set, every use of the symbol must be rewritten to a property
// access "<namespace>.<alias>" instead of a plain identifier.
type NamespaceAlias struct {
	NamespaceRef ast.Ref
	Alias        string
}

type Symbol struct {
	OriginalName string

	// Imported symbols are linked to the symbol that declares their value.
	// The canonical representative of a symbol is the fixed point of this
	// chain. Links are only ever set from a canonical symbol to another
	// canonical symbol, so cycles cannot form.
	Link ast.Ref

	// The chunk this symbol's declaration was assigned to, filled in by the
	// cross-chunk linker
	ChunkIndex ast.Index32

	NamespaceAlias *NamespaceAlias

	Kind  SymbolKind
	Flags SymbolFlags
}

func (s *Symbol) IsTopLevel() bool {
	return s.Kind == SymbolHoisted || s.Kind == SymbolFacade
}

// The symbol reference database: one symbol array per module, indexed by
// ast.Ref. This is the only state the import binder mutates.
type SymbolMap struct {
	SymbolsForSource [][]Symbol
}

func NewSymbolMap(sourceCount int) SymbolMap {
	return SymbolMap{SymbolsForSource: make([][]Symbol, sourceCount)}
}

func (sm SymbolMap) Get(ref ast.Ref) *Symbol {
	return &sm.SymbolsForSource[ref.SourceIndex][ref.InnerIndex]
}

// CreateFacade adds a synthesized top-level symbol to a module. Facade
// symbols never appear in source but participate in linking and renaming
// like any other symbol.
func (sm SymbolMap) CreateFacade(sourceIndex uint32, name string) ast.Ref {
	symbols := sm.SymbolsForSource[sourceIndex]
	ref := ast.Ref{SourceIndex: sourceIndex, InnerIndex: uint32(len(symbols))}
	sm.SymbolsForSource[sourceIndex] = append(symbols, Symbol{
		OriginalName: name,
		Link:         ast.InvalidRef,
		Kind:         SymbolFacade,
	})
	return ref
}

// FollowSymbols returns the canonical representative of a symbol, applying
// path halving along the way. Not safe for concurrent use; readers inside
// parallel sections use CanonicalRef instead.
func FollowSymbols(symbols SymbolMap, ref ast.Ref) ast.Ref {
	for {
		symbol := symbols.Get(ref)
		if symbol.Link == ast.InvalidRef {
			return ref
		}

		// Point this symbol at its grandparent, then continue from there
		if parent := symbols.Get(symbol.Link); parent.Link != ast.InvalidRef {
			symbol.Link = parent.Link
		}
		ref = symbol.Link
	}
}

// CanonicalRef is the read-only form of FollowSymbols.
func (sm SymbolMap) CanonicalRef(ref ast.Ref) ast.Ref {
	for {
		symbol := sm.Get(ref)
		if symbol.Link == ast.InvalidRef {
			return ref
		}
		ref = symbol.Link
	}
}

// Link makes "from" resolve to "to". Both are canonicalized first; linking
// two symbols that already share a representative is a no-op, which is
// what keeps the link relation acyclic.
func (sm SymbolMap) Link(from ast.Ref, to ast.Ref) {
	fromRoot := FollowSymbols(sm, from)
	toRoot := FollowSymbols(sm, to)
	if fromRoot == toRoot {
		return
	}
	sm.Get(fromRoot).Link = toRoot
}

// CanonicalName returns the deconflicted name of a symbol in the supplied
// per-chunk name map, falling back to the source-declared name.
func (sm SymbolMap) CanonicalName(ref ast.Ref, canonicalNames map[ast.Ref]string) string {
	canonical := sm.CanonicalRef(ref)
	if name, ok := canonicalNames[canonical]; ok {
		return name
	}
	return sm.Get(ref).OriginalName
}
