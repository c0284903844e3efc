package graph

// The data in this file is only needed once linking starts. It is
// allocated at the start of the link stage and mutated in place by the
// binder, the tree shaker, and the cross-chunk linker.

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/logger"
)

// One resolved export. Export-star resolution runs before import matching,
// so duplicate names arriving from different star targets cannot yet be
// judged: they might canonicalize to the same symbol later (a diamond) or
// to different ones (a true ambiguity). The extra candidates are parked
// here and the call is made when an import actually lands on the name.
type ExportData struct {
	Ref ast.Ref

	PotentiallyAmbiguousRefs []ast.Ref
}

// The outcome of walking a member-expression chain through namespace
// objects. An invalid Ref means the chain ran into a missing or ambiguous
// export and the whole prefix folds to "void 0".
type MemberExprResolution struct {
	Ref   ast.Ref
	Props []string
}

type JSLinkingMeta struct {
	// Exported name -> resolved symbol, after export-star walks
	ResolvedExports map[string]ExportData

	// Deterministic iteration order for ResolvedExports with ambiguous
	// entries excluded
	SortedResolvedExports []string

	// Modules this one must pull in for side effects: its static imports
	// plus any side-effectful re-export hops discovered during binding.
	// Order is deterministic (record order, then discovery order).
	Dependencies  []uint32
	dependencySet map[uint32]bool

	// Span of a member expression -> its resolution
	ResolvedMemberExprs map[logger.Loc]MemberExprResolution

	// Import record indices of "export * from 'external'"
	StarExportsFromExternalModules []uint32

	// For entry modules: the facade references the entry chunk's prologue
	// and epilogue must keep alive (resolved exports, and in CJS the
	// namespace object plus __toCommonJS)
	ReferencedSymbolsByEntryPointChunk []ast.Ref
}

func (meta *JSLinkingMeta) AddDependency(sourceIndex uint32) {
	if meta.dependencySet == nil {
		meta.dependencySet = make(map[uint32]bool)
	}
	if !meta.dependencySet[sourceIndex] {
		meta.dependencySet[sourceIndex] = true
		meta.Dependencies = append(meta.Dependencies, sourceIndex)
	}
}
