package graph

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/logger"
)

type SideEffectsKind uint8

const (
	// The scan stage analyzed the module body
	SideEffectsAnalyzed SideEffectsKind = iota

	// Package metadata declared the answer; use it verbatim
	SideEffectsUserDefined

	// Tree shaking is disabled for this module entirely
	SideEffectsNoTreeShake
)

type SideEffects struct {
	Kind SideEffectsKind

	// Meaningless for SideEffectsNoTreeShake, which always has side effects
	Value bool
}

func (se SideEffects) Has() bool {
	return se.Kind == SideEffectsNoTreeShake || se.Value
}

type ExportsKind uint8

const (
	// No imports or exports were seen. May be promoted to ESM when another
	// module imports this one.
	ExportsNone ExportsKind = iota

	ExportsESM
	ExportsCommonJS
)

type ModuleFlags uint16

const (
	// Set by the tree shaker when any statement (or the module's side
	// effects) must be emitted
	ModuleIncluded ModuleFlags = 1 << iota

	// The module contains "export * from"
	ModuleHasStarExport

	// The module contains a direct "eval" call, which pins every named
	// import and every declared symbol
	ModuleHasEval
)

func (flags ModuleFlags) Has(flag ModuleFlags) bool {
	return (flags & flag) != 0
}

// A reference recorded against a statement: either a plain top-level
// symbol use or a member-expression chain rooted at one ("ns.a.b"). For
// member expressions, Span keys the resolution computed by the binder.
type ReferencedSymbol struct {
	Ref   ast.Ref
	Props []string // nil for a plain symbol reference
	Span  logger.Loc
}

func (r ReferencedSymbol) IsMemberExpr() bool {
	return r.Props != nil
}

// One StmtInfo per top-level statement, plus index 0 which is reserved for
// the synthesized namespace-object declaration. Stmts[i] pairs with
// StmtInfos[i+1].
type StmtInfo struct {
	DeclaredSymbols     []ast.Ref
	ReferencedSymbols   []ReferencedSymbol
	ImportRecordIndices []uint32
	HasSideEffect       bool
	IsIncluded          bool
}

type ModuleRepr interface {
	ImportRecords() *[]ast.ImportRecord
}

// A parsed ECMAScript source file, as handed over by the scan stage.
type NormalRepr struct {
	Stmts []js_ast.Stmt

	importRecords []ast.ImportRecord

	// Keyed by the local binding symbol ("imported as")
	NamedImports map[ast.Ref]js_ast.NamedImport

	// Keyed by the exported name
	NamedExports map[string]js_ast.NamedExport

	// Import record indices of "export * from" statements
	ExportStarImportRecords []uint32

	// Span of a dynamic import expression -> import record index
	ImportsBySpan map[logger.Loc]uint32

	StmtInfos []StmtInfo

	// Top-level symbol -> indices into StmtInfos that declare it
	TopLevelSymbolToStmts map[ast.Ref][]uint32

	// The facade symbol denoting the module namespace object. Always
	// present, even if no code ever used the namespace.
	NamespaceRef ast.Ref

	// Facade symbol used to desugar "export default EXPR" into
	// "var <default> = EXPR"
	DefaultExportRef ast.Ref

	ExportsKind ExportsKind
	Flags       ModuleFlags

	Meta JSLinkingMeta
}

func (repr *NormalRepr) ImportRecords() *[]ast.ImportRecord {
	return &repr.importRecords
}

// AddStmtInfo appends a statement descriptor and indexes its declared
// symbols. The first call must be the reserved namespace-object slot.
func (repr *NormalRepr) AddStmtInfo(info StmtInfo) uint32 {
	index := uint32(len(repr.StmtInfos))
	repr.StmtInfos = append(repr.StmtInfos, info)
	if repr.TopLevelSymbolToStmts == nil {
		repr.TopLevelSymbolToStmts = make(map[ast.Ref][]uint32)
	}
	for _, ref := range info.DeclaredSymbols {
		repr.TopLevelSymbolToStmts[ref] = append(repr.TopLevelSymbolToStmts[ref], index)
	}
	return index
}

// ReplaceNamespaceStmtInfo fills in the reserved index 0 slot once the
// binder knows the module's canonical exports.
func (repr *NormalRepr) ReplaceNamespaceStmtInfo(info StmtInfo) {
	repr.StmtInfos[0] = info
	if repr.TopLevelSymbolToStmts == nil {
		repr.TopLevelSymbolToStmts = make(map[ast.Ref][]uint32)
	}
	for _, ref := range info.DeclaredSymbols {
		repr.TopLevelSymbolToStmts[ref] = append(repr.TopLevelSymbolToStmts[ref], 0)
	}
}

// A module that stays outside the bundle. Imports of it survive into the
// output as imports (ESM) or requires (CJS).
type ExternalRepr struct {
	importRecords []ast.ImportRecord

	// The symbol the whole module is addressed through when the output
	// needs a namespace object for it
	NamespaceRef ast.Ref
}

func (repr *ExternalRepr) ImportRecords() *[]ast.ImportRecord {
	return &repr.importRecords
}

type Module struct {
	// Path relative to the workspace root for normal modules; the request
	// string for external ones. Used in diagnostics and for deterministic
	// ordering.
	StableID string

	// A legitimized short name used when generating symbols for this module
	ReprName string

	Repr ModuleRepr

	SideEffects SideEffects

	// Assigned by the execution-order pass
	ExecOrder uint32
}

func (m *Module) Normal() (*NormalRepr, bool) {
	repr, ok := m.Repr.(*NormalRepr)
	return repr, ok
}

func (m *Module) External() (*ExternalRepr, bool) {
	repr, ok := m.Repr.(*ExternalRepr)
	return repr, ok
}

type EntryPointKind uint8

const (
	EntryPointUserDefined EntryPointKind = iota
	EntryPointDynamicImport
)

type EntryPoint struct {
	// The explicit output name, if the user supplied one
	Name string

	SourceIndex uint32
	Kind        EntryPointKind
}
