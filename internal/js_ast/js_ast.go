package js_ast

// A reduced JavaScript AST. The scan stage (an external collaborator)
// produces statements in this form; the finalizer rewrites them in place
// and the printer turns them back into source text. Expression nodes carry
// a "Loc" that doubles as the span key recorded by the scanner for member
// expressions and dynamic imports.

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/logger"
)

type L uint8

const (
	LLowest L = iota
	LComma
	LAssign
	LConditional
	LNullishCoalescing
	LLogicalOr
	LLogicalAnd
	LEquals
	LCompare
	LAdd
	LMultiply
	LPrefix
	LCall
	LMember
)

type OpCode uint8

const (
	// Prefix
	UnOpNot OpCode = iota
	UnOpVoid
	UnOpTypeof
	UnOpDelete
	UnOpNeg
	UnOpPos

	// Binary
	BinOpComma
	BinOpAssign
	BinOpNullishCoalescing
	BinOpLogicalOr
	BinOpLogicalAnd
	BinOpLooseEq
	BinOpLooseNe
	BinOpStrictEq
	BinOpStrictNe
	BinOpLt
	BinOpGt
	BinOpLe
	BinOpGe
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpRem
)

type opTableEntry struct {
	Text      string
	Level     L
	IsKeyword bool
}

var OpTable = []opTableEntry{
	{"!", LPrefix, false},
	{"void", LPrefix, true},
	{"typeof", LPrefix, true},
	{"delete", LPrefix, true},
	{"-", LPrefix, false},
	{"+", LPrefix, false},

	{",", LComma, false},
	{"=", LAssign, false},
	{"??", LNullishCoalescing, false},
	{"||", LLogicalOr, false},
	{"&&", LLogicalAnd, false},
	{"==", LEquals, false},
	{"!=", LEquals, false},
	{"===", LEquals, false},
	{"!==", LEquals, false},
	{"<", LCompare, false},
	{">", LCompare, false},
	{"<=", LCompare, false},
	{">=", LCompare, false},
	{"+", LAdd, false},
	{"-", LAdd, false},
	{"*", LMultiply, false},
	{"/", LMultiply, false},
	{"%", LMultiply, false},
}

func (op OpCode) IsPrefix() bool {
	return op < BinOpComma
}

type E interface{ isExpr() }
type S interface{ isStmt() }
type B interface{ isBinding() }

type Expr struct {
	Data E
	Loc  logger.Loc
}

type Stmt struct {
	Data S
	Loc  logger.Loc
}

type Binding struct {
	Data B
	Loc  logger.Loc
}

// Expressions

type EArray struct{ Items []Expr }

type Arg struct {
	Binding      Binding
	DefaultOrNil Expr
}

type Fn struct {
	Name    ast.Ref // may be InvalidRef
	Args    []Arg
	Body    []Stmt
	IsAsync bool
}

type EArrow struct {
	Args []Arg
	Body []Stmt

	// "() => expr" instead of "() => { return expr }"
	PreferExpr bool
	IsAsync    bool
}

type EBinary struct {
	Left  Expr
	Right Expr
	Op    OpCode
}

type EUnary struct {
	Value Expr
	Op    OpCode
}

type EBoolean struct{ Value bool }

type ECall struct {
	Target Expr
	Args   []Expr
}

type ENew struct {
	Target Expr
	Args   []Expr
}

type EDot struct {
	Target Expr
	Name   string
}

type EIndex struct {
	Target Expr
	Index  Expr
}

type EIdentifier struct {
	Ref ast.Ref
}

// An identifier that already carries its final output name. The finalizer
// produces these for bindings that are not symbols: cross-chunk require
// bindings, "require" itself in CommonJS output, and platform globals.
type ENamedIdentifier struct{ Name string }

type EIf struct {
	Test Expr
	Yes  Expr
	No   Expr
}

// A dynamic "import(...)" expression. The record index is recovered from
// the owning module's span map using this expression's Loc.
type EImportCall struct {
	Expr Expr
}

type EImportMeta struct{}

type ENull struct{}
type EUndefined struct{}

type ENumber struct{ Value float64 }

type EString struct{ Value string }

type EFunction struct{ Fn Fn }

type EClass struct{ Class Class }

type ESpread struct{ Value Expr }

type PropertyKind uint8

const (
	PropertyNormal PropertyKind = iota
	PropertyMethod
	PropertySpread
)

type Property struct {
	// Keys that are valid identifiers print without quotes
	Key        Expr
	ValueOrNil Expr
	Kind       PropertyKind

	// "{ a }" instead of "{ a: a }"; cleared when the value is rewritten
	// to a different name
	WasShorthand bool
}

type EObject struct{ Properties []Property }

type Class struct {
	Name         ast.Ref // may be InvalidRef
	ExtendsOrNil Expr
	Properties   []Property
}

// Statements

type SBlock struct{ Stmts []Stmt }

type SEmpty struct{}

type SExpr struct{ Value Expr }

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

func (kind LocalKind) String() string {
	switch kind {
	case LocalVar:
		return "var"
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	default:
		panic("Internal error")
	}
}

type Decl struct {
	Binding    Binding
	ValueOrNil Expr
}

type SLocal struct {
	Decls    []Decl
	Kind     LocalKind
	IsExport bool
}

type SFunction struct {
	Fn       Fn
	IsExport bool
}

type SClass struct {
	Class    Class
	IsExport bool
}

type SIf struct {
	Test    Expr
	Yes     Stmt
	NoOrNil Stmt
}

type SReturn struct{ ValueOrNil Expr }

type SFor struct {
	InitOrNil   Stmt // SLocal or SExpr
	TestOrNil   Expr
	UpdateOrNil Expr
	Body        Stmt
}

type SWhile struct {
	Test Expr
	Body Stmt
}

type SThrow struct{ Value Expr }

// A ClauseItem appears in import and export clauses. "Alias" is the name
// on the module-interface side; "Ref" is the local binding.
type ClauseItem struct {
	Alias    string
	AliasLoc logger.Loc
	Ref      ast.Ref
}

type SImport struct {
	Items             []ClauseItem
	DefaultRef        ast.Ref // InvalidRef if no default import
	NamespaceRef      ast.Ref // InvalidRef if no "* as ns"
	ImportRecordIndex uint32
}

type SExportClause struct{ Items []ClauseItem }

type SExportFrom struct {
	Items             []ClauseItem
	ImportRecordIndex uint32
}

type SExportStar struct {
	// "export * as alias from" when non-empty
	Alias             string
	NamespaceRef      ast.Ref
	ImportRecordIndex uint32
}

type StmtOrExpr struct {
	Stmt *Stmt
	Expr Expr
}

type SExportDefault struct {
	DefaultName ast.Ref
	Value       StmtOrExpr // SFunction or SClass when Stmt is set
}

// Pre-rendered source text. Only the synthetic runtime module uses this:
// its helpers are authored as JavaScript, not built up from nodes.
type SRaw struct{ Source string }

func (*EArray) isExpr()           {}
func (*EArrow) isExpr()           {}
func (*EBinary) isExpr()          {}
func (*EUnary) isExpr()           {}
func (*EBoolean) isExpr()         {}
func (*ECall) isExpr()            {}
func (*ENew) isExpr()             {}
func (*EDot) isExpr()             {}
func (*EIndex) isExpr()           {}
func (*EIdentifier) isExpr()      {}
func (*ENamedIdentifier) isExpr() {}
func (*EIf) isExpr()              {}
func (*EImportCall) isExpr()      {}
func (*EImportMeta) isExpr()      {}
func (*ENull) isExpr()            {}
func (*EUndefined) isExpr()       {}
func (*ENumber) isExpr()          {}
func (*EString) isExpr()          {}
func (*EFunction) isExpr()        {}
func (*EClass) isExpr()           {}
func (*ESpread) isExpr()          {}
func (*EObject) isExpr()          {}

func (*SBlock) isStmt()         {}
func (*SEmpty) isStmt()         {}
func (*SExpr) isStmt()          {}
func (*SLocal) isStmt()         {}
func (*SFunction) isStmt()      {}
func (*SClass) isStmt()         {}
func (*SIf) isStmt()            {}
func (*SReturn) isStmt()        {}
func (*SFor) isStmt()           {}
func (*SWhile) isStmt()         {}
func (*SThrow) isStmt()         {}
func (*SImport) isStmt()        {}
func (*SExportClause) isStmt()  {}
func (*SExportFrom) isStmt()    {}
func (*SExportStar) isStmt()    {}
func (*SExportDefault) isStmt() {}
func (*SRaw) isStmt()           {}

type BIdentifier struct{ Ref ast.Ref }

type BMissing struct{}

type ArrayBinding struct {
	Binding      Binding
	DefaultOrNil Expr
}

type BArray struct{ Items []ArrayBinding }

type PropertyBinding struct {
	Key          Expr
	Value        Binding
	DefaultOrNil Expr
	WasShorthand bool
	IsSpread     bool
}

type BObject struct{ Properties []PropertyBinding }

func (*BIdentifier) isBinding() {}
func (*BMissing) isBinding()    {}
func (*BArray) isBinding()      {}
func (*BObject) isBinding()     {}

// This is a representation for statements like
//   - Case A: `import { foo } from 'foo'`
//   - Case B: `import * as fooNs from 'foo'`
//   - Case C: `import { foo as foo2 } from 'foo'`
//
// The local binding symbol ("foo", "fooNs", "foo2") is the map key this
// lives under, so only the interface-side name is stored here. Star
// imports use the alias "*".
type NamedImport struct {
	Alias             string
	AliasLoc          logger.Loc
	ImportRecordIndex uint32
}

// A NamedExport records "export { x }" or "export var x" in the exporting
// module itself: the exported name maps to the referenced local symbol.
type NamedExport struct {
	Ref      ast.Ref
	AliasLoc logger.Loc
}
