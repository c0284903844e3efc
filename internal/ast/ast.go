package ast

// This file contains data structures shared between the module graph and
// the AST packages. Everything here is keyed by dense 32-bit indices so
// per-entity data can live in parallel arrays.

import "github.com/tinypack/tinypack/internal/logger"

// A Ref names a symbol as (owning module, index into that module's symbol
// array). Refs are value types and are used as map keys throughout the
// linker.
type Ref struct {
	SourceIndex uint32
	InnerIndex  uint32
}

var InvalidRef = Ref{^uint32(0), ^uint32(0)}

func (r Ref) IsValid() bool {
	return r != InvalidRef
}

// This stores a 32-bit index where the zero value is an invalid index. This
// is a better alternative to storing the index as a pointer since that has
// the same properties but takes up more space and costs an extra pointer
// traversal.
type Index32 struct {
	flippedBits uint32
}

func MakeIndex32(index uint32) Index32 {
	return Index32{flippedBits: ^index}
}

func (i Index32) IsValid() bool {
	return i.flippedBits != 0
}

func (i Index32) GetIndex() uint32 {
	return ^i.flippedBits
}

type ImportKind uint8

const (
	// An ES6 import or re-export statement
	ImportStmt ImportKind = iota

	// An "import()" expression with a string argument
	ImportDynamic
)

func (kind ImportKind) IsStatic() bool {
	return kind == ImportStmt
}

type ImportRecordFlags uint16

const (
	// If true, this was originally written as a bare "import 'file'"
	// statement without any bindings
	IsPlainImport ImportRecordFlags = 1 << iota

	// If true, this record is for "export * from 'path'"
	IsExportStar

	// Records synthesized by the linker have no corresponding span in the
	// source (e.g. the implicit import of the runtime module)
	IsUnspanned
)

func (flags ImportRecordFlags) Has(flag ImportRecordFlags) bool {
	return (flags & flag) != 0
}

type ImportRecord struct {
	// The original module request string
	Path string

	Range logger.Range

	// The resolved module index of the importee. External modules have
	// entries in the module table too, so this also holds for records the
	// resolver marked external.
	SourceIndex Index32

	// When the importee is converted to a CommonJS require, uses of the
	// import are rewritten to property accesses off this symbol
	NamespaceRef Ref

	Flags ImportRecordFlags
	Kind  ImportKind
}
