package js_printer

// Turns finalized statements back into JavaScript text. By the time the
// printer runs, the finalizer has already rewritten every identifier that
// needed rewriting; the renamer supplies output names for whatever is
// left. Output is deliberately readable: two-space indentation, one
// statement per line, LF newlines.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/renamer"
)

type Options struct {
	// Specifier text for each import record, indexed by record. The linker
	// fills in the module id for records that point at external modules.
	// A nil slice or an empty entry prints as an empty string.
	ImportRecordPaths []string
}

func Print(stmts []js_ast.Stmt, r renamer.Renamer, options Options) []byte {
	p := &printer{renamer: r, options: options}
	for _, stmt := range stmts {
		p.printStmt(stmt)
	}
	return p.js
}

// PrintExpr prints a single expression; the tests use it.
func PrintExpr(expr js_ast.Expr, r renamer.Renamer) []byte {
	p := &printer{renamer: r}
	p.printExpr(expr, js_ast.LLowest)
	return p.js
}

type printer struct {
	js      []byte
	renamer renamer.Renamer
	options Options
	indent  int
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}

func (p *printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		p.print("  ")
	}
}

func (p *printer) printNewline() {
	p.print("\n")
}

func (p *printer) nameForSymbol(ref ast.Ref) string {
	return p.renamer.NameForSymbol(ref)
}

// QuoteJS renders a string literal with double quotes.
func QuoteJS(text string) string {
	sb := strings.Builder{}
	sb.Grow(len(text) + 2)
	sb.WriteByte('"')
	for _, c := range text {
		switch c {
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\r")
		case '\t':
			sb.WriteString("\\t")
		default:
			if c < 0x20 {
				sb.WriteString(fmt.Sprintf("\\u%04x", c))
			} else {
				sb.WriteRune(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func (p *printer) printQuoted(text string) {
	p.print(QuoteJS(text))
}

func (p *printer) printNumber(value float64) {
	if math.IsInf(value, 1) {
		p.print("Infinity")
	} else if math.IsInf(value, -1) {
		p.print("-Infinity")
	} else if math.IsNaN(value) {
		p.print("NaN")
	} else {
		p.print(strconv.FormatFloat(value, 'g', -1, 64))
	}
}

func (p *printer) recordPath(importRecordIndex uint32) string {
	if p.options.ImportRecordPaths != nil {
		if path := p.options.ImportRecordPaths[importRecordIndex]; path != "" {
			return path
		}
	}
	return ""
}

// Expressions

func (p *printer) printExpr(expr js_ast.Expr, level js_ast.L) {
	switch e := expr.Data.(type) {
	case *js_ast.ENull:
		p.print("null")

	case *js_ast.EUndefined:
		p.print("undefined")

	case *js_ast.EBoolean:
		if e.Value {
			p.print("true")
		} else {
			p.print("false")
		}

	case *js_ast.ENumber:
		p.printNumber(e.Value)

	case *js_ast.EString:
		p.printQuoted(e.Value)

	case *js_ast.EIdentifier:
		p.print(p.nameForSymbol(e.Ref))

	case *js_ast.ENamedIdentifier:
		p.print(e.Name)

	case *js_ast.EImportMeta:
		p.print("import.meta")

	case *js_ast.EDot:
		// Property names may be keywords; only truly invalid names need the
		// bracket form
		if !js_ast.IsIdentifier(e.Name) {
			p.printExpr(e.Target, js_ast.LMember)
			p.print("[")
			p.printQuoted(e.Name)
			p.print("]")
			return
		}
		wrap := level > js_ast.LMember
		if wrap {
			p.print("(")
		}
		p.printExpr(e.Target, js_ast.LMember)
		p.print(".")
		p.print(e.Name)
		if wrap {
			p.print(")")
		}

	case *js_ast.EIndex:
		p.printExpr(e.Target, js_ast.LMember)
		p.print("[")
		p.printExpr(e.Index, js_ast.LLowest)
		p.print("]")

	case *js_ast.ECall:
		p.printExpr(e.Target, js_ast.LCall)
		p.print("(")
		p.printArgs(e.Args)
		p.print(")")

	case *js_ast.ENew:
		p.print("new ")
		p.printExpr(e.Target, js_ast.LCall)
		p.print("(")
		p.printArgs(e.Args)
		p.print(")")

	case *js_ast.EImportCall:
		p.print("import(")
		p.printExpr(e.Expr, js_ast.LComma)
		p.print(")")

	case *js_ast.EUnary:
		entry := js_ast.OpTable[e.Op]
		wrap := level >= js_ast.LPrefix
		if wrap {
			p.print("(")
		}
		p.print(entry.Text)
		if entry.IsKeyword {
			p.print(" ")
		}
		p.printExpr(e.Value, js_ast.LPrefix)
		if wrap {
			p.print(")")
		}

	case *js_ast.EBinary:
		entry := js_ast.OpTable[e.Op]
		wrap := level > entry.Level
		if wrap {
			p.print("(")
		}
		leftLevel := entry.Level
		rightLevel := entry.Level + 1
		if e.Op == js_ast.BinOpAssign {
			// Right-associative
			leftLevel, rightLevel = entry.Level+1, entry.Level
		}
		p.printExpr(e.Left, leftLevel)
		if e.Op == js_ast.BinOpComma {
			p.print(", ")
		} else {
			p.print(" " + entry.Text + " ")
		}
		p.printExpr(e.Right, rightLevel)
		if wrap {
			p.print(")")
		}

	case *js_ast.EIf:
		wrap := level > js_ast.LConditional
		if wrap {
			p.print("(")
		}
		p.printExpr(e.Test, js_ast.LConditional+1)
		p.print(" ? ")
		p.printExpr(e.Yes, js_ast.LAssign)
		p.print(" : ")
		p.printExpr(e.No, js_ast.LAssign)
		if wrap {
			p.print(")")
		}

	case *js_ast.ESpread:
		p.print("...")
		p.printExpr(e.Value, js_ast.LAssign)

	case *js_ast.EArray:
		p.print("[")
		for i, item := range e.Items {
			if i > 0 {
				p.print(", ")
			}
			p.printExpr(item, js_ast.LAssign)
		}
		p.print("]")

	case *js_ast.EObject:
		if len(e.Properties) == 0 {
			p.print("{}")
			return
		}
		p.print("{ ")
		for i, property := range e.Properties {
			if i > 0 {
				p.print(", ")
			}
			p.printProperty(property)
		}
		p.print(" }")

	case *js_ast.EArrow:
		wrap := level > js_ast.LAssign
		if wrap {
			p.print("(")
		}
		if e.IsAsync {
			p.print("async ")
		}
		p.print("(")
		p.printFnArgs(e.Args)
		p.print(") => ")
		if e.PreferExpr && len(e.Body) == 1 {
			if s, ok := e.Body[0].Data.(*js_ast.SReturn); ok && s.ValueOrNil.Data != nil {
				// Parenthesize "() => ({})" so the body is not a block
				if _, isObject := s.ValueOrNil.Data.(*js_ast.EObject); isObject {
					p.print("(")
					p.printExpr(s.ValueOrNil, js_ast.LComma)
					p.print(")")
				} else {
					p.printExpr(s.ValueOrNil, js_ast.LComma)
				}
				if wrap {
					p.print(")")
				}
				return
			}
		}
		p.printBlock(e.Body)
		if wrap {
			p.print(")")
		}

	case *js_ast.EFunction:
		p.printFn(e.Fn, "function")

	case *js_ast.EClass:
		p.printClass(e.Class)

	default:
		panic("Internal error")
	}
}

func (p *printer) printArgs(args []js_ast.Expr) {
	for i, arg := range args {
		if i > 0 {
			p.print(", ")
		}
		p.printExpr(arg, js_ast.LAssign)
	}
}

func (p *printer) printProperty(property js_ast.Property) {
	if property.Kind == js_ast.PropertySpread {
		p.print("...")
		p.printExpr(property.ValueOrNil, js_ast.LAssign)
		return
	}

	if property.Kind == js_ast.PropertyMethod {
		p.printPropertyKey(property.Key)
		fn := property.ValueOrNil.Data.(*js_ast.EFunction)
		p.print("(")
		p.printFnArgs(fn.Fn.Args)
		p.print(") ")
		p.printBlock(fn.Fn.Body)
		return
	}

	if property.WasShorthand {
		if id, ok := property.ValueOrNil.Data.(*js_ast.EIdentifier); ok {
			if key, isString := property.Key.Data.(*js_ast.EString); isString && key.Value == p.nameForSymbol(id.Ref) {
				p.print(key.Value)
				return
			}
		}
	}

	p.printPropertyKey(property.Key)
	p.print(": ")
	p.printExpr(property.ValueOrNil, js_ast.LAssign)
}

func (p *printer) printPropertyKey(key js_ast.Expr) {
	if str, ok := key.Data.(*js_ast.EString); ok {
		if js_ast.IsIdentifier(str.Value) {
			p.print(str.Value)
		} else {
			p.printQuoted(str.Value)
		}
		return
	}
	p.print("[")
	p.printExpr(key, js_ast.LComma)
	p.print("]")
}

func (p *printer) printFnArgs(args []js_ast.Arg) {
	for i, arg := range args {
		if i > 0 {
			p.print(", ")
		}
		p.printBinding(arg.Binding)
		if arg.DefaultOrNil.Data != nil {
			p.print(" = ")
			p.printExpr(arg.DefaultOrNil, js_ast.LAssign)
		}
	}
}

func (p *printer) printFn(fn js_ast.Fn, keyword string) {
	if fn.IsAsync {
		p.print("async ")
	}
	p.print(keyword)
	if fn.Name.IsValid() {
		p.print(" ")
		p.print(p.nameForSymbol(fn.Name))
	}
	p.print("(")
	p.printFnArgs(fn.Args)
	p.print(") ")
	p.printBlock(fn.Body)
}

func (p *printer) printClass(class js_ast.Class) {
	p.print("class")
	if class.Name.IsValid() {
		p.print(" ")
		p.print(p.nameForSymbol(class.Name))
	}
	if class.ExtendsOrNil.Data != nil {
		p.print(" extends ")
		p.printExpr(class.ExtendsOrNil, js_ast.LCall)
	}
	if len(class.Properties) == 0 {
		p.print(" {\n")
		p.printIndent()
		p.print("}")
		return
	}
	p.print(" {\n")
	p.indent++
	for _, property := range class.Properties {
		p.printIndent()
		p.printProperty(property)
		if property.Kind != js_ast.PropertyMethod {
			p.print(";")
		}
		p.printNewline()
	}
	p.indent--
	p.printIndent()
	p.print("}")
}

func (p *printer) printBlock(stmts []js_ast.Stmt) {
	p.print("{\n")
	p.indent++
	for _, stmt := range stmts {
		p.printStmt(stmt)
	}
	p.indent--
	p.printIndent()
	p.print("}")
}

// Bindings

func (p *printer) printBinding(binding js_ast.Binding) {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing:

	case *js_ast.BIdentifier:
		p.print(p.nameForSymbol(b.Ref))

	case *js_ast.BArray:
		p.print("[")
		for i, item := range b.Items {
			if i > 0 {
				p.print(", ")
			}
			p.printBinding(item.Binding)
			if item.DefaultOrNil.Data != nil {
				p.print(" = ")
				p.printExpr(item.DefaultOrNil, js_ast.LAssign)
			}
		}
		p.print("]")

	case *js_ast.BObject:
		p.print("{ ")
		for i, property := range b.Properties {
			if i > 0 {
				p.print(", ")
			}
			if property.IsSpread {
				p.print("...")
				p.printBinding(property.Value)
				continue
			}
			if property.WasShorthand {
				if id, ok := property.Value.Data.(*js_ast.BIdentifier); ok {
					if key, isString := property.Key.Data.(*js_ast.EString); isString && key.Value == p.nameForSymbol(id.Ref) {
						p.print(key.Value)
						if property.DefaultOrNil.Data != nil {
							p.print(" = ")
							p.printExpr(property.DefaultOrNil, js_ast.LAssign)
						}
						continue
					}
				}
			}
			p.printPropertyKey(property.Key)
			p.print(": ")
			p.printBinding(property.Value)
			if property.DefaultOrNil.Data != nil {
				p.print(" = ")
				p.printExpr(property.DefaultOrNil, js_ast.LAssign)
			}
		}
		p.print(" }")

	default:
		panic("Internal error")
	}
}

// Statements

func (p *printer) printClauseItems(items []js_ast.ClauseItem, isImport bool) {
	p.print("{ ")
	for i, item := range items {
		if i > 0 {
			p.print(", ")
		}
		name := p.nameForSymbol(item.Ref)
		alias := item.Alias
		if alias == name {
			p.print(alias)
		} else if isImport {
			p.printClauseAlias(alias)
			p.print(" as ")
			p.print(name)
		} else {
			p.print(name)
			p.print(" as ")
			p.printClauseAlias(alias)
		}
	}
	p.print(" }")
}

func (p *printer) printClauseAlias(alias string) {
	if js_ast.IsIdentifier(alias) {
		p.print(alias)
	} else {
		p.printQuoted(alias)
	}
}

func (p *printer) printPath(importRecordIndex uint32, fallback string) {
	if path := p.recordPath(importRecordIndex); path != "" {
		p.printQuoted(path)
	} else {
		p.printQuoted(fallback)
	}
}

func (p *printer) printStmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty:
		p.printIndent()
		p.print(";\n")

	case *js_ast.SRaw:
		p.print(s.Source)
		if !strings.HasSuffix(s.Source, "\n") {
			p.printNewline()
		}

	case *js_ast.SExpr:
		p.printIndent()
		switch s.Value.Data.(type) {
		case *js_ast.EObject, *js_ast.EFunction, *js_ast.EClass:
			p.print("(")
			p.printExpr(s.Value, js_ast.LLowest)
			p.print(")")
		default:
			p.printExpr(s.Value, js_ast.LLowest)
		}
		p.print(";\n")

	case *js_ast.SLocal:
		p.printIndent()
		if s.IsExport {
			p.print("export ")
		}
		p.print(s.Kind.String())
		p.print(" ")
		for i, decl := range s.Decls {
			if i > 0 {
				p.print(", ")
			}
			p.printBinding(decl.Binding)
			if decl.ValueOrNil.Data != nil {
				p.print(" = ")
				p.printExpr(decl.ValueOrNil, js_ast.LComma)
			}
		}
		p.print(";\n")

	case *js_ast.SFunction:
		p.printIndent()
		if s.IsExport {
			p.print("export ")
		}
		p.printFn(s.Fn, "function")
		p.printNewline()

	case *js_ast.SClass:
		p.printIndent()
		if s.IsExport {
			p.print("export ")
		}
		p.printClass(s.Class)
		p.printNewline()

	case *js_ast.SBlock:
		p.printIndent()
		p.printBlock(s.Stmts)
		p.printNewline()

	case *js_ast.SIf:
		p.printIndent()
		p.printIf(s)
		p.printNewline()

	case *js_ast.SReturn:
		p.printIndent()
		p.print("return")
		if s.ValueOrNil.Data != nil {
			p.print(" ")
			p.printExpr(s.ValueOrNil, js_ast.LLowest)
		}
		p.print(";\n")

	case *js_ast.SThrow:
		p.printIndent()
		p.print("throw ")
		p.printExpr(s.Value, js_ast.LLowest)
		p.print(";\n")

	case *js_ast.SFor:
		p.printIndent()
		p.print("for (")
		if s.InitOrNil.Data != nil {
			p.printForInit(s.InitOrNil)
		}
		p.print("; ")
		if s.TestOrNil.Data != nil {
			p.printExpr(s.TestOrNil, js_ast.LLowest)
		}
		p.print("; ")
		if s.UpdateOrNil.Data != nil {
			p.printExpr(s.UpdateOrNil, js_ast.LLowest)
		}
		p.print(") ")
		p.printBody(s.Body)

	case *js_ast.SWhile:
		p.printIndent()
		p.print("while (")
		p.printExpr(s.Test, js_ast.LLowest)
		p.print(") ")
		p.printBody(s.Body)

	case *js_ast.SImport:
		p.printIndent()
		p.print("import ")
		hasBefore := false
		if s.DefaultRef.IsValid() {
			p.print(p.nameForSymbol(s.DefaultRef))
			hasBefore = true
		}
		if s.NamespaceRef.IsValid() {
			if hasBefore {
				p.print(", ")
			}
			p.print("* as ")
			p.print(p.nameForSymbol(s.NamespaceRef))
			hasBefore = true
		}
		if s.Items != nil {
			if hasBefore {
				p.print(", ")
			}
			p.printClauseItems(s.Items, true)
			hasBefore = true
		}
		if hasBefore {
			p.print(" from ")
		}
		p.printPath(s.ImportRecordIndex, "")
		p.print(";\n")

	case *js_ast.SExportClause:
		p.printIndent()
		p.print("export ")
		p.printClauseItems(s.Items, false)
		p.print(";\n")

	case *js_ast.SExportFrom:
		p.printIndent()
		p.print("export ")
		p.printClauseItems(s.Items, false)
		p.print(" from ")
		p.printPath(s.ImportRecordIndex, "")
		p.print(";\n")

	case *js_ast.SExportStar:
		p.printIndent()
		p.print("export *")
		if s.Alias != "" {
			p.print(" as ")
			p.printClauseAlias(s.Alias)
		}
		p.print(" from ")
		p.printPath(s.ImportRecordIndex, "")
		p.print(";\n")

	case *js_ast.SExportDefault:
		p.printIndent()
		p.print("export default ")
		if s.Value.Stmt != nil {
			switch s2 := s.Value.Stmt.Data.(type) {
			case *js_ast.SFunction:
				p.printFn(s2.Fn, "function")
			case *js_ast.SClass:
				p.printClass(s2.Class)
			default:
				panic("Internal error")
			}
			p.printNewline()
		} else {
			p.printExpr(s.Value.Expr, js_ast.LComma)
			p.print(";\n")
		}

	default:
		panic("Internal error")
	}
}

func (p *printer) printForInit(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SExpr:
		p.printExpr(s.Value, js_ast.LLowest)
	case *js_ast.SLocal:
		p.print(s.Kind.String())
		p.print(" ")
		for i, decl := range s.Decls {
			if i > 0 {
				p.print(", ")
			}
			p.printBinding(decl.Binding)
			if decl.ValueOrNil.Data != nil {
				p.print(" = ")
				p.printExpr(decl.ValueOrNil, js_ast.LComma)
			}
		}
	default:
		panic("Internal error")
	}
}

func (p *printer) printBody(stmt js_ast.Stmt) {
	if block, ok := stmt.Data.(*js_ast.SBlock); ok {
		p.printBlock(block.Stmts)
		p.printNewline()
		return
	}
	p.printNewline()
	p.indent++
	p.printStmt(stmt)
	p.indent--
}

func (p *printer) printIf(s *js_ast.SIf) {
	p.print("if (")
	p.printExpr(s.Test, js_ast.LLowest)
	p.print(") ")
	if yes, ok := s.Yes.Data.(*js_ast.SBlock); ok {
		p.printBlock(yes.Stmts)
	} else {
		p.print("{\n")
		p.indent++
		p.printStmt(s.Yes)
		p.indent--
		p.printIndent()
		p.print("}")
	}
	if s.NoOrNil.Data != nil {
		p.print(" else ")
		if no, ok := s.NoOrNil.Data.(*js_ast.SBlock); ok {
			p.printBlock(no.Stmts)
		} else if elseIf, ok := s.NoOrNil.Data.(*js_ast.SIf); ok {
			p.printIf(elseIf)
		} else {
			p.print("{\n")
			p.indent++
			p.printStmt(s.NoOrNil)
			p.indent--
			p.printIndent()
			p.print("}")
		}
	}
}
