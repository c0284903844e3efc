package js_printer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/js_ast"
)

type testRenamer struct {
	names map[ast.Ref]string
}

func (r *testRenamer) NameForSymbol(ref ast.Ref) string {
	if name, ok := r.names[ref]; ok {
		return name
	}
	return "sym"
}

func expr(data js_ast.E) js_ast.Expr {
	return js_ast.Expr{Data: data}
}

func printExprText(t *testing.T, e js_ast.Expr) string {
	t.Helper()
	return string(PrintExpr(e, &testRenamer{}))
}

func TestQuoteJS(t *testing.T) {
	require.Equal(t, `"abc"`, QuoteJS("abc"))
	require.Equal(t, `"a\"b"`, QuoteJS(`a"b`))
	require.Equal(t, `"a\\b"`, QuoteJS(`a\b`))
	require.Equal(t, `"a\nb"`, QuoteJS("a\nb"))
	require.Equal(t, "\"\\u0001\"", QuoteJS("\x01"))
}

func TestPrintLiterals(t *testing.T) {
	require.Equal(t, "null", printExprText(t, expr(&js_ast.ENull{})))
	require.Equal(t, "undefined", printExprText(t, expr(&js_ast.EUndefined{})))
	require.Equal(t, "true", printExprText(t, expr(&js_ast.EBoolean{Value: true})))
	require.Equal(t, "42", printExprText(t, expr(&js_ast.ENumber{Value: 42})))
	require.Equal(t, "1.5", printExprText(t, expr(&js_ast.ENumber{Value: 1.5})))
	require.Equal(t, `"hi"`, printExprText(t, expr(&js_ast.EString{Value: "hi"})))
}

func TestPrintBinaryPrecedence(t *testing.T) {
	// (a + b) * c keeps its parentheses
	mul := expr(&js_ast.EBinary{
		Op: js_ast.BinOpMul,
		Left: expr(&js_ast.EBinary{
			Op:    js_ast.BinOpAdd,
			Left:  expr(&js_ast.ENamedIdentifier{Name: "a"}),
			Right: expr(&js_ast.ENamedIdentifier{Name: "b"}),
		}),
		Right: expr(&js_ast.ENamedIdentifier{Name: "c"}),
	})
	require.Equal(t, "(a + b) * c", printExprText(t, mul))

	// a + b * c does not
	add := expr(&js_ast.EBinary{
		Op:   js_ast.BinOpAdd,
		Left: expr(&js_ast.ENamedIdentifier{Name: "a"}),
		Right: expr(&js_ast.EBinary{
			Op:    js_ast.BinOpMul,
			Left:  expr(&js_ast.ENamedIdentifier{Name: "b"}),
			Right: expr(&js_ast.ENamedIdentifier{Name: "c"}),
		}),
	})
	require.Equal(t, "a + b * c", printExprText(t, add))
}

func TestPrintCommaCalleeIsParenthesized(t *testing.T) {
	// (0, ns.default)(arg)
	call := expr(&js_ast.ECall{
		Target: expr(&js_ast.EBinary{
			Op:   js_ast.BinOpComma,
			Left: expr(&js_ast.ENumber{Value: 0}),
			Right: expr(&js_ast.EDot{
				Target: expr(&js_ast.ENamedIdentifier{Name: "ns"}),
				Name:   "default",
			}),
		}),
		Args: []js_ast.Expr{expr(&js_ast.ENamedIdentifier{Name: "arg"})},
	})
	require.Equal(t, `(0, ns.default)(arg)`, printExprText(t, call))
}

func TestPrintDotFallsBackToIndex(t *testing.T) {
	dotted := expr(&js_ast.EDot{
		Target: expr(&js_ast.ENamedIdentifier{Name: "ns"}),
		Name:   "not-an-identifier",
	})
	require.Equal(t, `ns["not-an-identifier"]`, printExprText(t, dotted))
}

func TestPrintVoidZero(t *testing.T) {
	v := expr(&js_ast.EUnary{Op: js_ast.UnOpVoid, Value: expr(&js_ast.ENumber{Value: 0})})
	require.Equal(t, "void 0", printExprText(t, v))
}

func TestPrintObjectAndShorthand(t *testing.T) {
	r := &testRenamer{names: map[ast.Ref]string{
		{SourceIndex: 0, InnerIndex: 0}: "a",
		{SourceIndex: 0, InnerIndex: 1}: "b$1",
	}}

	object := expr(&js_ast.EObject{Properties: []js_ast.Property{
		{
			Key:          expr(&js_ast.EString{Value: "a"}),
			ValueOrNil:   expr(&js_ast.EIdentifier{Ref: ast.Ref{SourceIndex: 0, InnerIndex: 0}}),
			WasShorthand: true,
		},
		{
			Key:          expr(&js_ast.EString{Value: "b"}),
			ValueOrNil:   expr(&js_ast.EIdentifier{Ref: ast.Ref{SourceIndex: 0, InnerIndex: 1}}),
			WasShorthand: true,
		},
	}})

	// "a" stays shorthand; "b" was renamed so it must print longhand
	require.Equal(t, "{ a, b: b$1 }", string(PrintExpr(object, r)))
}

func TestPrintArrowGetter(t *testing.T) {
	arrow := expr(&js_ast.EArrow{
		PreferExpr: true,
		Body: []js_ast.Stmt{{Data: &js_ast.SReturn{
			ValueOrNil: expr(&js_ast.ENamedIdentifier{Name: "x"}),
		}}},
	})
	require.Equal(t, "() => x", printExprText(t, arrow))
}

func TestPrintStatements(t *testing.T) {
	r := &testRenamer{names: map[ast.Ref]string{
		{SourceIndex: 0, InnerIndex: 0}: "x",
	}}
	stmts := []js_ast.Stmt{
		{Data: &js_ast.SLocal{
			Kind: js_ast.LocalConst,
			Decls: []js_ast.Decl{{
				Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Ref: ast.Ref{SourceIndex: 0, InnerIndex: 0}}},
				ValueOrNil: expr(&js_ast.ENumber{Value: 1}),
			}},
		}},
		{Data: &js_ast.SExpr{Value: expr(&js_ast.ECall{
			Target: expr(&js_ast.EDot{
				Target: expr(&js_ast.ENamedIdentifier{Name: "console"}),
				Name:   "log",
			}),
			Args: []js_ast.Expr{expr(&js_ast.ENamedIdentifier{Name: "x"})},
		})}},
	}
	require.Equal(t, "const x = 1;\nconsole.log(x);\n", string(Print(stmts, r, Options{})))
}

func TestPrintIfElse(t *testing.T) {
	stmt := js_ast.Stmt{Data: &js_ast.SIf{
		Test: expr(&js_ast.ENamedIdentifier{Name: "cond"}),
		Yes: js_ast.Stmt{Data: &js_ast.SBlock{Stmts: []js_ast.Stmt{
			{Data: &js_ast.SReturn{ValueOrNil: expr(&js_ast.ENumber{Value: 1})}},
		}}},
		NoOrNil: js_ast.Stmt{Data: &js_ast.SBlock{Stmts: []js_ast.Stmt{
			{Data: &js_ast.SReturn{ValueOrNil: expr(&js_ast.ENumber{Value: 2})}},
		}}},
	}}
	out := string(Print([]js_ast.Stmt{stmt}, &testRenamer{}, Options{}))
	require.Equal(t, "if (cond) {\n  return 1;\n} else {\n  return 2;\n}\n", out)
}

func TestPrintRawSource(t *testing.T) {
	stmt := js_ast.Stmt{Data: &js_ast.SRaw{Source: "var __create = Object.create;\n"}}
	require.Equal(t, "var __create = Object.create;\n", string(Print([]js_ast.Stmt{stmt}, &testRenamer{}, Options{})))
}
