package scanfile

// Tagged-node decoding for the statement bodies in a scan snapshot. Every
// node is {"type": "...", ...}; spans default to -1 (invalid) so that only
// nodes the scan explicitly annotated can match a recorded resolution.

import (
	"encoding/json"
	"fmt"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/logger"
)

type nodeDecoder struct {
	sourceIndex uint32
	symbolCount uint32
}

type rawNode struct {
	Type string `json:"type"`
	Span *int32 `json:"span"`

	// Expression payloads
	Value  json.RawMessage `json:"value"`
	Target json.RawMessage `json:"target"`
	Left   json.RawMessage `json:"left"`
	Right  json.RawMessage `json:"right"`
	Test   json.RawMessage `json:"test"`
	Yes    json.RawMessage `json:"yes"`
	No     json.RawMessage `json:"no"`
	Expr   json.RawMessage `json:"expr"`
	Key    json.RawMessage `json:"key"`
	Index  json.RawMessage `json:"index"`

	Args  []json.RawMessage `json:"args"`
	Items []json.RawMessage `json:"items"`
	Body  []json.RawMessage `json:"body"`
	Props []json.RawMessage `json:"props"`
	Decls []json.RawMessage `json:"decls"`

	Name    string  `json:"name"`
	Op      string  `json:"op"`
	Kind    string  `json:"kind"`
	Source  string  `json:"source"`
	Alias   string  `json:"alias"`
	Number  float64 `json:"number"`
	Str     string  `json:"str"`
	Boolean bool    `json:"bool"`

	Symbol  *uint32 `json:"symbol"`
	Module  *uint32 `json:"module"`
	Record  *uint32 `json:"record"`
	Default *uint32 `json:"default"`

	Export    bool `json:"export"`
	Async     bool `json:"async"`
	ExprBody  bool `json:"exprBody"`
	Shorthand bool `json:"shorthand"`
	Spread    bool `json:"spread"`
	Method    bool `json:"method"`

	Binding json.RawMessage `json:"binding"`
	Init    json.RawMessage `json:"init"`
	Update  json.RawMessage `json:"update"`
	Extends json.RawMessage `json:"extends"`

	Fn     json.RawMessage   `json:"fn"`
	Class  json.RawMessage   `json:"class"`
	Clause []json.RawMessage `json:"clause"`
}

var unaryOps = map[string]js_ast.OpCode{
	"!": js_ast.UnOpNot, "void": js_ast.UnOpVoid, "typeof": js_ast.UnOpTypeof,
	"delete": js_ast.UnOpDelete, "neg": js_ast.UnOpNeg, "pos": js_ast.UnOpPos,
}

var binaryOps = map[string]js_ast.OpCode{
	",": js_ast.BinOpComma, "=": js_ast.BinOpAssign, "??": js_ast.BinOpNullishCoalescing,
	"||": js_ast.BinOpLogicalOr, "&&": js_ast.BinOpLogicalAnd,
	"==": js_ast.BinOpLooseEq, "!=": js_ast.BinOpLooseNe,
	"===": js_ast.BinOpStrictEq, "!==": js_ast.BinOpStrictNe,
	"<": js_ast.BinOpLt, ">": js_ast.BinOpGt, "<=": js_ast.BinOpLe, ">=": js_ast.BinOpGe,
	"+": js_ast.BinOpAdd, "-": js_ast.BinOpSub, "*": js_ast.BinOpMul,
	"/": js_ast.BinOpDiv, "%": js_ast.BinOpRem,
}

func (d *nodeDecoder) loc(node *rawNode) logger.Loc {
	if node.Span != nil {
		return logger.Loc{Start: *node.Span}
	}
	return logger.Loc{Start: -1}
}

func (d *nodeDecoder) ref(node *rawNode) (ast.Ref, error) {
	if node.Symbol == nil {
		return ast.InvalidRef, nil
	}
	owner := d.sourceIndex
	if node.Module != nil {
		owner = *node.Module
	}
	if owner == d.sourceIndex && *node.Symbol >= d.symbolCount {
		return ast.InvalidRef, fmt.Errorf("symbol index %d out of range", *node.Symbol)
	}
	return ast.Ref{SourceIndex: owner, InnerIndex: *node.Symbol}, nil
}

func (d *nodeDecoder) decodeExprs(raws []json.RawMessage) ([]js_ast.Expr, error) {
	exprs := make([]js_ast.Expr, 0, len(raws))
	for _, raw := range raws {
		expr, err := d.decodeExpr(raw)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func (d *nodeDecoder) decodeStmts(raws []json.RawMessage) ([]js_ast.Stmt, error) {
	stmts := make([]js_ast.Stmt, 0, len(raws))
	for _, raw := range raws {
		stmt, err := d.decodeStmt(raw)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (d *nodeDecoder) decodeExpr(raw json.RawMessage) (js_ast.Expr, error) {
	var node rawNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return js_ast.Expr{}, err
	}
	loc := d.loc(&node)

	switch node.Type {
	case "null":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}, nil
	case "undefined":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUndefined{}}, nil
	case "bool":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: node.Boolean}}, nil
	case "number":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: node.Number}}, nil
	case "string":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: node.Str}}, nil
	case "importMeta":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImportMeta{}}, nil

	case "id":
		ref, err := d.ref(&node)
		if err != nil {
			return js_ast.Expr{}, err
		}
		if !ref.IsValid() {
			return js_ast.Expr{}, fmt.Errorf("identifier without symbol")
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref}}, nil

	case "dot":
		target, err := d.decodeExpr(node.Target)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EDot{Target: target, Name: node.Name}}, nil

	case "index":
		target, err := d.decodeExpr(node.Target)
		if err != nil {
			return js_ast.Expr{}, err
		}
		index, err := d.decodeExpr(node.Index)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{Target: target, Index: index}}, nil

	case "call", "new":
		target, err := d.decodeExpr(node.Target)
		if err != nil {
			return js_ast.Expr{}, err
		}
		args, err := d.decodeExprs(node.Args)
		if err != nil {
			return js_ast.Expr{}, err
		}
		if node.Type == "new" {
			return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: args}}, nil
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{Target: target, Args: args}}, nil

	case "import":
		expr, err := d.decodeExpr(node.Expr)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImportCall{Expr: expr}}, nil

	case "unary":
		op, ok := unaryOps[node.Op]
		if !ok {
			return js_ast.Expr{}, fmt.Errorf("unknown unary operator %q", node.Op)
		}
		value, err := d.decodeExpr(node.Value)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: value}}, nil

	case "binary":
		op, ok := binaryOps[node.Op]
		if !ok {
			return js_ast.Expr{}, fmt.Errorf("unknown binary operator %q", node.Op)
		}
		left, err := d.decodeExpr(node.Left)
		if err != nil {
			return js_ast.Expr{}, err
		}
		right, err := d.decodeExpr(node.Right)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: right}}, nil

	case "cond":
		test, err := d.decodeExpr(node.Test)
		if err != nil {
			return js_ast.Expr{}, err
		}
		yes, err := d.decodeExpr(node.Yes)
		if err != nil {
			return js_ast.Expr{}, err
		}
		no, err := d.decodeExpr(node.No)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{Test: test, Yes: yes, No: no}}, nil

	case "spread":
		value, err := d.decodeExpr(node.Value)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ESpread{Value: value}}, nil

	case "array":
		items, err := d.decodeExprs(node.Items)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items}}, nil

	case "object":
		properties, err := d.decodeProperties(node.Props)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties}}, nil

	case "arrow":
		body, err := d.decodeStmts(node.Body)
		if err != nil {
			return js_ast.Expr{}, err
		}
		args, err := d.decodeArgs(node.Args)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArrow{
			Args:       args,
			Body:       body,
			PreferExpr: node.ExprBody,
			IsAsync:    node.Async,
		}}, nil

	case "function":
		fn, err := d.decodeFn(&node)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}, nil

	case "class":
		class, err := d.decodeClass(&node)
		if err != nil {
			return js_ast.Expr{}, err
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: class}}, nil

	default:
		return js_ast.Expr{}, fmt.Errorf("unknown expression type %q", node.Type)
	}
}

func (d *nodeDecoder) decodeProperties(raws []json.RawMessage) ([]js_ast.Property, error) {
	properties := make([]js_ast.Property, 0, len(raws))
	for _, raw := range raws {
		var node rawNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, err
		}

		property := js_ast.Property{WasShorthand: node.Shorthand}
		if node.Spread {
			property.Kind = js_ast.PropertySpread
		} else if node.Method {
			property.Kind = js_ast.PropertyMethod
		}

		if node.Key != nil {
			key, err := d.decodeExpr(node.Key)
			if err != nil {
				return nil, err
			}
			property.Key = key
		} else if node.Name != "" {
			property.Key = js_ast.Expr{Loc: logger.Loc{Start: -1}, Data: &js_ast.EString{Value: node.Name}}
		}

		if node.Value != nil {
			value, err := d.decodeExpr(node.Value)
			if err != nil {
				return nil, err
			}
			property.ValueOrNil = value
		}
		properties = append(properties, property)
	}
	return properties, nil
}

func (d *nodeDecoder) decodeArgs(raws []json.RawMessage) ([]js_ast.Arg, error) {
	args := make([]js_ast.Arg, 0, len(raws))
	for _, raw := range raws {
		var node rawNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, err
		}
		binding, err := d.decodeBinding(node.Binding)
		if err != nil {
			return nil, err
		}
		arg := js_ast.Arg{Binding: binding}
		if node.Value != nil {
			value, err := d.decodeExpr(node.Value)
			if err != nil {
				return nil, err
			}
			arg.DefaultOrNil = value
		}
		args = append(args, arg)
	}
	return args, nil
}

func (d *nodeDecoder) decodeFn(node *rawNode) (js_ast.Fn, error) {
	name := ast.InvalidRef
	if node.Symbol != nil {
		ref, err := d.ref(node)
		if err != nil {
			return js_ast.Fn{}, err
		}
		name = ref
	}
	args, err := d.decodeArgs(node.Args)
	if err != nil {
		return js_ast.Fn{}, err
	}
	body, err := d.decodeStmts(node.Body)
	if err != nil {
		return js_ast.Fn{}, err
	}
	return js_ast.Fn{Name: name, Args: args, Body: body, IsAsync: node.Async}, nil
}

func (d *nodeDecoder) decodeClass(node *rawNode) (js_ast.Class, error) {
	name := ast.InvalidRef
	if node.Symbol != nil {
		ref, err := d.ref(node)
		if err != nil {
			return js_ast.Class{}, err
		}
		name = ref
	}
	class := js_ast.Class{Name: name}
	if node.Extends != nil {
		extends, err := d.decodeExpr(node.Extends)
		if err != nil {
			return js_ast.Class{}, err
		}
		class.ExtendsOrNil = extends
	}
	properties, err := d.decodeProperties(node.Props)
	if err != nil {
		return js_ast.Class{}, err
	}
	class.Properties = properties
	return class, nil
}

func (d *nodeDecoder) decodeBinding(raw json.RawMessage) (js_ast.Binding, error) {
	var node rawNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return js_ast.Binding{}, err
	}
	loc := d.loc(&node)

	switch node.Type {
	case "missing":
		return js_ast.Binding{Loc: loc, Data: &js_ast.BMissing{}}, nil

	case "id":
		ref, err := d.ref(&node)
		if err != nil {
			return js_ast.Binding{}, err
		}
		if !ref.IsValid() {
			return js_ast.Binding{}, fmt.Errorf("binding identifier without symbol")
		}
		return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: ref}}, nil

	case "array":
		items := make([]js_ast.ArrayBinding, 0, len(node.Items))
		for _, rawItem := range node.Items {
			var item rawNode
			if err := json.Unmarshal(rawItem, &item); err != nil {
				return js_ast.Binding{}, err
			}
			binding, err := d.decodeBinding(item.Binding)
			if err != nil {
				return js_ast.Binding{}, err
			}
			arrayBinding := js_ast.ArrayBinding{Binding: binding}
			if item.Value != nil {
				value, err := d.decodeExpr(item.Value)
				if err != nil {
					return js_ast.Binding{}, err
				}
				arrayBinding.DefaultOrNil = value
			}
			items = append(items, arrayBinding)
		}
		return js_ast.Binding{Loc: loc, Data: &js_ast.BArray{Items: items}}, nil

	case "object":
		properties := make([]js_ast.PropertyBinding, 0, len(node.Props))
		for _, rawProperty := range node.Props {
			var property rawNode
			if err := json.Unmarshal(rawProperty, &property); err != nil {
				return js_ast.Binding{}, err
			}
			value, err := d.decodeBinding(property.Binding)
			if err != nil {
				return js_ast.Binding{}, err
			}
			propertyBinding := js_ast.PropertyBinding{
				Value:        value,
				WasShorthand: property.Shorthand,
				IsSpread:     property.Spread,
			}
			if property.Key != nil {
				key, err := d.decodeExpr(property.Key)
				if err != nil {
					return js_ast.Binding{}, err
				}
				propertyBinding.Key = key
			} else if property.Name != "" {
				propertyBinding.Key = js_ast.Expr{Loc: logger.Loc{Start: -1}, Data: &js_ast.EString{Value: property.Name}}
			}
			if property.Value != nil {
				defaultValue, err := d.decodeExpr(property.Value)
				if err != nil {
					return js_ast.Binding{}, err
				}
				propertyBinding.DefaultOrNil = defaultValue
			}
			properties = append(properties, propertyBinding)
		}
		return js_ast.Binding{Loc: loc, Data: &js_ast.BObject{Properties: properties}}, nil

	default:
		return js_ast.Binding{}, fmt.Errorf("unknown binding type %q", node.Type)
	}
}

func (d *nodeDecoder) decodeStmt(raw json.RawMessage) (js_ast.Stmt, error) {
	var node rawNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return js_ast.Stmt{}, err
	}
	loc := d.loc(&node)

	switch node.Type {
	case "empty":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}}, nil

	case "raw":
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SRaw{Source: node.Source}}, nil

	case "expr":
		value, err := d.decodeExpr(node.Value)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: value}}, nil

	case "local":
		kind := js_ast.LocalVar
		switch node.Kind {
		case "", "var":
		case "let":
			kind = js_ast.LocalLet
		case "const":
			kind = js_ast.LocalConst
		default:
			return js_ast.Stmt{}, fmt.Errorf("unknown local kind %q", node.Kind)
		}
		decls := make([]js_ast.Decl, 0, len(node.Decls))
		for _, rawDecl := range node.Decls {
			var declNode rawNode
			if err := json.Unmarshal(rawDecl, &declNode); err != nil {
				return js_ast.Stmt{}, err
			}
			binding, err := d.decodeBinding(declNode.Binding)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			decl := js_ast.Decl{Binding: binding}
			if declNode.Value != nil {
				value, err := d.decodeExpr(declNode.Value)
				if err != nil {
					return js_ast.Stmt{}, err
				}
				decl.ValueOrNil = value
			}
			decls = append(decls, decl)
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: kind, Decls: decls, IsExport: node.Export}}, nil

	case "function":
		fn, err := d.decodeFn(&node)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn, IsExport: node.Export}}, nil

	case "class":
		class, err := d.decodeClass(&node)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: class, IsExport: node.Export}}, nil

	case "if":
		test, err := d.decodeExpr(node.Test)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		yes, err := d.decodeStmt(node.Yes)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		stmt := &js_ast.SIf{Test: test, Yes: yes}
		if node.No != nil {
			no, err := d.decodeStmt(node.No)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.NoOrNil = no
		}
		return js_ast.Stmt{Loc: loc, Data: stmt}, nil

	case "return":
		stmt := &js_ast.SReturn{}
		if node.Value != nil {
			value, err := d.decodeExpr(node.Value)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.ValueOrNil = value
		}
		return js_ast.Stmt{Loc: loc, Data: stmt}, nil

	case "throw":
		value, err := d.decodeExpr(node.Value)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: value}}, nil

	case "block":
		stmts, err := d.decodeStmts(node.Body)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: stmts}}, nil

	case "for":
		stmt := &js_ast.SFor{}
		if node.Init != nil {
			init, err := d.decodeStmt(node.Init)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.InitOrNil = init
		}
		if node.Test != nil {
			test, err := d.decodeExpr(node.Test)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.TestOrNil = test
		}
		if node.Update != nil {
			update, err := d.decodeExpr(node.Update)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.UpdateOrNil = update
		}
		if len(node.Body) != 1 {
			return js_ast.Stmt{}, fmt.Errorf("loop body must be a single statement")
		}
		body, err := d.decodeStmt(node.Body[0])
		if err != nil {
			return js_ast.Stmt{}, err
		}
		stmt.Body = body
		return js_ast.Stmt{Loc: loc, Data: stmt}, nil

	case "while":
		test, err := d.decodeExpr(node.Test)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		if len(node.Body) != 1 {
			return js_ast.Stmt{}, fmt.Errorf("loop body must be a single statement")
		}
		body, err := d.decodeStmt(node.Body[0])
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: body}}, nil

	case "import":
		if node.Record == nil {
			return js_ast.Stmt{}, fmt.Errorf("import statement without record")
		}
		stmt := &js_ast.SImport{
			DefaultRef:        ast.InvalidRef,
			NamespaceRef:      ast.InvalidRef,
			ImportRecordIndex: *node.Record,
		}
		items, err := d.decodeClauseItems(node.Clause)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		stmt.Items = items
		if node.Default != nil {
			stmt.DefaultRef = ast.Ref{SourceIndex: d.sourceIndex, InnerIndex: *node.Default}
		}
		if node.Symbol != nil {
			ref, err := d.ref(&node)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.NamespaceRef = ref
		}
		return js_ast.Stmt{Loc: loc, Data: stmt}, nil

	case "exportClause":
		items, err := d.decodeClauseItems(node.Clause)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportClause{Items: items}}, nil

	case "exportFrom":
		if node.Record == nil {
			return js_ast.Stmt{}, fmt.Errorf("export-from statement without record")
		}
		items, err := d.decodeClauseItems(node.Clause)
		if err != nil {
			return js_ast.Stmt{}, err
		}
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExportFrom{Items: items, ImportRecordIndex: *node.Record}}, nil

	case "exportStar":
		if node.Record == nil {
			return js_ast.Stmt{}, fmt.Errorf("export-star statement without record")
		}
		stmt := &js_ast.SExportStar{Alias: node.Alias, NamespaceRef: ast.InvalidRef, ImportRecordIndex: *node.Record}
		if node.Symbol != nil {
			ref, err := d.ref(&node)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.NamespaceRef = ref
		}
		return js_ast.Stmt{Loc: loc, Data: stmt}, nil

	case "exportDefault":
		stmt := &js_ast.SExportDefault{DefaultName: ast.InvalidRef}
		if node.Symbol != nil {
			ref, err := d.ref(&node)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.DefaultName = ref
		}
		switch {
		case node.Fn != nil:
			inner, err := d.decodeStmt(node.Fn)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.Value.Stmt = &inner
		case node.Class != nil:
			inner, err := d.decodeStmt(node.Class)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.Value.Stmt = &inner
		case node.Value != nil:
			value, err := d.decodeExpr(node.Value)
			if err != nil {
				return js_ast.Stmt{}, err
			}
			stmt.Value.Expr = value
		default:
			return js_ast.Stmt{}, fmt.Errorf("export-default statement without value")
		}
		return js_ast.Stmt{Loc: loc, Data: stmt}, nil

	default:
		return js_ast.Stmt{}, fmt.Errorf("unknown statement type %q", node.Type)
	}
}

func (d *nodeDecoder) decodeClauseItems(raws []json.RawMessage) ([]js_ast.ClauseItem, error) {
	if raws == nil {
		return nil, nil
	}
	items := make([]js_ast.ClauseItem, 0, len(raws))
	for _, raw := range raws {
		var node rawNode
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, err
		}
		ref, err := d.ref(&node)
		if err != nil {
			return nil, err
		}
		items = append(items, js_ast.ClauseItem{Alias: node.Alias, Ref: ref})
	}
	return items, nil
}
