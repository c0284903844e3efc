package linker

// The per-module AST finalizer. Runs once per included module with its
// chunk's canonical-names map available (through the symbol database):
// unused statements are dropped, import/export statements are stripped or
// desugared, the namespace-object declaration is synthesized when the
// tree shaker included it, and every expression that references a linked
// symbol is rewritten to its output form.

import (
	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
	"github.com/tinypack/tinypack/internal/js_ast"
)

type finalizer struct {
	c           *linkerContext
	sourceIndex uint32
	repr        *graph.NormalRepr
	chunkIndex  uint32
	chunk       *chunkInfo

	// Local symbols whose namespace alias property is "default" and whose
	// importee is a normal module. Calls through these must not pick up the
	// namespace object as "this".
	defaultAliasRefs map[ast.Ref]bool
}

func (c *linkerContext) finalizeModule(sourceIndex uint32, chunkIndex uint32) []js_ast.Stmt {
	repr, _ := c.graph.Modules[sourceIndex].Normal()
	f := finalizer{
		c:           c,
		sourceIndex: sourceIndex,
		repr:        repr,
		chunkIndex:  chunkIndex,
		chunk:       &c.chunks[chunkIndex],
	}

	f.defaultAliasRefs = make(map[ast.Ref]bool)
	for ref, namedImport := range repr.NamedImports {
		record := &(*repr.ImportRecords())[namedImport.ImportRecordIndex]
		if _, ok := c.graph.Modules[record.SourceIndex.GetIndex()].Normal(); !ok {
			continue
		}
		if alias := c.graph.Symbols.Get(ref).NamespaceAlias; alias != nil && alias.Alias == "default" {
			f.defaultAliasRefs[ref] = true
		}
	}

	stmts := f.removeUnusedTopLevelStmts()
	for i := range stmts {
		stmts[i] = f.visitStmt(stmts[i])
	}

	// The synthesized namespace statements are built from already-final
	// expressions, so they are prepended after the rewrite walk
	if repr.StmtInfos[0].IsIncluded {
		stmts = append(f.namespaceDeclStmts(), stmts...)
	}
	return stmts
}

func (f *finalizer) removeUnusedTopLevelStmts() []js_ast.Stmt {
	var stmts []js_ast.Stmt

	for i, stmt := range f.repr.Stmts {
		if !f.repr.StmtInfos[i+1].IsIncluded {
			continue
		}

		switch s := stmt.Data.(type) {
		case *js_ast.SImport, *js_ast.SExportStar, *js_ast.SExportFrom, *js_ast.SExportClause:
			// Carried by chunk-level wiring now

		case *js_ast.SExportDefault:
			if s.Value.Stmt != nil {
				switch s2 := s.Value.Stmt.Data.(type) {
				case *js_ast.SFunction:
					if !s2.Fn.Name.IsValid() {
						s2.Fn.Name = f.defaultNameRef(s)
					}
					stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SFunction{Fn: s2.Fn}})
				case *js_ast.SClass:
					if !s2.Class.Name.IsValid() {
						s2.Class.Name = f.defaultNameRef(s)
					}
					stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SClass{Class: s2.Class}})
				default:
					panic("Internal error")
				}
			} else {
				// "export default EXPR" => "var <default> = EXPR"
				stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SLocal{
					Kind: js_ast.LocalVar,
					Decls: []js_ast.Decl{{
						Binding:    js_ast.Binding{Loc: stmt.Loc, Data: &js_ast.BIdentifier{Ref: f.defaultNameRef(s)}},
						ValueOrNil: s.Value.Expr,
					}},
				}})
			}

		case *js_ast.SLocal:
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &clone})
			} else {
				stmts = append(stmts, stmt)
			}

		case *js_ast.SFunction:
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &clone})
			} else {
				stmts = append(stmts, stmt)
			}

		case *js_ast.SClass:
			if s.IsExport {
				clone := *s
				clone.IsExport = false
				stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &clone})
			} else {
				stmts = append(stmts, stmt)
			}

		default:
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (f *finalizer) defaultNameRef(s *js_ast.SExportDefault) ast.Ref {
	if s.DefaultName.IsValid() {
		return s.DefaultName
	}
	return f.repr.DefaultExportRef
}

// namespaceDeclStmts synthesizes
//
//	var ns = {};
//	__export(ns, { name: () => value, ... });
//	[import * as alias from "ext"; __reExport(ns, alias);]  (ESM)
//	[__reExport(ns, require("ext"));]                       (CJS)
func (f *finalizer) namespaceDeclStmts() []js_ast.Stmt {
	g := f.c.graph
	nsRef := f.repr.NamespaceRef

	stmts := []js_ast.Stmt{{Data: &js_ast.SLocal{
		Kind: js_ast.LocalVar,
		Decls: []js_ast.Decl{{
			Binding:    js_ast.Binding{Data: &js_ast.BIdentifier{Ref: nsRef}},
			ValueOrNil: js_ast.Expr{Data: &js_ast.EObject{}},
		}},
	}}}

	if len(f.repr.Meta.SortedResolvedExports) > 0 {
		properties := make([]js_ast.Property, 0, len(f.repr.Meta.SortedResolvedExports))
		for _, name := range f.repr.Meta.SortedResolvedExports {
			value := f.finalizedExprForSymbol(f.repr.Meta.ResolvedExports[name].Ref, false)
			properties = append(properties, js_ast.Property{
				Key:        js_ast.Expr{Data: &js_ast.EString{Value: name}},
				ValueOrNil: js_ast.Expr{Data: &js_ast.EArrow{PreferExpr: true, Body: []js_ast.Stmt{{Data: &js_ast.SReturn{ValueOrNil: value}}}}},
			})
		}
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.ECall{
			Target: f.finalizedExprForSymbol(g.RuntimeSymbol("__export"), false),
			Args: []js_ast.Expr{
				{Data: &js_ast.EIdentifier{Ref: nsRef}},
				{Data: &js_ast.EObject{Properties: properties}},
			},
		}}}})
	}

	for _, recordIndex := range f.repr.Meta.StarExportsFromExternalModules {
		record := &(*f.repr.ImportRecords())[recordIndex]
		external := &g.Modules[record.SourceIndex.GetIndex()]
		reExport := f.finalizedExprForSymbol(g.RuntimeSymbol("__reExport"), false)

		if f.c.options.Format.KeepsImportExportSyntax() {
			stmts = append(stmts,
				js_ast.Stmt{Data: &js_ast.SImport{
					NamespaceRef:      record.NamespaceRef,
					ImportRecordIndex: recordIndex,
				}},
				js_ast.Stmt{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.ECall{
					Target: reExport,
					Args: []js_ast.Expr{
						{Data: &js_ast.EIdentifier{Ref: nsRef}},
						{Data: &js_ast.EIdentifier{Ref: record.NamespaceRef}},
					},
				}}}})
		} else {
			stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.ECall{
				Target: reExport,
				Args: []js_ast.Expr{
					{Data: &js_ast.EIdentifier{Ref: nsRef}},
					{Data: &js_ast.ECall{
						Target: js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "require"}},
						Args:   []js_ast.Expr{{Data: &js_ast.EString{Value: external.StableID}}},
					}},
				},
			}}}})
		}
	}

	return stmts
}

// finalizedExprForSymbol computes the output expression for a reference to
// a top-level symbol: the canonical name, a property access off a
// namespace, or a cross-chunk require access in CommonJS output.
func (f *finalizer) finalizedExprForSymbol(ref ast.Ref, preserveThis bool) js_ast.Expr {
	g := f.c.graph

	canonical := g.Symbols.CanonicalRef(ref)
	symbol := g.Symbols.Get(canonical)
	alias := symbol.NamespaceAlias
	if alias != nil {
		canonical = g.Symbols.CanonicalRef(alias.NamespaceRef)
		symbol = g.Symbols.Get(canonical)
	}

	var expr js_ast.Expr
	if _, isExternal := g.Modules[canonical.SourceIndex].External(); !isExternal &&
		f.c.options.Format == config.FormatCommonJS &&
		symbol.ChunkIndex.IsValid() && symbol.ChunkIndex.GetIndex() != f.chunkIndex {
		// Live bindings across chunks in CJS go through the require binding
		importeeChunk := symbol.ChunkIndex.GetIndex()
		expr = js_ast.Expr{Data: &js_ast.EDot{
			Target: js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: f.chunk.requireBindingNames[importeeChunk]}},
			Name:   f.c.chunks[importeeChunk].exportsToOtherChunks[canonical],
		}}
	} else {
		expr = js_ast.Expr{Data: &js_ast.EIdentifier{Ref: canonical}}
	}

	if alias != nil {
		expr = js_ast.Expr{Data: &js_ast.EDot{Target: expr, Name: alias.Alias}}
		if preserveThis {
			expr = js_ast.Expr{Data: &js_ast.EBinary{
				Op:    js_ast.BinOpComma,
				Left:  js_ast.Expr{Data: &js_ast.ENumber{Value: 0}},
				Right: expr,
			}}
		}
	}
	return expr
}

func (f *finalizer) visitStmts(stmts []js_ast.Stmt) []js_ast.Stmt {
	for i := range stmts {
		stmts[i] = f.visitStmt(stmts[i])
	}
	return stmts
}

func (f *finalizer) visitStmt(stmt js_ast.Stmt) js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SExpr:
		s.Value = f.visitExpr(s.Value)

	case *js_ast.SLocal:
		for i := range s.Decls {
			s.Decls[i].Binding = f.visitBinding(s.Decls[i].Binding)
			if s.Decls[i].ValueOrNil.Data != nil {
				s.Decls[i].ValueOrNil = f.visitExpr(s.Decls[i].ValueOrNil)
			}
		}

	case *js_ast.SFunction:
		f.visitFn(&s.Fn)

	case *js_ast.SClass:
		f.visitClass(&s.Class)

	case *js_ast.SIf:
		s.Test = f.visitExpr(s.Test)
		s.Yes = f.visitStmt(s.Yes)
		if s.NoOrNil.Data != nil {
			s.NoOrNil = f.visitStmt(s.NoOrNil)
		}

	case *js_ast.SReturn:
		if s.ValueOrNil.Data != nil {
			s.ValueOrNil = f.visitExpr(s.ValueOrNil)
		}

	case *js_ast.SThrow:
		s.Value = f.visitExpr(s.Value)

	case *js_ast.SBlock:
		s.Stmts = f.visitStmts(s.Stmts)

	case *js_ast.SFor:
		if s.InitOrNil.Data != nil {
			s.InitOrNil = f.visitStmt(s.InitOrNil)
		}
		if s.TestOrNil.Data != nil {
			s.TestOrNil = f.visitExpr(s.TestOrNil)
		}
		if s.UpdateOrNil.Data != nil {
			s.UpdateOrNil = f.visitExpr(s.UpdateOrNil)
		}
		s.Body = f.visitStmt(s.Body)

	case *js_ast.SWhile:
		s.Test = f.visitExpr(s.Test)
		s.Body = f.visitStmt(s.Body)
	}
	return stmt
}

func (f *finalizer) visitFn(fn *js_ast.Fn) {
	for i := range fn.Args {
		fn.Args[i].Binding = f.visitBinding(fn.Args[i].Binding)
		if fn.Args[i].DefaultOrNil.Data != nil {
			fn.Args[i].DefaultOrNil = f.visitExpr(fn.Args[i].DefaultOrNil)
		}
	}
	fn.Body = f.visitStmts(fn.Body)
}

func (f *finalizer) visitClass(class *js_ast.Class) {
	if class.ExtendsOrNil.Data != nil {
		class.ExtendsOrNil = f.visitExpr(class.ExtendsOrNil)
	}
	for i := range class.Properties {
		if class.Properties[i].ValueOrNil.Data != nil {
			class.Properties[i].ValueOrNil = f.visitExpr(class.Properties[i].ValueOrNil)
		}
	}
}

func (f *finalizer) visitBinding(binding js_ast.Binding) js_ast.Binding {
	switch b := binding.Data.(type) {
	case *js_ast.BArray:
		for i := range b.Items {
			b.Items[i].Binding = f.visitBinding(b.Items[i].Binding)
			if b.Items[i].DefaultOrNil.Data != nil {
				b.Items[i].DefaultOrNil = f.visitExpr(b.Items[i].DefaultOrNil)
			}
		}
	case *js_ast.BObject:
		for i := range b.Properties {
			b.Properties[i].Value = f.visitBinding(b.Properties[i].Value)
			if b.Properties[i].DefaultOrNil.Data != nil {
				b.Properties[i].DefaultOrNil = f.visitExpr(b.Properties[i].DefaultOrNil)
			}
		}
	}
	return binding
}

func (f *finalizer) visitExpr(expr js_ast.Expr) js_ast.Expr {
	switch e := expr.Data.(type) {
	case *js_ast.EIdentifier:
		if e.Ref.IsValid() && f.c.graph.Symbols.Get(e.Ref).IsTopLevel() {
			return f.finalizedExprForSymbol(e.Ref, false)
		}

	case *js_ast.EDot:
		if replacement, ok := f.maybeRewriteMemberExpr(expr); ok {
			return replacement
		}
		e.Target = f.visitExpr(e.Target)

	case *js_ast.EIndex:
		if replacement, ok := f.maybeRewriteMemberExpr(expr); ok {
			return replacement
		}
		e.Target = f.visitExpr(e.Target)
		e.Index = f.visitExpr(e.Index)

	case *js_ast.ECall:
		if id, ok := e.Target.Data.(*js_ast.EIdentifier); ok && f.defaultAliasRefs[id.Ref] {
			// Break "this" binding at the call site: "(0, ns.default)(...)"
			e.Target = f.finalizedExprForSymbol(id.Ref, true)
		} else {
			e.Target = f.visitExpr(e.Target)
		}
		for i := range e.Args {
			e.Args[i] = f.visitExpr(e.Args[i])
		}

	case *js_ast.ENew:
		e.Target = f.visitExpr(e.Target)
		for i := range e.Args {
			e.Args[i] = f.visitExpr(e.Args[i])
		}

	case *js_ast.EImportCall:
		return f.rewriteDynamicImport(expr, e)

	case *js_ast.EBinary:
		e.Left = f.visitExpr(e.Left)
		e.Right = f.visitExpr(e.Right)

	case *js_ast.EUnary:
		e.Value = f.visitExpr(e.Value)

	case *js_ast.EIf:
		e.Test = f.visitExpr(e.Test)
		e.Yes = f.visitExpr(e.Yes)
		e.No = f.visitExpr(e.No)

	case *js_ast.ESpread:
		e.Value = f.visitExpr(e.Value)

	case *js_ast.EArray:
		for i := range e.Items {
			e.Items[i] = f.visitExpr(e.Items[i])
		}

	case *js_ast.EObject:
		for i := range e.Properties {
			property := &e.Properties[i]
			if property.Kind == js_ast.PropertyNormal && property.WasShorthand {
				// "{ a }" must become "{ a: ns.a }" if the value is rewritten to
				// something that is no longer an identifier
				visited := f.visitExpr(property.ValueOrNil)
				if _, stillIdentifier := visited.Data.(*js_ast.EIdentifier); !stillIdentifier {
					property.WasShorthand = false
				}
				property.ValueOrNil = visited
				continue
			}
			if _, isString := property.Key.Data.(*js_ast.EString); !isString {
				property.Key = f.visitExpr(property.Key)
			}
			if property.ValueOrNil.Data != nil {
				property.ValueOrNil = f.visitExpr(property.ValueOrNil)
			}
		}

	case *js_ast.EArrow:
		for i := range e.Args {
			e.Args[i].Binding = f.visitBinding(e.Args[i].Binding)
			if e.Args[i].DefaultOrNil.Data != nil {
				e.Args[i].DefaultOrNil = f.visitExpr(e.Args[i].DefaultOrNil)
			}
		}
		e.Body = f.visitStmts(e.Body)

	case *js_ast.EFunction:
		f.visitFn(&e.Fn)

	case *js_ast.EClass:
		f.visitClass(&e.Class)
	}
	return expr
}

// maybeRewriteMemberExpr applies a precomputed member-expression
// resolution, or the import.meta polyfills for node CJS output.
func (f *finalizer) maybeRewriteMemberExpr(expr js_ast.Expr) (js_ast.Expr, bool) {
	if resolution, ok := f.repr.Meta.ResolvedMemberExprs[expr.Loc]; ok {
		var out js_ast.Expr
		props := resolution.Props
		if resolution.Ref.IsValid() {
			out = f.finalizedExprForSymbol(resolution.Ref, false)
		} else {
			// The chain hit a missing or ambiguous export: the first residual
			// property is the undefined value itself
			out = js_ast.Expr{Data: &js_ast.EUnary{Op: js_ast.UnOpVoid, Value: js_ast.Expr{Data: &js_ast.ENumber{Value: 0}}}}
			if len(props) > 0 {
				props = props[1:]
			}
		}
		for _, prop := range props {
			out = js_ast.Expr{Data: &js_ast.EDot{Target: out, Name: prop}}
		}
		return out, true
	}

	if dot, ok := expr.Data.(*js_ast.EDot); ok {
		if _, isMeta := dot.Target.Data.(*js_ast.EImportMeta); isMeta {
			isNodeCJS := f.c.options.Platform == config.PlatformNode &&
				f.c.options.Format == config.FormatCommonJS
			if isNodeCJS {
				switch dot.Name {
				case "url":
					// require('url').pathToFileURL(__filename).href
					return js_ast.Expr{Data: &js_ast.EDot{
						Target: js_ast.Expr{Data: &js_ast.ECall{
							Target: js_ast.Expr{Data: &js_ast.EDot{
								Target: js_ast.Expr{Data: &js_ast.ECall{
									Target: js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "require"}},
									Args:   []js_ast.Expr{{Data: &js_ast.EString{Value: "url"}}},
								}},
								Name: "pathToFileURL",
							}},
							Args: []js_ast.Expr{{Data: &js_ast.ENamedIdentifier{Name: "__filename"}}},
						}},
						Name: "href",
					}}, true
				case "dirname":
					return js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "__dirname"}}, true
				case "filename":
					return js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "__filename"}}, true
				}
			}
		}
	}

	return js_ast.Expr{}, false
}

func (f *finalizer) rewriteDynamicImport(expr js_ast.Expr, e *js_ast.EImportCall) js_ast.Expr {
	g := f.c.graph

	recordIndex, ok := f.repr.ImportsBySpan[expr.Loc]
	if !ok {
		e.Expr = f.visitExpr(e.Expr)
		return expr
	}
	record := &(*f.repr.ImportRecords())[recordIndex]
	importeeIndex := record.SourceIndex.GetIndex()

	if _, isExternal := g.Modules[importeeIndex].External(); isExternal {
		e.Expr = js_ast.Expr{Data: &js_ast.EString{Value: g.Modules[importeeIndex].StableID}}
		return expr
	}

	importeeChunkIndex, hasChunk := f.c.entryModuleToChunk[importeeIndex]
	if !hasChunk {
		// Inlined dynamic import: the importee shares this chunk, so the
		// promise resolves to its namespace object directly
		return js_ast.Expr{Data: &js_ast.ECall{
			Target: js_ast.Expr{Data: &js_ast.EDot{
				Target: js_ast.Expr{Data: &js_ast.ECall{
					Target: js_ast.Expr{Data: &js_ast.EDot{
						Target: js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "Promise"}},
						Name:   "resolve",
					}},
				}},
				Name: "then",
			}},
			Args: []js_ast.Expr{{Data: &js_ast.EArrow{
				PreferExpr: true,
				Body: []js_ast.Stmt{{Data: &js_ast.SReturn{
					ValueOrNil: f.finalizedExprForSymbol(f.importeeNamespaceRef(importeeIndex), false),
				}}},
			}}},
		}}
	}

	importPath := helpers.RelativeImportPath(f.chunk.relPath, f.c.chunks[importeeChunkIndex].relPath)

	if f.c.options.Format.KeepsImportExportSyntax() {
		e.Expr = js_ast.Expr{Data: &js_ast.EString{Value: importPath}}
		return expr
	}

	// CJS: Promise.resolve().then(function() { return require("<rel>"); })
	return js_ast.Expr{Data: &js_ast.ECall{
		Target: js_ast.Expr{Data: &js_ast.EDot{
			Target: js_ast.Expr{Data: &js_ast.ECall{
				Target: js_ast.Expr{Data: &js_ast.EDot{
					Target: js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "Promise"}},
					Name:   "resolve",
				}},
			}},
			Name: "then",
		}},
		Args: []js_ast.Expr{{Data: &js_ast.EFunction{Fn: js_ast.Fn{
			Name: ast.InvalidRef,
			Body: []js_ast.Stmt{{Data: &js_ast.SReturn{ValueOrNil: js_ast.Expr{Data: &js_ast.ECall{
				Target: js_ast.Expr{Data: &js_ast.ENamedIdentifier{Name: "require"}},
				Args:   []js_ast.Expr{{Data: &js_ast.EString{Value: importPath}}},
			}}}}},
		}}}},
	}}
}

func (f *finalizer) importeeNamespaceRef(importeeIndex uint32) ast.Ref {
	repr, _ := f.c.graph.Modules[importeeIndex].Normal()
	return repr.NamespaceRef
}
