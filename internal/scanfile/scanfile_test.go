package scanfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/logger"
	"github.com/tinypack/tinypack/internal/runtime"
)

const snapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    },
    {"id": "fs", "external": true}
  ],
  "entryPoints": [{"module": 0, "name": "main"}]
}`

func TestDecode(t *testing.T) {
	g, err := Decode([]byte(snapshot))
	require.NoError(t, err)

	// Two snapshot modules plus the synthesized runtime module
	require.Len(t, g.Modules, 3)
	require.Equal(t, uint32(2), g.RuntimeSourceIndex)
	require.Equal(t, runtime.StableID, g.Modules[2].StableID)

	entry := &g.Modules[0]
	require.Equal(t, "entry.js", entry.StableID)
	repr, ok := entry.Normal()
	require.True(t, ok)
	require.Equal(t, graph.ExportsESM, repr.ExportsKind)
	require.False(t, entry.SideEffects.Has())

	// The reserved namespace slot plus one real statement
	require.Len(t, repr.StmtInfos, 2)
	require.Len(t, repr.Stmts, 1)
	local, ok := repr.Stmts[0].Data.(*js_ast.SLocal)
	require.True(t, ok)
	require.Equal(t, js_ast.LocalConst, local.Kind)
	require.True(t, local.IsExport)

	// Facade symbols were appended after the declared ones
	nsSymbol := g.Symbols.Get(repr.NamespaceRef)
	assert.Equal(t, js_ast.SymbolFacade, nsSymbol.Kind)
	assert.Equal(t, "entry_exports", nsSymbol.OriginalName)

	external := &g.Modules[1]
	externalRepr, ok := external.External()
	require.True(t, ok)
	assert.Equal(t, "import_fs", g.Symbols.Get(externalRepr.NamespaceRef).OriginalName)

	require.Len(t, g.EntryPoints, 1)
	assert.Equal(t, "main", g.EntryPoints[0].Name)
	assert.Equal(t, graph.EntryPointUserDefined, g.EntryPoints[0].Kind)

	// Runtime helpers resolve
	ref := g.RuntimeSymbol("__export")
	assert.Equal(t, g.RuntimeSourceIndex, ref.SourceIndex)
	assert.Equal(t, "__export", g.Symbols.Get(ref).OriginalName)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	_, err := Decode([]byte("not json"))
	require.Error(t, err)

	_, err = Decode([]byte(`{"modules": []}`))
	require.ErrorContains(t, err, "no modules")

	_, err = Decode([]byte(`{"modules": [{"id": "a.js", "symbols": [], "stmts": [{"type": "nope"}], "stmtInfos": [{}]}]}`))
	require.ErrorContains(t, err, "unknown statement type")

	_, err = Decode([]byte(`{"modules": [{"id": "a.js", "symbols": [], "stmts": [], "stmtInfos": [{}]}]}`))
	require.ErrorContains(t, err, "statement infos")

	_, err = Decode([]byte(`{"modules": [{"id": "a.js", "symbols": [], "namedExports": [{"alias": "x", "symbol": 9}], "stmts": [], "stmtInfos": []}]}`))
	require.ErrorContains(t, err, "out of range")
}

func TestDecodeSpans(t *testing.T) {
	data := `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm",
      "symbols": [],
      "importRecords": [{"path": "./a.js", "kind": "dynamic", "module": 0, "span": 5}],
      "stmts": [{"type": "expr", "value": {"type": "import", "span": 5, "expr": {"type": "string", "str": "./a.js"}}}],
      "stmtInfos": [{"records": [0], "sideEffect": true}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`
	g, err := Decode([]byte(data))
	require.NoError(t, err)

	repr, _ := g.Modules[0].Normal()
	recordIndex, ok := repr.ImportsBySpan[logger.Loc{Start: 5}]
	require.True(t, ok)
	require.Equal(t, uint32(0), recordIndex)

	// The decoded expression carries the same span
	expr := repr.Stmts[0].Data.(*js_ast.SExpr).Value
	importCall, ok := expr.Data.(*js_ast.EImportCall)
	require.True(t, ok)
	require.Equal(t, int32(5), expr.Loc.Start)
	_, isString := importCall.Expr.Data.(*js_ast.EString)
	require.True(t, isString)

	// Nodes without an explicit span get an invalid one
	require.Equal(t, int32(-1), importCall.Expr.Loc.Start)
}
