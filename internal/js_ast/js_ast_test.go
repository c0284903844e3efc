package js_ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinypack/tinypack/internal/ast"
)

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("foo"))
	assert.True(t, IsIdentifier("$foo$"))
	assert.True(t, IsIdentifier("_x1"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("1x"))
	assert.False(t, IsIdentifier("react-dom"))
	assert.False(t, IsIdentifier("a.b"))
}

func TestLegitimizeIdentifier(t *testing.T) {
	assert.Equal(t, "foo", LegitimizeIdentifier("foo"))
	assert.Equal(t, "react_dom", LegitimizeIdentifier("react-dom"))
	assert.Equal(t, "_111a", LegitimizeIdentifier("111a"))
	assert.Equal(t, "_", LegitimizeIdentifier(""))
	assert.Equal(t, "_utils_index", LegitimizeIdentifier("/utils/index"))
}

func makeTestSymbolMap() SymbolMap {
	sm := NewSymbolMap(2)
	sm.SymbolsForSource[0] = []Symbol{
		{OriginalName: "a", Link: ast.InvalidRef, Kind: SymbolHoisted},
		{OriginalName: "b", Link: ast.InvalidRef, Kind: SymbolHoisted},
	}
	sm.SymbolsForSource[1] = []Symbol{
		{OriginalName: "c", Link: ast.InvalidRef, Kind: SymbolHoisted},
	}
	return sm
}

func TestSymbolMapLinking(t *testing.T) {
	sm := makeTestSymbolMap()
	a := ast.Ref{SourceIndex: 0, InnerIndex: 0}
	b := ast.Ref{SourceIndex: 0, InnerIndex: 1}
	c := ast.Ref{SourceIndex: 1, InnerIndex: 0}

	require.Equal(t, a, sm.CanonicalRef(a))

	sm.Link(a, c)
	require.Equal(t, c, sm.CanonicalRef(a))
	require.Equal(t, c, FollowSymbols(sm, a))

	// Linking through an already-linked symbol lands on the same canonical
	sm.Link(b, a)
	require.Equal(t, c, sm.CanonicalRef(b))

	// Re-linking two members of the same class is a no-op; no cycle forms
	sm.Link(c, b)
	require.Equal(t, c, sm.CanonicalRef(a))
	require.Equal(t, c, sm.CanonicalRef(b))
	require.Equal(t, c, sm.CanonicalRef(c))
}

func TestSymbolMapCanonicalName(t *testing.T) {
	sm := makeTestSymbolMap()
	a := ast.Ref{SourceIndex: 0, InnerIndex: 0}
	c := ast.Ref{SourceIndex: 1, InnerIndex: 0}
	sm.Link(a, c)

	names := map[ast.Ref]string{c: "c$1"}
	require.Equal(t, "c$1", sm.CanonicalName(a, names))
	require.Equal(t, "b", sm.CanonicalName(ast.Ref{SourceIndex: 0, InnerIndex: 1}, names))
}

func TestCreateFacade(t *testing.T) {
	sm := makeTestSymbolMap()
	ref := sm.CreateFacade(1, "ns")
	require.Equal(t, uint32(1), ref.SourceIndex)
	require.Equal(t, uint32(1), ref.InnerIndex)
	symbol := sm.Get(ref)
	require.Equal(t, "ns", symbol.OriginalName)
	require.Equal(t, SymbolFacade, symbol.Kind)
	require.True(t, symbol.IsTopLevel())
}
