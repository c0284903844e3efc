package renamer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/js_ast"
)

func makeSymbols(names ...string) js_ast.SymbolMap {
	sm := js_ast.NewSymbolMap(1)
	for _, name := range names {
		sm.SymbolsForSource[0] = append(sm.SymbolsForSource[0], js_ast.Symbol{
			OriginalName: name,
			Link:         ast.InvalidRef,
			Kind:         js_ast.SymbolHoisted,
		})
	}
	return sm
}

func ref(i uint32) ast.Ref {
	return ast.Ref{SourceIndex: 0, InnerIndex: i}
}

func TestClaimsAreConflictFree(t *testing.T) {
	sm := makeSymbols("x", "x", "x")
	r := NewNumberRenamer(sm, config.FormatESModule)

	r.AddTopLevelSymbol(ref(0))
	r.AddTopLevelSymbol(ref(1))
	r.AddTopLevelSymbol(ref(2))

	require.Equal(t, "x", r.NameForSymbol(ref(0)))
	require.Equal(t, "x$1", r.NameForSymbol(ref(1)))
	require.Equal(t, "x$2", r.NameForSymbol(ref(2)))
}

func TestClaimIsIdempotentPerCanonical(t *testing.T) {
	sm := makeSymbols("x", "y")
	sm.Link(ref(1), ref(0))
	r := NewNumberRenamer(sm, config.FormatESModule)

	r.AddTopLevelSymbol(ref(1))
	r.AddTopLevelSymbol(ref(0))

	// Both resolve to the canonical symbol's single name
	require.Equal(t, r.NameForSymbol(ref(0)), r.NameForSymbol(ref(1)))
}

func TestReservedNamesNeverAssigned(t *testing.T) {
	sm := makeSymbols("Object", "class", "await")
	r := NewNumberRenamer(sm, config.FormatESModule)

	for i := uint32(0); i < 3; i++ {
		r.AddTopLevelSymbol(ref(i))
	}
	require.Equal(t, "Object$1", r.NameForSymbol(ref(0)))
	require.Equal(t, "class$1", r.NameForSymbol(ref(1)))
	require.Equal(t, "await$1", r.NameForSymbol(ref(2)))
}

func TestCommonJSNamesReserved(t *testing.T) {
	sm := makeSymbols("exports", "require")
	r := NewNumberRenamer(sm, config.FormatCommonJS)
	r.AddTopLevelSymbol(ref(0))
	r.AddTopLevelSymbol(ref(1))
	require.Equal(t, "exports$1", r.NameForSymbol(ref(0)))
	require.Equal(t, "require$1", r.NameForSymbol(ref(1)))

	// The same names are free in ESM output
	r2 := NewNumberRenamer(sm, config.FormatESModule)
	r2.AddTopLevelSymbol(ref(0))
	require.Equal(t, "exports", r2.NameForSymbol(ref(0)))
}

func TestReserve(t *testing.T) {
	sm := makeSymbols("myGlobal")
	r := NewNumberRenamer(sm, config.FormatESModule)
	r.Reserve("myGlobal")
	r.AddTopLevelSymbol(ref(0))
	require.Equal(t, "myGlobal$1", r.NameForSymbol(ref(0)))
}

func TestCreateConflictlessName(t *testing.T) {
	sm := makeSymbols("require_chunk")
	r := NewNumberRenamer(sm, config.FormatESModule)
	r.AddTopLevelSymbol(ref(0))

	require.Equal(t, "require_chunk$1", r.CreateConflictlessName("require_chunk"))
	require.Equal(t, "require_chunk$2", r.CreateConflictlessName("require_chunk"))
	require.Equal(t, "require_a_b", r.CreateConflictlessName("require_a-b"))
}

func TestUnclaimedSymbolKeepsSourceName(t *testing.T) {
	sm := makeSymbols("local")
	r := NewNumberRenamer(sm, config.FormatESModule)
	require.Equal(t, "local", r.NameForSymbol(ref(0)))
}
