package renamer

import (
	"strconv"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/js_ast"
)

// The printer asks a renamer for the output name of every symbol it
// prints. Symbols that were never claimed (nested scopes, unbound
// references) keep their source names.
type Renamer interface {
	NameForSymbol(ref ast.Ref) string
}

// NumberRenamer deconflicts the symbols visible in one chunk's top-level
// scope by appending "$1", "$2", … to colliding names. Reservations are
// added before any claim so generated names can never shadow an intended
// global or an output-format binding.
type NumberRenamer struct {
	symbols js_ast.SymbolMap

	// Presence means the name is taken in this chunk
	used map[string]bool

	// Base name -> next suffix worth trying, so repeated collisions on hot
	// names don't rescan from $1
	counts map[string]uint32

	names map[ast.Ref]string
}

func NewNumberRenamer(symbols js_ast.SymbolMap, format config.Format) *NumberRenamer {
	r := &NumberRenamer{
		symbols: symbols,
		used:    make(map[string]bool),
		counts:  make(map[string]uint32),
		names:   make(map[ast.Ref]string),
	}

	for name := range js_ast.Keywords {
		r.used[name] = true
	}
	for name := range js_ast.StrictModeReservedWords {
		r.used[name] = true
	}
	for _, name := range js_ast.KnownGlobals {
		r.used[name] = true
	}
	if format == config.FormatCommonJS {
		for _, name := range []string{"module", "require", "exports", "__filename", "__dirname"} {
			r.used[name] = true
		}
	}
	return r
}

// Reserve marks a name as unavailable without binding it to a symbol.
// Used for the unresolved references of every module in the chunk.
func (r *NumberRenamer) Reserve(name string) {
	r.used[name] = true
}

// AddTopLevelSymbol assigns a conflict-free name to the symbol's canonical
// representative. Claiming the same canonical twice is a no-op, so callers
// can feed overlapping symbol sets in any deterministic order. Renaming
// runs inside the per-chunk fan-out, so only the read-only canonical walk
// is used.
func (r *NumberRenamer) AddTopLevelSymbol(ref ast.Ref) {
	canonical := r.symbols.CanonicalRef(ref)
	if _, ok := r.names[canonical]; ok {
		return
	}
	base := js_ast.LegitimizeIdentifier(r.symbols.Get(canonical).OriginalName)
	r.names[canonical] = r.claim(base)
}

// CreateConflictlessName claims a name derived from a hint that is not a
// symbol, such as the require bindings that hold other chunks in CJS
// output.
func (r *NumberRenamer) CreateConflictlessName(hint string) string {
	return r.claim(js_ast.LegitimizeIdentifier(hint))
}

func (r *NumberRenamer) claim(base string) string {
	name := base
	count := r.counts[base]
	if count > 0 {
		name = base + "$" + strconv.FormatUint(uint64(count), 10)
	}
	for r.used[name] {
		count++
		name = base + "$" + strconv.FormatUint(uint64(count), 10)
	}
	r.counts[base] = count + 1
	r.used[name] = true
	return name
}

// NameForSymbol is called from the per-module finalize/print fan-out, so
// it must not mutate the symbol table; it uses the read-only walk.
func (r *NumberRenamer) NameForSymbol(ref ast.Ref) string {
	canonical := r.symbols.CanonicalRef(ref)
	if name, ok := r.names[canonical]; ok {
		return name
	}
	return r.symbols.Get(canonical).OriginalName
}

// CanonicalNames hands the finished map to the chunk so later stages can
// run without the renamer itself.
func (r *NumberRenamer) CanonicalNames() map[ast.Ref]string {
	return r.names
}
