package scanfile

// The scan stage runs out of process (parsing and scope analysis are not
// part of this module), so the CLI consumes its output as a JSON
// snapshot: a module table with statements encoded as tagged AST nodes,
// per-module symbol lists, import records, and entry points. This package
// decodes a snapshot into the graph the linker consumes.
//
// Spans are plain integers and must be unique per module wherever the
// scan recorded a member-expression or dynamic-import resolution; nodes
// without an explicit span get an invalid one so they can never collide.

import (
	"encoding/json"
	"fmt"

	"github.com/tinypack/tinypack/internal/ast"
	"github.com/tinypack/tinypack/internal/graph"
	"github.com/tinypack/tinypack/internal/helpers"
	"github.com/tinypack/tinypack/internal/js_ast"
	"github.com/tinypack/tinypack/internal/logger"
	"github.com/tinypack/tinypack/internal/runtime"
)

type jsonGraph struct {
	Modules     []jsonModule     `json:"modules"`
	EntryPoints []jsonEntryPoint `json:"entryPoints"`
}

type jsonEntryPoint struct {
	Module uint32 `json:"module"`
	Name   string `json:"name"`
	Kind   string `json:"kind"` // "user" (default) or "dynamic"
}

type jsonModule struct {
	ID       string `json:"id"`
	ReprName string `json:"reprName"`
	External bool   `json:"external"`

	// "", "true", "false", "user-true", "user-false", "no-treeshake"
	SideEffects string `json:"sideEffects"`

	// "", "none", "esm", "cjs"
	ExportsKind string `json:"exportsKind"`

	HasEval bool `json:"hasEval"`

	Symbols             []jsonSymbol `json:"symbols"`
	NamespaceSymbol     *uint32      `json:"namespaceSymbol"`
	DefaultExportSymbol *uint32      `json:"defaultExportSymbol"`

	ImportRecords []jsonImportRecord `json:"importRecords"`
	NamedImports  []jsonNamedImport  `json:"namedImports"`
	NamedExports  []jsonNamedExport  `json:"namedExports"`

	Stmts     []json.RawMessage `json:"stmts"`
	StmtInfos []jsonStmtInfo    `json:"stmtInfos"`
}

type jsonSymbol struct {
	Name string `json:"name"`

	// "hoisted" (default), "nested", "unbound", "facade"
	Kind string `json:"kind"`

	Const         bool `json:"const"`
	NotReassigned bool `json:"notReassigned"`
}

type jsonImportRecord struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"` // "stmt" (default) or "dynamic"
	Module uint32 `json:"module"`

	Plain      bool `json:"plain"`
	ExportStar bool `json:"exportStar"`

	NamespaceSymbol *uint32 `json:"namespaceSymbol"`

	// Span of the "import(...)" expression for dynamic records
	Span *int32 `json:"span"`
}

type jsonNamedImport struct {
	Symbol uint32 `json:"symbol"`
	Alias  string `json:"alias"` // "*" for star imports
	Record uint32 `json:"record"`
}

type jsonNamedExport struct {
	Alias  string `json:"alias"`
	Symbol uint32 `json:"symbol"`
}

type jsonStmtInfo struct {
	Declared   []uint32        `json:"declared"`
	Referenced []jsonReference `json:"referenced"`
	Records    []uint32        `json:"records"`
	SideEffect bool            `json:"sideEffect"`
}

type jsonReference struct {
	Symbol uint32  `json:"symbol"`
	Module *uint32 `json:"module"` // defaults to the owning module

	// Present for member-expression references
	Props []string `json:"props"`
	Span  int32    `json:"span"`
}

// Decode turns a scan snapshot into a linkable graph. The runtime module
// is synthesized and appended after the snapshot's modules.
func Decode(data []byte) (*graph.LinkerGraph, error) {
	var snapshot jsonGraph
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("invalid scan snapshot: %w", err)
	}
	if len(snapshot.Modules) == 0 {
		return nil, fmt.Errorf("scan snapshot contains no modules")
	}

	moduleCount := len(snapshot.Modules) + 1 // plus the runtime module
	symbols := js_ast.NewSymbolMap(moduleCount)
	modules := make([]graph.Module, 0, moduleCount)

	for sourceIndex := range snapshot.Modules {
		module, moduleSymbols, err := decodeModule(uint32(sourceIndex), &snapshot.Modules[sourceIndex])
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", snapshot.Modules[sourceIndex].ID, err)
		}
		modules = append(modules, module)
		symbols.SymbolsForSource[sourceIndex] = moduleSymbols
	}

	runtimeSourceIndex := uint32(len(modules))
	runtimeModule, runtimeSymbols, runtimeRefs := runtime.CreateModule(runtimeSourceIndex)
	modules = append(modules, runtimeModule)
	symbols.SymbolsForSource[runtimeSourceIndex] = runtimeSymbols

	var entryPoints []graph.EntryPoint
	for _, entry := range snapshot.EntryPoints {
		if int(entry.Module) >= len(snapshot.Modules) {
			return nil, fmt.Errorf("entry point refers to unknown module %d", entry.Module)
		}
		kind := graph.EntryPointUserDefined
		if entry.Kind == "dynamic" {
			kind = graph.EntryPointDynamicImport
		}
		entryPoints = append(entryPoints, graph.EntryPoint{
			SourceIndex: entry.Module,
			Name:        entry.Name,
			Kind:        kind,
		})
	}

	return graph.MakeLinkerGraph(modules, symbols, entryPoints, runtimeSourceIndex, runtimeRefs), nil
}

func decodeSideEffects(text string) (graph.SideEffects, error) {
	switch text {
	case "", "true":
		return graph.SideEffects{Kind: graph.SideEffectsAnalyzed, Value: true}, nil
	case "false":
		return graph.SideEffects{Kind: graph.SideEffectsAnalyzed, Value: false}, nil
	case "user-true":
		return graph.SideEffects{Kind: graph.SideEffectsUserDefined, Value: true}, nil
	case "user-false":
		return graph.SideEffects{Kind: graph.SideEffectsUserDefined, Value: false}, nil
	case "no-treeshake":
		return graph.SideEffects{Kind: graph.SideEffectsNoTreeShake}, nil
	default:
		return graph.SideEffects{}, fmt.Errorf("unknown side effects value %q", text)
	}
}

func decodeModule(sourceIndex uint32, m *jsonModule) (graph.Module, []js_ast.Symbol, error) {
	sideEffects, err := decodeSideEffects(m.SideEffects)
	if err != nil {
		return graph.Module{}, nil, err
	}

	moduleSymbols := make([]js_ast.Symbol, 0, len(m.Symbols)+2)
	for _, symbol := range m.Symbols {
		kind := js_ast.SymbolHoisted
		switch symbol.Kind {
		case "", "hoisted":
		case "nested":
			kind = js_ast.SymbolNested
		case "unbound":
			kind = js_ast.SymbolUnbound
		case "facade":
			kind = js_ast.SymbolFacade
		default:
			return graph.Module{}, nil, fmt.Errorf("unknown symbol kind %q", symbol.Kind)
		}
		var flags js_ast.SymbolFlags
		if symbol.Const {
			flags |= js_ast.IsConst
		}
		if symbol.NotReassigned {
			flags |= js_ast.IsNotReassigned
		}
		moduleSymbols = append(moduleSymbols, js_ast.Symbol{
			OriginalName: symbol.Name,
			Link:         ast.InvalidRef,
			Kind:         kind,
			Flags:        flags,
		})
	}

	ownRef := func(innerIndex uint32) (ast.Ref, error) {
		if int(innerIndex) >= len(moduleSymbols) {
			return ast.InvalidRef, fmt.Errorf("symbol index %d out of range", innerIndex)
		}
		return ast.Ref{SourceIndex: sourceIndex, InnerIndex: innerIndex}, nil
	}
	addFacade := func(name string) ast.Ref {
		ref := ast.Ref{SourceIndex: sourceIndex, InnerIndex: uint32(len(moduleSymbols))}
		moduleSymbols = append(moduleSymbols, js_ast.Symbol{
			OriginalName: name,
			Link:         ast.InvalidRef,
			Kind:         js_ast.SymbolFacade,
		})
		return ref
	}

	reprName := m.ReprName
	if reprName == "" {
		reprName = js_ast.LegitimizeIdentifier(helpers.FileStem(m.ID))
	}

	if m.External {
		repr := &graph.ExternalRepr{}
		if m.NamespaceSymbol != nil {
			ref, err := ownRef(*m.NamespaceSymbol)
			if err != nil {
				return graph.Module{}, nil, err
			}
			repr.NamespaceRef = ref
		} else {
			repr.NamespaceRef = addFacade("import_" + reprName)
		}
		return graph.Module{
			StableID:    m.ID,
			ReprName:    reprName,
			Repr:        repr,
			SideEffects: sideEffects,
		}, moduleSymbols, nil
	}

	repr := &graph.NormalRepr{
		NamedImports:  make(map[ast.Ref]js_ast.NamedImport, len(m.NamedImports)),
		NamedExports:  make(map[string]js_ast.NamedExport, len(m.NamedExports)),
		ImportsBySpan: make(map[logger.Loc]uint32),
	}

	switch m.ExportsKind {
	case "", "none":
		repr.ExportsKind = graph.ExportsNone
	case "esm":
		repr.ExportsKind = graph.ExportsESM
	case "cjs":
		repr.ExportsKind = graph.ExportsCommonJS
	default:
		return graph.Module{}, nil, fmt.Errorf("unknown exports kind %q", m.ExportsKind)
	}
	if m.HasEval {
		repr.Flags |= graph.ModuleHasEval
	}

	records := repr.ImportRecords()
	for recordIndex, record := range m.ImportRecords {
		kind := ast.ImportStmt
		switch record.Kind {
		case "", "stmt":
		case "dynamic":
			kind = ast.ImportDynamic
		default:
			return graph.Module{}, nil, fmt.Errorf("unknown import kind %q", record.Kind)
		}
		var flags ast.ImportRecordFlags
		if record.Plain {
			flags |= ast.IsPlainImport
		}
		if record.ExportStar {
			flags |= ast.IsExportStar
			repr.ExportStarImportRecords = append(repr.ExportStarImportRecords, uint32(recordIndex))
		}
		var namespaceRef ast.Ref
		if record.NamespaceSymbol != nil {
			if namespaceRef, err = ownRef(*record.NamespaceSymbol); err != nil {
				return graph.Module{}, nil, err
			}
		} else {
			namespaceRef = addFacade(reprName + "_import")
		}
		*records = append(*records, ast.ImportRecord{
			Path:         record.Path,
			Kind:         kind,
			SourceIndex:  ast.MakeIndex32(record.Module),
			NamespaceRef: namespaceRef,
			Flags:        flags,
		})
		if record.Span != nil {
			repr.ImportsBySpan[logger.Loc{Start: *record.Span}] = uint32(recordIndex)
		}
	}

	for _, namedImport := range m.NamedImports {
		ref, err := ownRef(namedImport.Symbol)
		if err != nil {
			return graph.Module{}, nil, err
		}
		if int(namedImport.Record) >= len(*records) {
			return graph.Module{}, nil, fmt.Errorf("import record index %d out of range", namedImport.Record)
		}
		repr.NamedImports[ref] = js_ast.NamedImport{
			Alias:             namedImport.Alias,
			ImportRecordIndex: namedImport.Record,
		}
	}

	for _, namedExport := range m.NamedExports {
		ref, err := ownRef(namedExport.Symbol)
		if err != nil {
			return graph.Module{}, nil, err
		}
		repr.NamedExports[namedExport.Alias] = js_ast.NamedExport{Ref: ref}
	}

	if m.NamespaceSymbol != nil {
		ref, err := ownRef(*m.NamespaceSymbol)
		if err != nil {
			return graph.Module{}, nil, err
		}
		repr.NamespaceRef = ref
	} else {
		repr.NamespaceRef = addFacade(reprName + "_exports")
	}
	if m.DefaultExportSymbol != nil {
		ref, err := ownRef(*m.DefaultExportSymbol)
		if err != nil {
			return graph.Module{}, nil, err
		}
		repr.DefaultExportRef = ref
	} else {
		repr.DefaultExportRef = addFacade(reprName + "_default")
	}

	if len(m.StmtInfos) != len(m.Stmts) {
		return graph.Module{}, nil, fmt.Errorf("have %d statements but %d statement infos", len(m.Stmts), len(m.StmtInfos))
	}

	// Reserved namespace-object slot; the linker fills it in
	repr.AddStmtInfo(graph.StmtInfo{})

	decoder := nodeDecoder{sourceIndex: sourceIndex, symbolCount: uint32(len(moduleSymbols))}
	for stmtIndex, raw := range m.Stmts {
		stmt, err := decoder.decodeStmt(raw)
		if err != nil {
			return graph.Module{}, nil, fmt.Errorf("statement %d: %w", stmtIndex, err)
		}
		repr.Stmts = append(repr.Stmts, stmt)

		info := m.StmtInfos[stmtIndex]
		stmtInfo := graph.StmtInfo{
			ImportRecordIndices: info.Records,
			HasSideEffect:       info.SideEffect,
		}
		for _, declared := range info.Declared {
			ref, err := ownRef(declared)
			if err != nil {
				return graph.Module{}, nil, err
			}
			stmtInfo.DeclaredSymbols = append(stmtInfo.DeclaredSymbols, ref)
		}
		for _, reference := range info.Referenced {
			owner := sourceIndex
			if reference.Module != nil {
				owner = *reference.Module
			}
			ref := ast.Ref{SourceIndex: owner, InnerIndex: reference.Symbol}
			if owner == sourceIndex {
				if ref, err = ownRef(reference.Symbol); err != nil {
					return graph.Module{}, nil, err
				}
			}
			stmtInfo.ReferencedSymbols = append(stmtInfo.ReferencedSymbols, graph.ReferencedSymbol{
				Ref:   ref,
				Props: reference.Props,
				Span:  logger.Loc{Start: reference.Span},
			})
		}
		repr.AddStmtInfo(stmtInfo)
	}

	return graph.Module{
		StableID:    m.ID,
		ReprName:    reprName,
		Repr:        repr,
		SideEffects: sideEffects,
	}, moduleSymbols, nil
}
