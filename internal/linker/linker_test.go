package linker_test

// End-to-end tests over the link–chunk–finalize pipeline. Module graphs
// are written as scan snapshots (the same serialized form the CLI
// consumes) and linked directly; assertions are on the emitted chunk
// text and the collected diagnostics.

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinypack/tinypack/internal/config"
	"github.com/tinypack/tinypack/internal/linker"
	"github.com/tinypack/tinypack/internal/logger"
	"github.com/tinypack/tinypack/internal/scanfile"
)

func link(t *testing.T, snapshot string, options config.Options) ([]linker.OutputFile, []logger.Msg) {
	t.Helper()
	g, err := scanfile.Decode([]byte(snapshot))
	require.NoError(t, err)
	log := logger.NewDeferLog(logger.LevelNone)
	files := linker.Link(&options, log, g)
	return files, log.Done()
}

func esmOptions() config.Options {
	return config.Options{Format: config.FormatESModule, TreeShaking: true}
}

func cjsOptions() config.Options {
	return config.Options{Format: config.FormatCommonJS, Platform: config.PlatformNode, TreeShaking: true}
}

func requireNoErrors(t *testing.T, msgs []logger.Msg) {
	t.Helper()
	for _, msg := range msgs {
		require.NotEqual(t, logger.Error, msg.Kind, "unexpected error: %s", msg.Data.Text)
	}
}

func errorTexts(msgs []logger.Msg) []string {
	var out []string
	for _, msg := range msgs {
		if msg.Kind == logger.Error {
			out = append(out, msg.Data.Text)
		}
	}
	return out
}

func warningTexts(msgs []logger.Msg) []string {
	var out []string
	for _, msg := range msgs {
		if msg.Kind == logger.Warning {
			out = append(out, msg.Data.Text)
		}
	}
	return out
}

// S1: a trivial ESM re-export collapses into a direct declaration plus an
// export clause.
const reexportSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x"}],
      "importRecords": [{"path": "./a.js", "module": 1}],
      "namedImports": [{"symbol": 0, "alias": "x", "record": 0}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "exportFrom", "record": 0, "clause": [{"alias": "x", "symbol": 0}]}],
      "stmtInfos": [{"declared": [0], "records": [0]}]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestTrivialReexport(t *testing.T) {
	files, msgs := link(t, reexportSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)
	require.Equal(t, "entry.js", files[0].Path)

	text := string(files[0].Contents)
	assert.Contains(t, text, "const x = 1;")
	assert.Contains(t, text, "export { x };")
	assert.NotContains(t, text, "from")
}

// S2: "export *" with shadowing. The entry's own "x" wins; "y" flows
// through the star.
const exportStarSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "importRecords": [{"path": "./a.js", "module": 1, "exportStar": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [
        {"type": "exportStar", "record": 0},
        {"type": "local", "kind": "const", "export": true, "decls": [
          {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 2}}
        ]}
      ],
      "stmtInfos": [{"records": [0]}, {"declared": [0]}]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [
        {"name": "x", "const": true, "notReassigned": true},
        {"name": "y", "const": true, "notReassigned": true}
      ],
      "namedExports": [{"alias": "x", "symbol": 0}, {"alias": "y", "symbol": 1}],
      "stmts": [
        {"type": "local", "kind": "const", "export": true, "decls": [
          {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
        ]},
        {"type": "local", "kind": "const", "export": true, "decls": [
          {"binding": {"type": "id", "symbol": 1}, "value": {"type": "number", "number": 3}}
        ]}
      ],
      "stmtInfos": [{"declared": [0]}, {"declared": [1]}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestExportStarShadowing(t *testing.T) {
	files, msgs := link(t, exportStarSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, "const x = 2;")
	assert.Contains(t, text, "const y = 3;")
	assert.Contains(t, text, "export { x, y };")
	assert.NotContains(t, text, "= 1")
}

// S3: two star targets provide the same name with different values.
func ambiguousSnapshot(withConsumer bool) string {
	consumer := ""
	entryPoint := `{"module": 0}`
	if withConsumer {
		consumer = `,
    {
      "id": "main.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x"}],
      "importRecords": [{"path": "./entry.js", "module": 0}],
      "namedImports": [{"symbol": 0, "alias": "x", "record": 0}],
      "stmts": [{"type": "import", "record": 0, "clause": [{"alias": "x", "symbol": 0}]}],
      "stmtInfos": [{"declared": [0], "records": [0]}]
    }`
		entryPoint = `{"module": 3}`
	}
	return `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [],
      "importRecords": [
        {"path": "./a.js", "module": 1, "exportStar": true},
        {"path": "./b.js", "module": 2, "exportStar": true}
      ],
      "stmts": [{"type": "exportStar", "record": 0}, {"type": "exportStar", "record": 1}],
      "stmtInfos": [{"records": [0]}, {"records": [1]}]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    },
    {
      "id": "b.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 2}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    }` + consumer + `
  ],
  "entryPoints": [` + entryPoint + `]
}`
}

func TestAmbiguousExportStarWithoutConsumer(t *testing.T) {
	files, msgs := link(t, ambiguousSnapshot(false), esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	// "x" is excluded from the entry's exports but nothing fails
	assert.NotContains(t, string(files[0].Contents), "export {")
}

func TestAmbiguousExportStarWithConsumer(t *testing.T) {
	_, msgs := link(t, ambiguousSnapshot(true), esmOptions())
	errors := errorTexts(msgs)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], `re-exports "x"`)
	assert.Contains(t, errors[0], "a.js")
	assert.Contains(t, errors[0], "b.js")
}

// S4: dynamic imports split the graph into two chunks and the import
// specifier is rewritten to the dynamic chunk's filename.
const dynamicImportSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm",
      "symbols": [],
      "importRecords": [{"path": "./a.js", "kind": "dynamic", "module": 1, "span": 10}],
      "stmts": [{"type": "expr", "value": {"type": "import", "span": 10, "expr": {"type": "string", "str": "./a.js"}}}],
      "stmtInfos": [{"records": [0], "sideEffect": true}]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 42}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestDynamicImportSplitting(t *testing.T) {
	files, msgs := link(t, dynamicImportSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 2)

	entry := string(files[0].Contents)
	dynamic := string(files[1].Contents)

	require.Equal(t, "entry.js", files[0].Path)
	assert.True(t, strings.HasPrefix(files[1].Path, "a-"), "dynamic chunk path: %s", files[1].Path)

	assert.Contains(t, entry, `import("./`+files[1].Path+`")`)
	assert.Contains(t, dynamic, "const x = 42;")
	assert.Contains(t, dynamic, "export { x };")
}

func TestInlineDynamicImports(t *testing.T) {
	options := esmOptions()
	options.InlineDynamicImports = true
	files, msgs := link(t, dynamicImportSnapshot, options)
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, "Promise.resolve().then(")
	assert.Contains(t, text, "const x = 42;")
}

// S5: a CommonJS build with a named import from an external module goes
// through __toESM and a namespace property access.
const cjsExternalSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm",
      "symbols": [{"name": "writeFile"}],
      "importRecords": [{"path": "fs", "module": 1}],
      "namedImports": [{"symbol": 0, "alias": "writeFile", "record": 0}],
      "stmts": [
        {"type": "import", "record": 0, "clause": [{"alias": "writeFile", "symbol": 0}]},
        {"type": "expr", "value": {"type": "call", "target": {"type": "id", "symbol": 0}, "args": [{"type": "string", "str": "out.txt"}]}}
      ],
      "stmtInfos": [
        {"declared": [0], "records": [0]},
        {"referenced": [{"symbol": 0}], "sideEffect": true}
      ]
    },
    {"id": "fs", "external": true}
  ],
  "entryPoints": [{"module": 0}]
}`

func TestCommonJSExternalImport(t *testing.T) {
	files, msgs := link(t, cjsExternalSnapshot, cjsOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, `"use strict";`)
	assert.Contains(t, text, `const import_fs = __toESM(require("fs"));`)
	assert.Contains(t, text, `import_fs.writeFile("out.txt");`)

	// The runtime helper must be defined before the require line
	assert.Less(t, strings.Index(text, "var __toESM"), strings.Index(text, `const import_fs`))
}

func TestESMExternalImportIsPreserved(t *testing.T) {
	files, msgs := link(t, cjsExternalSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, `import { writeFile } from "fs";`)
	assert.Contains(t, text, `writeFile("out.txt");`)
	assert.NotContains(t, text, "__toESM")
}

// S6: tree shaking removes an unused export entirely.
const treeShakingSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "used"}, {"name": "console", "kind": "unbound"}],
      "importRecords": [{"path": "./a.js", "module": 1}],
      "namedImports": [{"symbol": 0, "alias": "used", "record": 0}],
      "stmts": [
        {"type": "import", "record": 0, "clause": [{"alias": "used", "symbol": 0}]},
        {"type": "expr", "value": {"type": "call", "target": {"type": "dot", "target": {"type": "id", "symbol": 1}, "name": "log"}, "args": [{"type": "id", "symbol": 0}]}}
      ],
      "stmtInfos": [
        {"declared": [0], "records": [0]},
        {"referenced": [{"symbol": 1}, {"symbol": 0}], "sideEffect": true}
      ]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [
        {"name": "used", "const": true, "notReassigned": true},
        {"name": "unused", "const": true, "notReassigned": true}
      ],
      "namedExports": [{"alias": "used", "symbol": 0}, {"alias": "unused", "symbol": 1}],
      "stmts": [
        {"type": "local", "kind": "const", "export": true, "decls": [
          {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
        ]},
        {"type": "local", "kind": "const", "export": true, "decls": [
          {"binding": {"type": "id", "symbol": 1}, "value": {"type": "number", "number": 2}}
        ]}
      ],
      "stmtInfos": [{"declared": [0]}, {"declared": [1]}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestTreeShaking(t *testing.T) {
	files, msgs := link(t, treeShakingSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, "const used = 1;")
	assert.Contains(t, text, "console.log(used);")
	assert.NotContains(t, text, "unused")
}

func TestTreeShakingDisabled(t *testing.T) {
	options := esmOptions()
	options.TreeShaking = false
	files, msgs := link(t, treeShakingSnapshot, options)
	requireNoErrors(t, msgs)

	text := string(files[0].Contents)
	assert.Contains(t, text, "const used = 1;")
	assert.Contains(t, text, "const unused = 2;")
}

// Namespace member accesses compile down to direct references.
const namespaceMemberSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "ns"}, {"name": "console", "kind": "unbound"}],
      "importRecords": [{"path": "./a.js", "module": 1}],
      "namedImports": [{"symbol": 0, "alias": "*", "record": 0}],
      "stmts": [
        {"type": "import", "record": 0, "symbol": 0},
        {"type": "expr", "value": {"type": "call", "target": {"type": "dot", "target": {"type": "id", "symbol": 1}, "name": "log"}, "args": [
          {"type": "dot", "span": 7, "target": {"type": "id", "symbol": 0}, "name": "x"}
        ]}},
        {"type": "expr", "value": {"type": "call", "target": {"type": "dot", "target": {"type": "id", "symbol": 1}, "name": "log"}, "args": [
          {"type": "dot", "span": 9, "target": {"type": "id", "symbol": 0}, "name": "missing"}
        ]}}
      ],
      "stmtInfos": [
        {"declared": [0], "records": [0]},
        {"referenced": [{"symbol": 1}, {"symbol": 0, "props": ["x"], "span": 7}], "sideEffect": true},
        {"referenced": [{"symbol": 1}, {"symbol": 0, "props": ["missing"], "span": 9}], "sideEffect": true}
      ]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "x", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "x", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestNamespaceMemberResolution(t *testing.T) {
	files, msgs := link(t, namespaceMemberSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, "console.log(x);")
	assert.Contains(t, text, "console.log(void 0);")
	assert.NotContains(t, text, "ns.x")

	warnings := warningTexts(msgs)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"missing" is not exported`)
}

// Code splitting: two entries sharing a library produce a common chunk
// with deconflicted exports.
const sharedChunkSnapshot = `{
  "modules": [
    {
      "id": "a.js", "exportsKind": "esm",
      "symbols": [{"name": "shared"}, {"name": "console", "kind": "unbound"}],
      "importRecords": [{"path": "./lib.js", "module": 2}],
      "namedImports": [{"symbol": 0, "alias": "shared", "record": 0}],
      "stmts": [
        {"type": "import", "record": 0, "clause": [{"alias": "shared", "symbol": 0}]},
        {"type": "expr", "value": {"type": "call", "target": {"type": "dot", "target": {"type": "id", "symbol": 1}, "name": "log"}, "args": [{"type": "id", "symbol": 0}]}}
      ],
      "stmtInfos": [
        {"declared": [0], "records": [0]},
        {"referenced": [{"symbol": 1}, {"symbol": 0}], "sideEffect": true}
      ]
    },
    {
      "id": "b.js", "exportsKind": "esm",
      "symbols": [{"name": "shared"}, {"name": "console", "kind": "unbound"}],
      "importRecords": [{"path": "./lib.js", "module": 2}],
      "namedImports": [{"symbol": 0, "alias": "shared", "record": 0}],
      "stmts": [
        {"type": "import", "record": 0, "clause": [{"alias": "shared", "symbol": 0}]},
        {"type": "expr", "value": {"type": "call", "target": {"type": "dot", "target": {"type": "id", "symbol": 1}, "name": "log"}, "args": [{"type": "id", "symbol": 0}]}}
      ],
      "stmtInfos": [
        {"declared": [0], "records": [0]},
        {"referenced": [{"symbol": 1}, {"symbol": 0}], "sideEffect": true}
      ]
    },
    {
      "id": "lib.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "shared"}],
      "namedExports": [{"alias": "shared", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "let", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    }
  ],
  "entryPoints": [{"module": 0}, {"module": 1}]
}`

func TestSharedChunkESM(t *testing.T) {
	files, msgs := link(t, sharedChunkSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 3)

	a := string(files[0].Contents)
	b := string(files[1].Contents)
	shared := string(files[2].Contents)
	sharedPath := files[2].Path

	assert.True(t, strings.HasPrefix(sharedPath, "lib-"))
	assert.Contains(t, a, `import { shared } from "./`+sharedPath+`";`)
	assert.Contains(t, b, `import { shared } from "./`+sharedPath+`";`)
	assert.Contains(t, shared, "let shared = 1;")
	assert.Contains(t, shared, "export { shared };")
}

func TestSharedChunkCJS(t *testing.T) {
	files, msgs := link(t, sharedChunkSnapshot, cjsOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 3)

	a := string(files[0].Contents)
	shared := string(files[2].Contents)

	assert.Contains(t, a, `const require_lib = require("./`+files[2].Path+`");`)
	assert.Contains(t, a, "console.log(require_lib.shared);")
	assert.Contains(t, shared, `Object.defineProperty(exports, "shared", { enumerable: true, get: () => shared });`)
}

func TestMultiChunkForbidsOutfile(t *testing.T) {
	options := esmOptions()
	options.OutFile = "bundle.js"
	_, msgs := link(t, sharedChunkSnapshot, options)
	errors := errorTexts(msgs)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "single-file output")
}

// "export * from 'external'" passes through in ESM and becomes a runtime
// property copy in CJS.
const externalStarSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm",
      "symbols": [],
      "importRecords": [{"path": "ext", "module": 1, "exportStar": true}],
      "stmts": [{"type": "exportStar", "record": 0}],
      "stmtInfos": [{"records": [0]}]
    },
    {"id": "ext", "external": true}
  ],
  "entryPoints": [{"module": 0}]
}`

func TestExternalStarExportESM(t *testing.T) {
	files, msgs := link(t, externalStarSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, `export * from "ext";`)
	assert.NotContains(t, text, "__reExport")
}

func TestExternalStarExportCJS(t *testing.T) {
	files, msgs := link(t, externalStarSnapshot, cjsOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)
	assert.Contains(t, text, "var entry_exports = {};")
	assert.Contains(t, text, `__reExport(entry_exports, require("ext"));`)
	assert.Contains(t, text, `var import_ext = require("ext");`)
	assert.Contains(t, text, "Object.keys(import_ext)")
}

// Circular static imports are linearized with a warning.
const cycleSnapshot = `{
  "modules": [
    {
      "id": "a.js", "exportsKind": "esm",
      "symbols": [],
      "importRecords": [{"path": "./b.js", "module": 1, "plain": true}],
      "stmts": [{"type": "import", "record": 0}],
      "stmtInfos": [{"records": [0], "sideEffect": true}]
    },
    {
      "id": "b.js", "exportsKind": "esm",
      "symbols": [],
      "importRecords": [{"path": "./a.js", "module": 0, "plain": true}],
      "stmts": [{"type": "import", "record": 0}],
      "stmtInfos": [{"records": [0], "sideEffect": true}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestCircularDependencyWarning(t *testing.T) {
	_, msgs := link(t, cycleSnapshot, esmOptions())
	requireNoErrors(t, msgs)

	warnings := warningTexts(msgs)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0], "Circular dependency:")
	assert.Contains(t, warnings[0], "a.js")
	assert.Contains(t, warnings[0], "b.js")
}

func TestMissingExportIsAnError(t *testing.T) {
	snapshot := strings.Replace(reexportSnapshot, `"alias": "x", "record": 0`, `"alias": "nope", "record": 0`, 1)
	_, msgs := link(t, snapshot, esmOptions())
	errors := errorTexts(msgs)
	require.Len(t, errors, 1)
	assert.Equal(t, `"nope" is not exported by "a.js", imported by "entry.js"`, errors[0])
}

func TestNoEntryPoints(t *testing.T) {
	snapshot := `{"modules": [{"id": "a.js", "exportsKind": "esm", "symbols": [], "stmts": [], "stmtInfos": []}]}`
	files, msgs := link(t, snapshot, esmOptions())
	require.Nil(t, files)
	errors := errorTexts(msgs)
	require.Len(t, errors, 1)
	assert.Contains(t, errors[0], "No entry points")
}

// P1: two invocations with identical inputs produce byte-identical
// outputs, including filenames and chunk order.
func TestDeterminism(t *testing.T) {
	for _, snapshot := range []string{reexportSnapshot, dynamicImportSnapshot, sharedChunkSnapshot} {
		first, msgs := link(t, snapshot, esmOptions())
		requireNoErrors(t, msgs)
		for i := 0; i < 3; i++ {
			again, msgs := link(t, snapshot, esmOptions())
			requireNoErrors(t, msgs)
			require.Len(t, again, len(first))
			for j := range first {
				require.Equal(t, first[j].Path, again[j].Path)
				require.Equal(t, string(first[j].Contents), string(again[j].Contents))
			}
		}
	}
}

// P2/P7: canonical names within a chunk are unique, and export aliases
// never collide across chunks even when the source names do.
const collisionSnapshot = `{
  "modules": [
    {
      "id": "entry.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "value"}, {"name": "value", "const": true, "notReassigned": true}],
      "importRecords": [{"path": "./a.js", "module": 1}],
      "namedImports": [{"symbol": 0, "alias": "value", "record": 0}],
      "namedExports": [{"alias": "local", "symbol": 1}, {"alias": "remote", "symbol": 0}],
      "stmts": [
        {"type": "import", "record": 0, "clause": [{"alias": "value", "symbol": 0}]},
        {"type": "local", "kind": "const", "export": true, "decls": [
          {"binding": {"type": "id", "symbol": 1}, "value": {"type": "id", "symbol": 0}}
        ]}
      ],
      "stmtInfos": [
        {"declared": [0], "records": [0]},
        {"declared": [1], "referenced": [{"symbol": 0}]}
      ]
    },
    {
      "id": "a.js", "exportsKind": "esm", "sideEffects": "false",
      "symbols": [{"name": "value", "const": true, "notReassigned": true}],
      "namedExports": [{"alias": "value", "symbol": 0}],
      "stmts": [{"type": "local", "kind": "const", "export": true, "decls": [
        {"binding": {"type": "id", "symbol": 0}, "value": {"type": "number", "number": 1}}
      ]}],
      "stmtInfos": [{"declared": [0]}]
    }
  ],
  "entryPoints": [{"module": 0}]
}`

func TestNameCollisionsAreDeconflicted(t *testing.T) {
	files, msgs := link(t, collisionSnapshot, esmOptions())
	requireNoErrors(t, msgs)
	require.Len(t, files, 1)

	text := string(files[0].Contents)

	// Two distinct "value" declarations must end up with distinct names.
	// The entry module's own binding wins the unsuffixed form.
	assert.Contains(t, text, "const value$1 = 1;")
	assert.Contains(t, text, "const value = value$1;")
	assert.Contains(t, text, "export { value as local, value$1 as remote };")
}
