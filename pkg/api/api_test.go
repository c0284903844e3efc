package api_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinypack/tinypack/internal/scanfile"
	"github.com/tinypack/tinypack/pkg/api"
)

const snapshot = `{
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

var hashedName = regexp.MustCompile(`^a-[0-9a-f]{8}\.js$`)

func TestLinkMaterializesHashes(t *testing.T) {
	scan, err := scanfile.Decode([]byte(snapshot))
	require.NoError(t, err)

	result := api.Link(scan, api.BuildOptions{Format: api.FormatESModule})
	require.Empty(t, result.Errors)
	require.Len(t, result.OutputFiles, 2)
	require.NotEmpty(t, result.BuildID)

	entry := result.OutputFiles[0]
	dynamic := result.OutputFiles[1]

	assert.Equal(t, "entry.js", entry.Path)
	assert.Regexp(t, hashedName, dynamic.Path)

	// The placeholder is substituted inside the importing chunk too
	assert.Contains(t, string(entry.Contents), `import("./`+dynamic.Path+`")`)
	assert.NotContains(t, string(entry.Contents), "!~{")
}

func TestLinkReportsErrors(t *testing.T) {
	broken := strings.Replace(snapshot, `"entryPoints": [{"module": 0}]`, `"entryPoints": []`, 1)
	scan, err := scanfile.Decode([]byte(broken))
	require.NoError(t, err)

	result := api.Link(scan, api.BuildOptions{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Text, "No entry points")
	assert.Empty(t, result.OutputFiles)
}

func TestLinkCommonJS(t *testing.T) {
	scan, err := scanfile.Decode([]byte(snapshot))
	require.NoError(t, err)

	result := api.Link(scan, api.BuildOptions{Format: api.FormatCommonJS, Platform: api.PlatformNode})
	require.Empty(t, result.Errors)

	// The runtime helpers are reachable from both entry chunks in CJS, so
	// they land in a chunk of their own
	require.Len(t, result.OutputFiles, 3)

	entry := string(result.OutputFiles[0].Contents)
	assert.Contains(t, entry, `"use strict";`)
	assert.Contains(t, entry, "Promise.resolve().then(function() {")
	assert.Contains(t, entry, "return require(\"./")
}
