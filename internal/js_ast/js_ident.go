package js_ast

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func IsIdentifierStart(c rune) bool {
	switch c {
	case '_', '$',
		'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm',
		'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z',
		'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M',
		'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z':
		return true
	}
	if c < 0x80 {
		return false
	}
	return unicode.Is(unicode.L, c) || unicode.Is(unicode.Nl, c)
}

func IsIdentifierContinue(c rune) bool {
	if IsIdentifierStart(c) {
		return true
	}
	if c >= '0' && c <= '9' {
		return true
	}
	if c < 0x80 {
		return false
	}
	return unicode.Is(unicode.Mn, c) || unicode.Is(unicode.Mc, c) ||
		unicode.Is(unicode.Nd, c) || unicode.Is(unicode.Pc, c)
}

// IsIdentifier is a syntactic check only; reserved words still pass.
func IsIdentifier(text string) bool {
	if len(text) == 0 {
		return false
	}
	for i, c := range text {
		if i == 0 {
			if !IsIdentifierStart(c) {
				return false
			}
		} else if !IsIdentifierContinue(c) {
			return false
		}
	}
	return true
}

// LegitimizeIdentifier turns an arbitrary string (a file stem, an exported
// alias) into a valid identifier by replacing offending characters with
// underscores. A leading digit gets an underscore prefix.
func LegitimizeIdentifier(text string) string {
	if IsIdentifier(text) {
		return text
	}
	sb := strings.Builder{}
	sb.Grow(len(text) + 1)
	i := 0
	if c, width := utf8.DecodeRuneInString(text); len(text) > 0 {
		if IsIdentifierStart(c) {
			sb.WriteRune(c)
		} else if IsIdentifierContinue(c) {
			sb.WriteByte('_')
			sb.WriteRune(c)
		} else {
			sb.WriteByte('_')
		}
		i = width
	}
	for _, c := range text[i:] {
		if IsIdentifierContinue(c) {
			sb.WriteRune(c)
		} else {
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" {
		return "_"
	}
	return out
}

// Keywords is the set of names that can never be used as bindings.
var Keywords = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true, "class": true,
	"const": true, "continue": true, "debugger": true, "default": true,
	"delete": true, "do": true, "else": true, "enum": true, "export": true,
	"extends": true, "false": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "let": true, "new": true, "null": true,
	"return": true, "static": true, "super": true, "switch": true,
	"this": true, "throw": true, "true": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
}

// StrictModeReservedWords are additionally unusable in the output since
// bundled ESM (and the CJS "use strict" prologue) is always strict code.
var StrictModeReservedWords = map[string]bool{
	"arguments": true, "eval": true, "implements": true, "interface": true,
	"package": true, "private": true, "protected": true, "public": true,
}

// KnownGlobals is a conservative subset of globals the renamer must never
// shadow. Unresolved references of the modules in a chunk are reserved
// separately, so this only needs to cover names the linker itself emits
// references to plus the usual suspects.
var KnownGlobals = []string{
	"Array", "ArrayBuffer", "Boolean", "Date", "Error", "EvalError",
	"Function", "Infinity", "JSON", "Map", "Math", "NaN", "Number",
	"Object", "Promise", "Proxy", "RangeError", "ReferenceError", "Reflect",
	"RegExp", "Set", "String", "Symbol", "SyntaxError", "TypeError",
	"URIError", "WeakMap", "WeakSet", "clearInterval", "clearTimeout",
	"console", "decodeURI", "decodeURIComponent", "encodeURI",
	"encodeURIComponent", "globalThis", "isFinite", "isNaN", "parseFloat",
	"parseInt", "setInterval", "setTimeout", "undefined",
}
