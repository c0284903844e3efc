package helpers

import (
	"path"
	"strings"
)

// SanitizeFileName keeps only characters that are safe in a chunk name.
func SanitizeFileName(name string) string {
	sb := strings.Builder{}
	sb.Grow(len(name))
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			sb.WriteRune(c)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// FileStem returns the file name without directories or the final extension.
func FileStem(p string) string {
	base := path.Base(p)
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	return base
}

// RelativeImportPath computes the specifier used to import "to" from the
// chunk whose output path is "from". Both paths are slash-separated and
// relative to the output directory. The result always starts with "./" or
// "../" so it cannot be mistaken for a package import.
func RelativeImportPath(from string, to string) string {
	fromDir := path.Dir(from)
	rel := relativePath(fromDir, to)
	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

func relativePath(fromDir string, to string) string {
	if fromDir == "." {
		return to
	}
	fromParts := strings.Split(fromDir, "/")
	toParts := strings.Split(to, "/")
	common := 0
	for common < len(fromParts) && common < len(toParts) && fromParts[common] == toParts[common] {
		common++
	}
	var sb strings.Builder
	for i := common; i < len(fromParts); i++ {
		sb.WriteString("../")
	}
	sb.WriteString(strings.Join(toParts[common:], "/"))
	return sb.String()
}
