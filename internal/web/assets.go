package web

import (
	"path/filepath"
	"strings"
)

// Preview bytes are fixed for the life of a pair ID.
const previewCacheControl = "private, max-age=3600"

// downloadName validates a {name} path value against the files of an
// export: a plain file name, no directories, no traversal.
func downloadName(name string) (string, bool) {
	if name == "" || name == "." || name == ".." {
		return "", false
	}
	if strings.ContainsAny(name, `/\`) {
		return "", false
	}
	if filepath.Base(name) != name || filepath.IsAbs(name) {
		return "", false
	}
	return name, true
}
