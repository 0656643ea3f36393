package fs

import (
	"os"
	"path/filepath"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// KeyForPath returns the map key for path: cleaned, slash separated, NFC
// normalized and case folded where the host file system ignores case.
func KeyForPath(path string) string {
	key := filepath.ToSlash(filepath.Clean(path))
	key = norm.NFC.String(key)
	if caseInsensitiveFS {
		key = foldCase(key)
	}
	return key
}

// trimTrailingSeparator drops a trailing separator unless path is a root.
func trimTrailingSeparator(path string) string {
	if len(path) <= 1 {
		return path
	}
	last := path[len(path)-1]
	if !os.IsPathSeparator(last) {
		return path
	}
	trimmed := path[:len(path)-1]
	if filepath.VolumeName(trimmed) == trimmed {
		// "C:\" keeps its separator.
		return path
	}
	return trimmed
}

func isRootPath(path string) bool {
	return filepath.Dir(path) == path
}

// foldCase builds a Caser per call; a Caser keeps state and must not be
// shared between goroutines.
func foldCase(s string) string {
	return cases.Fold().String(s)
}
