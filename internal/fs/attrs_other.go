//go:build !windows

package fs

import "strings"

// hiddenEntry treats dot files as hidden.
func hiddenEntry(_, name string) bool {
	return strings.HasPrefix(name, ".")
}

// protectedEntry never applies outside Windows.
func protectedEntry(_, _ string) bool {
	return false
}
