//go:build windows

package fs

import (
	"errors"
	"os"
	"strings"

	"golang.org/x/sys/windows"
)

// entryAttributes reads the Windows attribute bits of an entry. When path
// cannot be resolved the bare name is tried, which covers drive roots and
// entries reached through relative paths.
func entryAttributes(path, name string) (uint32, error) {
	candidates := make([]string, 0, 2)
	if path != "" {
		candidates = append(candidates, path)
	}
	if name != "" && name != path {
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return 0, os.ErrInvalid
	}

	var firstErr error
	for i, candidate := range candidates {
		ptr, err := windows.UTF16PtrFromString(candidate)
		if err != nil {
			return 0, err
		}
		attrs, err := windows.GetFileAttributes(ptr)
		if err == nil {
			return attrs, nil
		}
		if i == 0 {
			firstErr = err
		}
		if !errors.Is(err, os.ErrNotExist) {
			break
		}
	}
	return 0, firstErr
}

// hiddenEntry honours FILE_ATTRIBUTE_HIDDEN and falls back to the dot file
// convention when attributes are unavailable.
func hiddenEntry(path, name string) bool {
	attrs, err := entryAttributes(path, name)
	if err != nil {
		return strings.HasPrefix(name, ".")
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0
}

// protectedEntry reports system reparse points such as the compatibility
// junctions under the user profile. They are skipped even with hidden files
// shown since they cannot be listed.
func protectedEntry(path, name string) bool {
	attrs, err := entryAttributes(path, name)
	if err != nil {
		return false
	}
	const mask = windows.FILE_ATTRIBUTE_SYSTEM | windows.FILE_ATTRIBUTE_REPARSE_POINT
	return attrs&mask == mask
}
