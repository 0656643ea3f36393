//go:build windows

package fs

import (
	"os"
	"path/filepath"
)

// defaultRootPath returns the volume holding the user's home folder.
func defaultRootPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return `C:\`
	}
	vol := filepath.VolumeName(home)
	if vol == "" {
		return `C:\`
	}
	return vol + `\`
}
