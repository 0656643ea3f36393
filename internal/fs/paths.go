package fs

import (
	"os"
	"path/filepath"
)

// defaultDocumentsPath prefers ~/Documents and falls back to the home folder.
func defaultDocumentsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			return cwd
		}
		return defaultRootPath()
	}
	docs := filepath.Join(home, "Documents")
	if info, err := os.Stat(docs); err == nil && info.IsDir() {
		return docs
	}
	return home
}
