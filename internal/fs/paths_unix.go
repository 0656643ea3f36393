//go:build !windows

package fs

func defaultRootPath() string {
	return "/"
}
