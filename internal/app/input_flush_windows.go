//go:build windows

package app

import "golang.org/x/sys/windows"

// flushPendingInput drops keystrokes typed before the UI took over the
// console, such as the Enter that launched rthumb.
func flushPendingInput() {
	handle, err := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	if err != nil {
		return
	}
	_ = windows.FlushConsoleInputBuffer(handle)
}
