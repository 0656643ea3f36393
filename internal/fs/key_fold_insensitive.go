//go:build windows || darwin

package fs

const caseInsensitiveFS = true
