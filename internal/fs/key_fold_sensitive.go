//go:build !windows && !darwin

package fs

const caseInsensitiveFS = false
