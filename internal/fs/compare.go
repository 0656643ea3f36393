package fs

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CompareFileNames orders names case-insensitively with digit runs compared
// by numeric value, so "img2" sorts before "img10".
func CompareFileNames(a, b string) int {
	fa, fb := foldCase(a), foldCase(b)
	for fa != "" && fb != "" {
		ra, _ := utf8.DecodeRuneInString(fa)
		rb, _ := utf8.DecodeRuneInString(fb)

		if unicode.IsDigit(ra) && unicode.IsDigit(rb) {
			na, restA := splitDigits(fa)
			nb, restB := splitDigits(fb)
			if c := compareNumeric(na, nb); c != 0 {
				return c
			}
			fa, fb = restA, restB
			continue
		}

		if ra != rb {
			if ra < rb {
				return -1
			}
			return 1
		}
		fa = fa[utf8.RuneLen(ra):]
		fb = fb[utf8.RuneLen(rb):]
	}
	switch {
	case fa == "" && fb == "":
		return strings.Compare(a, b)
	case fa == "":
		return -1
	default:
		return 1
	}
}

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsDigit(r) {
			break
		}
		i += size
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	// "01" after "1" keeps the order total.
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
