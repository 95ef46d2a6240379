package graph

import (
	"strings"
	"unicode"
)

// Ident converts a node or port name into an exported Go identifier:
// "frame-source" becomes "FrameSource", "2d blur" becomes "N2dBlur".
func Ident(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	s := sb.String()
	if s == "" {
		return "Node"
	}
	if unicode.IsDigit(rune(s[0])) {
		return "N" + s
	}
	return s
}

// LowerIdent is Ident with a lower-case first letter.
func LowerIdent(name string) string {
	s := []rune(Ident(name))
	s[0] = unicode.ToLower(s[0])
	return string(s)
}
