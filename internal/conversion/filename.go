package conversion

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SplitExt splits a client filename at its last dot. ok is false when there
// is no dot or nothing after it. ext is lower-cased.
func SplitExt(name string) (stem, ext string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return name, "", false
	}
	return name[:i], strings.ToLower(name[i+1:]), true
}

// SanitizeStem reduces a client-supplied name to [A-Za-z0-9_.-]: compatibility
// decomposition, non-ASCII dropped, path separators and whitespace runs
// turned into "_", leading and trailing "." and "_" trimmed. An empty result
// becomes "file".
func SanitizeStem(name string) string {
	name = norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range name {
		switch {
		case r > unicode.MaxASCII:
		case r == '/' || r == '\\':
			ascii.WriteByte(' ')
		default:
			ascii.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(ascii.String()), "_")

	var b strings.Builder
	for _, r := range joined {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "file"
	}
	return out
}
