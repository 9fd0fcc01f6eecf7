package patch

import (
	"fmt"
	"strings"
)

var (
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
)

// ParsePointer splits an RFC 6901 JSON pointer into unescaped reference tokens.
// The empty pointer addresses the whole document.
func ParsePointer(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("invalid JSON pointer %q", ptr)
	}
	tokens := strings.Split(ptr[1:], "/")
	for i, tok := range tokens {
		tokens[i] = pointerUnescaper.Replace(tok)
	}
	return tokens, nil
}

// FormatPointer builds an RFC 6901 JSON pointer from reference tokens.
func FormatPointer(tokens ...string) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(tok))
	}
	return b.String()
}
