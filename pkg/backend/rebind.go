package backend

import (
	"strconv"
	"strings"
)

// rebindPositional rewrites the uniform `?` placeholder convention into
// PostgreSQL's `$1..$N` syntax. Placeholders inside single-quoted strings,
// double-quoted identifiers, dollar-quoted strings, line comments, and
// block comments (nested, as PostgreSQL allows) are left untouched.
// MySQL and SQLite consume `?` natively and never call this.
func rebindPositional(query string) string {
	if !strings.ContainsRune(query, '?') {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inSingle, inDouble, inLine := false, false, false
	blockDepth := 0
	dollarTag := ""
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case inLine:
			if c == '\n' {
				inLine = false
			}
		case blockDepth > 0:
			if c == '*' && i+1 < len(query) && query[i+1] == '/' {
				blockDepth--
				b.WriteString("*/")
				i++
				continue
			}
			if c == '/' && i+1 < len(query) && query[i+1] == '*' {
				blockDepth++
				b.WriteString("/*")
				i++
				continue
			}
		case dollarTag != "":
			if strings.HasPrefix(query[i:], dollarTag) {
				b.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			inLine = true
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			blockDepth++
			b.WriteString("/*")
			i++
			continue
		case c == '$':
			if tag := dollarQuoteTag(query[i:]); tag != "" {
				dollarTag = tag
				b.WriteString(tag)
				i += len(tag) - 1
				continue
			}
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// dollarQuoteTag returns the $tag$ delimiter opening a dollar-quoted
// string at the start of s, or "" when s does not open one. Positional
// parameters like $1 are not delimiters.
func dollarQuoteTag(s string) string {
	if len(s) < 2 || s[0] != '$' {
		return ""
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1]
		}
		isTagChar := c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(i > 1 && c >= '0' && c <= '9')
		if !isTagChar {
			return ""
		}
	}
	return ""
}
