// Package pattern collects the small regex/pointer/glob services the
// resolver and validator both need: extended-regex compilation, JSON
// Pointer parsing, and glob-to-regex translation for fileMatch associations.
// They live in one package because getSchemaForResource is the one caller
// that exercises all three.
package pattern

import (
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonpointer"
)

// CompileExtended compiles src as an "extended" JSON Schema pattern: the
// dialect understood by the `pattern`/`patternProperties` keywords, which
// permits inline flags like `(?i)` and Unicode property classes like
// `\p{L}`. Go's regexp package (RE2) already accepts both natively, so this
// is a documented pass-through rather than a second engine: the contract
// exists so callers have one name to import regardless of which underlying
// engine ends up behind it.
func CompileExtended(src string) (*regexp.Regexp, error) {
	return regexp.Compile(src)
}

// Pointer re-exports jsonpointer's segment parser under this package's name
// so resolver code only imports one notion of "JSON Pointer parsing".
func Pointer(ref string) []string {
	return jsonpointer.Parse(ref)
}

// CompileGlob translates a fileMatch glob into an anchored regular
// expression: `**` matches any number of path segments, `*` matches within
// one segment, `?` matches one character, a well-formed `[...]` bracket
// class is carried through to the regex verbatim (so `[abc]`/`[a-z]`/`[!a]`
// behave like shell bracket classes, with `!` accepted as a synonym for `^`
// negation), and every other regex metacharacter is escaped literally. Per
// spec.md §4.3, a glob that isn't already rooted (doesn't start with `/` or
// `**/`) is treated as matching at any directory depth, the same convention
// `.gitignore`-style fileMatch tables use for a bare `*.json`.
func CompileGlob(glob string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(glob, "/") && !strings.HasPrefix(glob, "**/") {
		glob = "**/" + glob
	}

	var b strings.Builder
	b.WriteString("^")
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			if end := closingBracket(runes, i); end >= 0 {
				b.WriteString(translateBracketClass(runes[i : end+1]))
				i = end
			} else {
				b.WriteString(`\[`)
			}
		case '.', '+', '(', ')', '|', '^', '$', ']', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteRune(runes[i])
		default:
			b.WriteRune(runes[i])
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// closingBracket finds the `]` closing the bracket class opened at runes[start]
// (`[`), returning -1 when the class is never closed (treated as a literal).
// A `]` immediately after the opening `[` or a leading `!`/`^` negation is a
// literal member of the class, not its terminator, matching shell glob rules.
func closingBracket(runes []rune, start int) int {
	i := start + 1
	if i < len(runes) && (runes[i] == '!' || runes[i] == '^') {
		i++
	}
	if i < len(runes) && runes[i] == ']' {
		i++
	}
	for ; i < len(runes); i++ {
		if runes[i] == ']' {
			return i
		}
	}
	return -1
}

// translateBracketClass rewrites a glob bracket class into a Go regexp one,
// the only difference being glob's `!` negation spelled as regex's `^`.
func translateBracketClass(class []rune) string {
	if len(class) > 1 && class[1] == '!' {
		return "[^" + string(class[2:])
	}
	return string(class)
}

// MatchAssociation reports whether uri matches the given set of fileMatch
// globs. A `!`-prefixed pattern is an anti-pattern: if uri matches one, the
// whole association is rejected regardless of what else matched, mirroring
// the "last matching anti-pattern wins" convention fileMatch tables use.
func MatchAssociation(patterns []string, uri string) bool {
	matched := false
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		glob := p
		if negate {
			glob = p[1:]
		}
		re, err := CompileGlob(glob)
		if err != nil {
			continue
		}
		if re.MatchString(uri) {
			if negate {
				return false
			}
			matched = true
		}
	}
	return matched
}
