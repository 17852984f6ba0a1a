// internal/pattern/codec.go
package pattern

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

/*
 * Wildcard pattern codec.
 *
 * A pattern is literal text plus two wildcards: '*' (any run) and '?' (any
 * single character). The codec derives three things from a pattern:
 *
 *   Hash    MD5 of the literal prefix, the leading run of bytes before the
 *           first '.', '*', '?', whitespace or backslash, looked at only
 *           within the first PrefixLength bytes. Patterns with no literal
 *           bytes at all get CatchAllHash so they sort last.
 *   Length  bytes that are neither '*' nor '?'.
 *   Quote   an anchored regular expression: metacharacters escaped with a
 *           backslash, tab as \t, then '*' -> ".*" and '?' -> ".".
 *
 * Unquote reverses Quote exactly. Digits are never escaped, so the digit
 * compression in compress.go can run over a quoted expression and be undone
 * by Unquote given the captured digits.
 *
 * Case folding is ASCII only. Definitions files contain raw high bytes that
 * are not valid UTF-8 and must survive byte for byte.
 */

// DefaultPrefixLength bounds the literal prefix used for hashing.
const DefaultPrefixLength = 32

// CatchAllHash is the sentinel hash of zero-length patterns. It sorts after
// every hex digest.
const CatchAllHash = "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"

// metaChars are escaped by Quote: the PCRE quoting set used by existing
// browscap consumers, except NUL. NUL is literal in RE2 and an escape for it
// would put digits into the expression, where Compress would rewrite them.
const metaChars = `.\+*?[^]$(){}=!<>|:-#/`

// Length returns the specificity length of p: bytes other than '*' and '?'.
func Length(p string) int {
	n := 0
	for i := 0; i < len(p); i++ {
		if p[i] != '*' && p[i] != '?' {
			n++
		}
	}
	return n
}

// LiteralPrefix returns the leading literal run of s within its first max
// bytes.
func LiteralPrefix(s string, max int) string {
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '*', '?', '\\', ' ', '\t', '\n', '\r', '\f', '\v':
			return s[:i]
		}
	}
	return s
}

// Hash returns the hex MD5 of s.
func Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// PartsHash returns the property index key of a definitions header: the
// hash of the whole lower-cased pattern.
func PartsHash(p string) string {
	return Hash(Lower(p))
}

// PatternHash returns the bucketing hash of a (lower-cased) pattern.
func PatternHash(p string, max int) string {
	if Length(p) == 0 {
		return CatchAllHash
	}
	return Hash(LiteralPrefix(p, max))
}

// Candidates returns the hashes a query must probe, most specific first:
// every prefix of the query's literal prefix from longest to a single byte,
// the empty prefix (patterns starting with a wildcard), and CatchAllHash.
func Candidates(query string, max int) []string {
	prefix := LiteralPrefix(query, max)
	out := make([]string, 0, len(prefix)+2)
	for i := len(prefix); i >= 1; i-- {
		out = append(out, Hash(prefix[:i]))
	}
	return append(out, Hash(""), CatchAllHash)
}

// Lower folds ASCII letters only.
func Lower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// Quote converts a wildcard pattern to an anchored expression.
func Quote(p string) string {
	var b strings.Builder
	b.Grow(len(p) + len(p)/4 + 2)
	b.WriteByte('^')
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '*':
			b.WriteString(".*")
		case c == '?':
			b.WriteByte('.')
		case c == '\t':
			b.WriteString(`\t`)
		case strings.IndexByte(metaChars, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('$')
	return b.String()
}

// Unquote reverses Quote. Digit tokens left by Compress, in either stored or
// capturing form, are replaced by groups in order. A token without a
// corresponding group is kept verbatim.
func Unquote(expr string, groups []string) string {
	if len(expr) >= 2 && expr[0] == '^' && expr[len(expr)-1] == '$' {
		expr = expr[1 : len(expr)-1]
	}

	var b strings.Builder
	b.Grow(len(expr))
	next := 0
	for i := 0; i < len(expr); {
		if tok, ok := digitTokenAt(expr, i); ok {
			if next < len(groups) {
				b.WriteString(groups[next])
				next++
			} else {
				b.WriteString(tok)
			}
			i += len(tok)
			continue
		}

		c := expr[i]
		switch {
		case c == '.' && i+1 < len(expr) && expr[i+1] == '*':
			b.WriteByte('*')
			i += 2
		case c == '.':
			b.WriteByte('?')
			i++
		case c == '\\' && i+1 < len(expr):
			if expr[i+1] == 't' {
				b.WriteByte('\t')
			} else {
				b.WriteByte(expr[i+1])
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// RegexpSource adapts a stored expression for Go's regexp package, which
// rejects patterns that are not valid UTF-8. Invalid bytes become U+FFFD,
// which is also how regexp decodes invalid bytes in the input.
func RegexpSource(expr string) string {
	if utf8.ValidString(expr) {
		return expr
	}
	var b strings.Builder
	b.Grow(len(expr) + 8)
	for i := 0; i < len(expr); {
		r, size := utf8.DecodeRuneInString(expr[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(`\x{fffd}`)
		} else {
			b.WriteString(expr[i : i+size])
		}
		i += size
	}
	return b.String()
}
