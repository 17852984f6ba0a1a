package pattern

import "strings"

// Digit tokens. Stored expressions use the class form; the matcher swaps in
// the capturing form so the digits a query matched can be put back into the
// pattern to find its property record.
const (
	DigitToken   = `[\d]`
	CaptureToken = `(\d)`
)

// Compress replaces every ASCII digit of a quoted expression with DigitToken.
// Patterns differing only in their digits collapse to one expression.
// Reports whether anything was replaced.
func Compress(expr string) (string, bool) {
	if strings.IndexAny(expr, "0123456789") < 0 {
		return expr, false
	}
	var b strings.Builder
	b.Grow(len(expr) * 2)
	for i := 0; i < len(expr); i++ {
		if c := expr[i]; c >= '0' && c <= '9' {
			b.WriteString(DigitToken)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

// Capturing rewrites DigitToken to CaptureToken.
func Capturing(expr string) string {
	return strings.ReplaceAll(expr, DigitToken, CaptureToken)
}

func digitTokenAt(expr string, i int) (string, bool) {
	if expr[i] != '[' && expr[i] != '(' {
		return "", false
	}
	rest := expr[i:]
	switch {
	case strings.HasPrefix(rest, DigitToken):
		return DigitToken, true
	case strings.HasPrefix(rest, CaptureToken):
		return CaptureToken, true
	}
	return "", false
}
