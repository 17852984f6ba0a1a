package pattern

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLength(t *testing.T) {
	tests := []struct {
		pattern string
		want    int
	}{
		{"*", 0},
		{"?*", 0},
		{"", 0},
		{"mozilla/?.0 (compatible; ask jeeves/teoma*)", 41},
		{"abc", 3},
		{"*abc*", 3},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := Length(tt.pattern); got != tt.want {
				t.Errorf("Length(%q) = %d, want %d", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestLiteralPrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"stops at question mark", "mozilla/?.0 (compatible)", 32, "mozilla/"},
		{"stops at dot", "mozilla/5.0 (windows)", 32, "mozilla/5"},
		{"stops at space", "googlebot image", 32, "googlebot"},
		{"stops at backslash", `gro\xdfe`, 32, "gro"},
		{"leading wildcard", "*fast enterprise crawler*", 32, ""},
		{"truncated first", "abcdefghijklmnopqrstuvwxyz0123456789", 32, "abcdefghijklmnopqrstuvwxyz012345"},
		{"custom bound", "abcdefgh", 4, "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LiteralPrefix(tt.input, tt.max); got != tt.want {
				t.Errorf("LiteralPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPatternHash(t *testing.T) {
	if got := PatternHash("*", DefaultPrefixLength); got != CatchAllHash {
		t.Errorf("PatternHash(*) = %s, want sentinel", got)
	}
	if got := PatternHash("?", DefaultPrefixLength); got != CatchAllHash {
		t.Errorf("PatternHash(?) = %s, want sentinel", got)
	}

	a := PatternHash("mozilla/?.0 (compatible; ask jeeves/teoma*)", DefaultPrefixLength)
	b := PatternHash("mozilla/?.0 (compatible; ask jeeves/teoma*)", DefaultPrefixLength)
	if a != b {
		t.Fatalf("PatternHash not deterministic: %s vs %s", a, b)
	}
	if a != Hash("mozilla/") {
		t.Errorf("PatternHash() = %s, want hash of literal prefix", a)
	}
	if len(a) != 32 {
		t.Errorf("len(PatternHash()) = %d, want 32", len(a))
	}

	// Wildcard-led patterns hash the empty prefix, not the sentinel.
	if got := PatternHash("*fast enterprise crawler*", DefaultPrefixLength); got != Hash("") {
		t.Errorf("PatternHash(leading wildcard) = %s, want md5(\"\")", got)
	}
}

func TestHash_Known(t *testing.T) {
	if got := Hash(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("Hash(\"\") = %s", got)
	}
}

func TestPartsHash(t *testing.T) {
	header := "Mozilla/?.0 (compatible; Ask Jeeves/Teoma*)"
	if got, want := PartsHash(header), Hash("mozilla/?.0 (compatible; ask jeeves/teoma*)"); got != want {
		t.Errorf("PartsHash() = %s, want %s", got, want)
	}
	if PartsHash(header) == PatternHash(Lower(header), DefaultPrefixLength) {
		t.Error("PartsHash() must cover the whole pattern, not the literal prefix")
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates("mozilla/5.0 (compatible; ask jeeves/teoma)", DefaultPrefixLength)
	// "mozilla/5" has 9 bytes, plus empty prefix and sentinel.
	if len(got) != 11 {
		t.Fatalf("len(Candidates()) = %d, want 11", len(got))
	}
	if got[0] != Hash("mozilla/5") {
		t.Errorf("first candidate = %s, want longest prefix", got[0])
	}
	if got[8] != Hash("m") {
		t.Errorf("candidate[8] = %s, want single-byte prefix", got[8])
	}
	if got[9] != Hash("") {
		t.Errorf("candidate[9] = %s, want empty prefix", got[9])
	}
	if got[10] != CatchAllHash {
		t.Errorf("last candidate = %s, want sentinel", got[10])
	}

	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	if got := Candidates(long, DefaultPrefixLength); len(got) != 34 {
		t.Errorf("len(Candidates(long)) = %d, want 34", len(got))
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"*", `^.*$`},
		{"mozilla/?.0 (compatible; ask jeeves/teoma*)", `^mozilla\/.\.0 \(compatible; ask jeeves\/teoma.*\)$`},
		{`der gro\xdfe*`, `^der gro\\xdfe.*$`},
		{"a\tb", `^a\tb$`},
		{"x+y=z|w", `^x\+y\=z\|w$`},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := Quote(tt.pattern); got != tt.want {
				t.Errorf("Quote(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestQuote_LiteralBackslashX(t *testing.T) {
	re := regexp.MustCompile(Quote(`der gro\xdfe*`))
	if !re.MatchString(`der gro\xdfe bildersauger 2.00u`) {
		t.Error("quoted \\x sequence does not match literally")
	}
}

func TestQuote_NUL(t *testing.T) {
	p := "bot\x00name*"
	expr := Quote(p)
	if expr != "^bot\x00name.*$" {
		t.Errorf("Quote(%q) = %q, want NUL unescaped", p, expr)
	}
	if _, changed := Compress(expr); changed {
		t.Errorf("Compress(%q) found digits", expr)
	}
	if !regexp.MustCompile(expr).MatchString("bot\x00name/1.0") {
		t.Error("quoted NUL does not match literally")
	}
	if got := Unquote(expr, nil); got != p {
		t.Errorf("Unquote() = %q, want %q", got, p)
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		groups []string
		want   string
	}{
		{"plain", `^mozilla\/.\.0 \(compatible.*\)$`, nil, "mozilla/?.0 (compatible*)"},
		{"stored digits", `^opera\/[\d]\.[\d]*$`, []string{"9", "5"}, "opera/9.5*"},
		{"capture digits", `^opera\/(\d)\.(\d)*$`, []string{"9", "5"}, "opera/9.5*"},
		{"literal dollar", `^a\$$`, nil, "a$"},
		{"tab", `^a\tb$`, nil, "a\tb"},
		{"missing group kept", `^v[\d]$`, nil, `v[\d]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unquote(tt.expr, tt.groups); got != tt.want {
				t.Errorf("Unquote() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompress(t *testing.T) {
	a, changedA := Compress(Quote("opera/9.50*"))
	b, changedB := Compress(Quote("opera/8.10*"))
	if !changedA || !changedB {
		t.Fatal("Compress() reported no change for digit patterns")
	}
	if a != b {
		t.Errorf("patterns differing in digits did not collapse: %q vs %q", a, b)
	}
	if _, changed := Compress(Quote("googlebot*")); changed {
		t.Error("Compress() changed digit-free pattern")
	}

	re := regexp.MustCompile(Capturing(a))
	m := re.FindStringSubmatch("opera/8.10 (windows)")
	if m == nil {
		t.Fatal("capturing expression did not match")
	}
	if got := Unquote(a, m[1:]); got != "opera/8.10*" {
		t.Errorf("reconstructed pattern = %q, want opera/8.10*", got)
	}
}

func TestLower(t *testing.T) {
	if got := Lower("Mozilla/5.0 GRO\xdfE"); got != "mozilla/5.0 gro\xdfe" {
		t.Errorf("Lower() = %q", got)
	}
	s := "already lower"
	if got := Lower(s); got != s {
		t.Errorf("Lower() = %q", got)
	}
}

func TestRegexpSource(t *testing.T) {
	expr := Quote("gro\xdfe*")
	re, err := regexp.Compile(RegexpSource(expr))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !re.MatchString("gro\xdfe bildersauger") {
		t.Error("high-byte pattern did not match its own text")
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	printable := gen.SliceOf(gen.RuneRange(' ', '~')).Map(func(rs []rune) string {
		return string(rs)
	})

	properties.Property("unquote inverts quote", prop.ForAll(
		func(p string) bool {
			return Unquote(Quote(p), nil) == p
		},
		printable,
	))

	properties.Property("quoted pattern matches its own text", prop.ForAll(
		func(p string) bool {
			re, err := regexp.Compile(Quote(p))
			if err != nil {
				return false
			}
			return re.MatchString(p)
		},
		printable,
	))

	properties.Property("compressed pattern reconstructs from its own text", prop.ForAll(
		func(p string) bool {
			compressed, _ := Compress(Quote(p))
			re, err := regexp.Compile(Capturing(compressed))
			if err != nil {
				return false
			}
			m := re.FindStringSubmatch(p)
			if m == nil {
				return false
			}
			return Unquote(compressed, m[1:]) == p
		},
		gen.SliceOf(gen.RuneRange('0', 'z')).Map(func(rs []rune) string { return string(rs) }),
	))

	properties.Property("hash is 32 hex chars or the sentinel", prop.ForAll(
		func(p string) bool {
			h := PatternHash(p, DefaultPrefixLength)
			if Length(p) == 0 {
				return h == CatchAllHash
			}
			if len(h) != 32 {
				return false
			}
			_, err := PatternSpace.ShardFor(h)
			return err == nil
		},
		printable,
	))

	properties.TestingRun(t)
}
