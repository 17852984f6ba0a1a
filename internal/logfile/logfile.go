// Package logfile extracts User-Agent strings from web server access logs
// in the Apache/Nginx combined format, where the User-Agent is the last
// double-quoted field of a line.
package logfile

import (
	"bufio"
	"io"
	"strings"
)

// MaxLineSize bounds a single log line.
const MaxLineSize = 1 << 20

// Scanner reads User-Agents line by line. Lines without a quoted field are
// counted as malformed and skipped.
//
//	s := logfile.NewScanner(r)
//	for s.Next() {
//		ua := s.UserAgent()
//	}
//	if err := s.Err(); err != nil { ... }
type Scanner struct {
	lines     *bufio.Scanner
	ua        string
	read      int
	malformed int
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return &Scanner{lines: lines}
}

// Next advances to the next well-formed line.
func (s *Scanner) Next() bool {
	for s.lines.Scan() {
		line := strings.TrimRight(s.lines.Text(), " \t\r")
		if line == "" {
			continue
		}
		s.read++
		ua, ok := UserAgent(line)
		if !ok {
			s.malformed++
			continue
		}
		s.ua = ua
		return true
	}
	return false
}

// UserAgent returns the User-Agent of the current line.
func (s *Scanner) UserAgent() string {
	return s.ua
}

// Err returns the first read error.
func (s *Scanner) Err() error {
	return s.lines.Err()
}

// Lines returns the number of non-blank lines read so far.
func (s *Scanner) Lines() int {
	return s.read
}

// Malformed returns the number of skipped lines.
func (s *Scanner) Malformed() int {
	return s.malformed
}

// UserAgent extracts the last double-quoted field of line. Backslash-escaped
// quotes inside the field are unescaped.
func UserAgent(line string) (string, bool) {
	end := strings.LastIndexByte(line, '"')
	if end < 0 {
		return "", false
	}
	for start := end - 1; start >= 0; start-- {
		if line[start] != '"' || escaped(line, start) {
			continue
		}
		field := line[start+1 : end]
		if field == "-" {
			field = ""
		}
		return strings.ReplaceAll(field, `\"`, `"`), true
	}
	return "", false
}

// escaped reports whether the byte at i is preceded by an odd number of
// backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
