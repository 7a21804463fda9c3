// Package dotstrings reads, merges and writes Apple .strings files.
//
// Entries are written one per line as
//
//	"key" = "value";
//
// Keys and values are stored exactly as they appear between the quotes, so
// escape sequences written by hand survive a read-modify-write cycle.
// Comments and entries this package does not touch are kept in order.
package dotstrings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Well-known file names written into <locale>.lproj directories.
const (
	LocalizableFile = "Localizable.strings"
	InfoPlistFile   = "InfoPlist.strings"
	ShortcutsFile   = "AppShortcuts.strings"
	SettingsBundle  = "Settings.bundle"
)

type entry struct {
	key   string
	value string
	// comment holds a raw /* */ or // comment; key and value are empty then.
	comment string
}

// File is a parsed .strings file.
type File struct {
	entries []*entry
	index   map[string]int
}

// New returns an empty file.
func New() *File {
	return &File{index: make(map[string]int)}
}

// ParseFile reads and parses a .strings file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// Load is ParseFile that treats a missing file as empty.
func Load(path string) (*File, error) {
	f, err := ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	return f, err
}

// Parse parses .strings content. A UTF-8 byte order mark is ignored.
func Parse(data []byte) (*File, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	f := New()
	s := &scanner{src: string(data), line: 1}

	for {
		s.skipSpace()
		if s.eof() {
			return f, nil
		}

		if c, ok := s.comment(); ok {
			f.add(&entry{comment: c})
			continue
		}

		key, err := s.token()
		if err != nil {
			return nil, err
		}
		if err := s.expect('='); err != nil {
			return nil, err
		}
		value, err := s.token()
		if err != nil {
			return nil, err
		}
		if err := s.expect(';'); err != nil {
			return nil, err
		}
		f.Set(key, value)
	}
}

func (f *File) add(e *entry) {
	if e.comment == "" {
		f.index[e.key] = len(f.entries)
	}
	f.entries = append(f.entries, e)
}

// Len returns the number of key/value entries.
func (f *File) Len() int { return len(f.index) }

// Keys returns keys in file order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.entries {
		if e.comment == "" {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Get returns the stored (escaped) value for key.
func (f *File) Get(key string) (string, bool) {
	i, ok := f.index[key]
	if !ok {
		return "", false
	}
	return f.entries[i].value, true
}

// Set stores an escaped value. It reports whether the file changed.
func (f *File) Set(key, value string) bool {
	if i, ok := f.index[key]; ok {
		if f.entries[i].value == value {
			return false
		}
		f.entries[i].value = value
		return true
	}
	f.add(&entry{key: key, value: value})
	return true
}

// Marshal renders the file, one entry or comment per line.
func (f *File) Marshal() []byte {
	var b strings.Builder
	for _, e := range f.entries {
		if e.comment != "" {
			b.WriteString(e.comment)
		} else {
			fmt.Fprintf(&b, "\"%s\" = \"%s\";", e.key, e.value)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// WriteFile writes the file, creating parent directories.
func (f *File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, f.Marshal(), 0644)
}

// Encode escapes a raw translation value for use between double quotes.
// Bare double quotes are escaped and existing escape sequences are kept. A
// trailing unpaired backslash is doubled so it cannot escape the closing
// quote.
func Encode(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

// Path returns the location of a .strings file relative to the resources
// root: [bundle/]<locale>.lproj/<filename>.
func Path(bundle, locale, filename string) string {
	return filepath.Join(bundle, locale+".lproj", filename)
}

// Pair is an escaped key/value pair.
type Pair struct {
	Key   string
	Value string
}

// Upsert merges pairs into the .strings file at path, creating it when
// missing. The file is rewritten only when its content changes.
func Upsert(path string, pairs []Pair) (bool, error) {
	if len(pairs) == 0 {
		return false, nil
	}
	f, err := Load(path)
	if err != nil {
		return false, err
	}
	changed := false
	for _, p := range pairs {
		if f.Set(p.Key, p.Value) {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	if err := f.WriteFile(path); err != nil {
		return false, err
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Scanner
// ---------------------------------------------------------------------------

type scanner struct {
	src  string
	pos  int
	line int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", s.line, fmt.Sprintf(format, args...))
}

func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.src[s.pos] {
		case '\n':
			s.line++
			s.pos++
		case ' ', '\t', '\r':
			s.pos++
		default:
			return
		}
	}
}

// comment consumes a comment at the current position.
func (s *scanner) comment() (string, bool) {
	rest := s.src[s.pos:]
	switch {
	case strings.HasPrefix(rest, "//"):
		end := strings.IndexByte(rest, '\n')
		if end < 0 {
			end = len(rest)
		}
		s.pos += end
		return strings.TrimRight(rest[:end], "\r"), true
	case strings.HasPrefix(rest, "/*"):
		end := strings.Index(rest[2:], "*/")
		if end < 0 {
			end = len(rest)
		} else {
			end += 4
		}
		c := rest[:end]
		s.line += strings.Count(c, "\n")
		s.pos += end
		return c, true
	}
	return "", false
}

// token reads a quoted string (escapes kept verbatim) or a bare word.
func (s *scanner) token() (string, error) {
	s.skipSpaceAndComments()
	if s.eof() {
		return "", s.errorf("unexpected end of input")
	}
	if s.src[s.pos] == '"' {
		start := s.pos + 1
		for i := start; i < len(s.src); i++ {
			switch s.src[i] {
			case '\\':
				i++
			case '\n':
				s.line++
			case '"':
				s.pos = i + 1
				return s.src[start:i], nil
			}
		}
		return "", s.errorf("unterminated string")
	}

	start := s.pos
	for !s.eof() && isBare(s.src[s.pos]) {
		s.pos++
	}
	if start == s.pos {
		return "", s.errorf("unexpected %q", s.src[s.pos])
	}
	return s.src[start:s.pos], nil
}

func (s *scanner) expect(c byte) error {
	s.skipSpaceAndComments()
	if s.eof() {
		return s.errorf("expected %q, got end of input", c)
	}
	if s.src[s.pos] != c {
		return s.errorf("expected %q, got %q", c, s.src[s.pos])
	}
	s.pos++
	return nil
}

// skipSpaceAndComments drops comments found between tokens of one entry.
func (s *scanner) skipSpaceAndComments() {
	for {
		s.skipSpace()
		if _, ok := s.comment(); !ok {
			return
		}
	}
}

func isBare(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		strings.IndexByte("_$+/:.-", c) >= 0
}
