// Package android reads, merges and writes Android strings.xml resource files.
//
// A File keeps every child of <resources> in document order. Only <string>
// elements are addressable by name; everything else (string-array, plurals,
// comments, other resource types) is carried through verbatim so an upsert
// never disturbs entries it does not own.
//
// String values are held in their on-disk form: the inner XML of the element,
// with Android escapes (\') and XML entities as written.
package android

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the resource file written in every values directory.
const FileName = "strings.xml"

// ---------------------------------------------------------------------------
// Data model
// ---------------------------------------------------------------------------

// EntryKind identifies the type of a child of <resources>.
type EntryKind int

const (
	// KindString is a <string> resource.
	KindString EntryKind = iota
	// KindOther is any other element or comment, kept as raw bytes.
	KindOther
)

// Entry is a single child of <resources>.
type Entry struct {
	Kind EntryKind
	// Name is the name attribute of a <string>. Empty for KindOther.
	Name string
	// Value is the inner XML of a <string>.
	Value string

	// raw is the element as read from disk; reused on Marshal while the
	// entry is unmodified.
	raw []byte
	// startTag is the raw opening tag of a <string>, attributes included.
	startTag []byte
	dirty    bool
}

// File represents a parsed strings.xml file.
type File struct {
	Entries []*Entry

	// prolog is everything before the <resources> start tag.
	prolog []byte
	// rootTag is the raw <resources ...> start tag.
	rootTag []byte
	byName  map[string]int
}

const defaultProlog = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"

// New returns an empty container.
func New() *File {
	return &File{byName: make(map[string]int)}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses an Android strings.xml file.
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

// Load is ParseFile that treats a missing file as an empty container.
func Load(path string) (*File, error) {
	f, err := ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	return f, err
}

// Parse parses Android strings.xml data.
func Parse(data []byte) (*File, error) {
	f := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return f, nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	inResources := false
	seenResources := false

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inResources {
				if t.Name.Local != "resources" {
					return nil, fmt.Errorf("unexpected root element <%s>", t.Name.Local)
				}
				if seenResources {
					return nil, fmt.Errorf("multiple <resources> elements")
				}
				inResources, seenResources = true, true
				f.prolog = append([]byte(nil), data[:start]...)
				f.rootTag = openTag(data[start:dec.InputOffset()])
				continue
			}

			if t.Name.Local == "string" {
				e, err := parseString(dec, data, start, t)
				if err != nil {
					return nil, err
				}
				f.addEntry(e)
				continue
			}

			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("reading <%s>: %w", t.Name.Local, err)
			}
			f.addEntry(&Entry{Kind: KindOther, raw: clone(data[start:dec.InputOffset()])})

		case xml.Comment:
			if inResources {
				f.addEntry(&Entry{Kind: KindOther, raw: clone(data[start:dec.InputOffset()])})
			}

		case xml.EndElement:
			if t.Name.Local == "resources" {
				inResources = false
			}
		}
	}

	if !seenResources {
		return nil, fmt.Errorf("missing <resources> element")
	}
	return f, nil
}

// parseString reads a <string> element whose start tag has just been consumed.
func parseString(dec *xml.Decoder, data []byte, start int64, elem xml.StartElement) (*Entry, error) {
	name := ""
	for _, attr := range elem.Attr {
		if attr.Name.Local == "name" {
			name = attr.Value
		}
	}
	innerStart := dec.InputOffset()
	innerEnd := innerStart

	depth := 1
	for depth > 0 {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading <string name=%q>: %w", name, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				innerEnd = before
			}
		}
	}

	return &Entry{
		Kind:     KindString,
		Name:     name,
		Value:    string(data[innerStart:innerEnd]),
		raw:      clone(data[start:dec.InputOffset()]),
		startTag: clone(data[start:innerStart]),
	}, nil
}

// openTag turns a self-closing start tag into an opening one.
func openTag(tag []byte) []byte {
	s := strings.TrimSpace(string(tag))
	if strings.HasSuffix(s, "/>") {
		s = strings.TrimRight(strings.TrimSuffix(s, "/>"), " \t\r\n") + ">"
	}
	return []byte(s)
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// addEntry appends an entry and registers it in byName if it has a name.
func (f *File) addEntry(e *Entry) {
	idx := len(f.Entries)
	f.Entries = append(f.Entries, e)
	if e.Kind == KindString && e.Name != "" {
		if _, dup := f.byName[e.Name]; !dup {
			f.byName[e.Name] = idx
		}
	}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns the names of all <string> resources in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.Entries {
		if e.Kind == KindString {
			keys = append(keys, e.Name)
		}
	}
	return keys
}

// Get returns the stored value of a <string> resource.
func (f *File) Get(name string) (string, bool) {
	idx, ok := f.byName[name]
	if !ok {
		return "", false
	}
	return f.Entries[idx].Value, true
}

// Set stores an already encoded value under name: the existing element is
// updated in place, otherwise a new element is appended. It reports whether
// the file changed.
func (f *File) Set(name, value string) bool {
	if idx, ok := f.byName[name]; ok {
		e := f.Entries[idx]
		if e.Value == value {
			return false
		}
		e.Value = value
		e.dirty = true
		return true
	}
	f.addEntry(&Entry{Kind: KindString, Name: name, Value: value, dirty: true})
	return true
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteFile writes the file to disk, creating parent directories.
func (f *File) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, f.Marshal(), 0644)
}

// Marshal produces the XML document. Untouched entries are written as read;
// every entry sits on its own line indented by four spaces.
func (f *File) Marshal() []byte {
	var b bytes.Buffer

	if len(f.prolog) > 0 {
		b.Write(f.prolog)
	} else {
		b.WriteString(defaultProlog)
	}
	if len(f.rootTag) > 0 {
		b.Write(f.rootTag)
	} else {
		b.WriteString("<resources>")
	}
	b.WriteByte('\n')

	for _, e := range f.Entries {
		b.WriteString("    ")
		b.Write(e.render())
		b.WriteByte('\n')
	}

	b.WriteString("</resources>\n")
	return b.Bytes()
}

func (e *Entry) render() []byte {
	if !e.dirty && len(e.raw) > 0 {
		return e.raw
	}
	tag := fmt.Sprintf(`<string name="%s">`, attrEscape(e.Name))
	if len(e.startTag) > 0 && !bytes.HasSuffix(e.startTag, []byte("/>")) {
		tag = string(e.startTag)
	}
	return []byte(tag + e.Value + "</string>")
}

func attrEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// ---------------------------------------------------------------------------
// Encoding and paths
// ---------------------------------------------------------------------------

// Encode converts a translation value into strings.xml inner text: Mac-style
// positional placeholders ($@) become Android ones ($s), apostrophes are
// backslash-escaped and XML special characters become entities.
func Encode(value string) string {
	value = strings.ReplaceAll(value, "$@", "$s")
	value = strings.ReplaceAll(value, "'", `\'`)
	value = strings.ReplaceAll(value, "&", "&amp;")
	value = strings.ReplaceAll(value, "<", "&lt;")
	return strings.ReplaceAll(value, ">", "&gt;")
}

// ValuesDir returns the values directory name for locale: "values" for the
// default locale, "values-<locale>" otherwise.
func ValuesDir(locale, defaultLocale string) string {
	if locale == defaultLocale {
		return "values"
	}
	return "values-" + locale
}

// StringsXMLPath returns the strings.xml path for locale under resDir.
func StringsXMLPath(resDir, locale, defaultLocale string) string {
	return filepath.Join(resDir, ValuesDir(locale, defaultLocale), FileName)
}

// ---------------------------------------------------------------------------
// Upsert
// ---------------------------------------------------------------------------

// Pair is an encoded key/value pair.
type Pair struct {
	Key   string
	Value string
}

// Upsert merges pairs into the strings.xml at path, creating it if needed.
// The file is rewritten only when its content changes.
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
