// Package translation loads per-locale JSON translation documents and merges
// their sections for a target platform.
//
// The expected document format is:
//
//	{
//	    "locale":            { "ios": ["en", "en-GB"], "android": ["en"] },
//	    "app":               { "greeting": "Hi $@!" },
//	    "app_ios":           { "greeting": "Hello $@!" },
//	    "app_shortcuts":     { "search": "Search" },
//	    "config_android":    { "app_name": "My App" },
//	    "config_ios":        { "CFBundleDisplayName": "My App" },
//	    "settings_ios":      { "Root": { "Group": "General" } }
//	}
//
// Every section is optional. Keys keep the order they have in the file.
package translation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Platform identifiers used as section suffixes.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Bundle is a named settings bundle table.
type Bundle struct {
	Name    string
	Strings *Strings
}

// Document is a parsed translation file.
type Document struct {
	// Path is the file the document was read from.
	Path string
	// Stem is the filename without the .json extension.
	Stem string

	App       *Strings
	Shortcuts *Strings
	// PlatformApp, Config and Settings are keyed by platform identifier.
	PlatformApp map[string]*Strings
	Config      map[string]*Strings
	Settings    map[string][]Bundle
	// Locales holds the explicit locale lists keyed by platform.
	Locales map[string][]string
}

// Resolved is a document flattened for one platform.
type Resolved struct {
	Locales   []string
	App       *Strings
	Config    *Strings
	Settings  []Bundle
	Shortcuts *Strings
}

// ParseFile reads and parses a translation document.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(LocaleFromFile(path), data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse parses a translation document whose filename stem is stem.
func Parse(stem string, data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	doc := &Document{
		Stem:        stem,
		App:         &Strings{},
		Shortcuts:   &Strings{},
		PlatformApp: make(map[string]*Strings),
		Config:      make(map[string]*Strings),
		Settings:    make(map[string][]Bundle),
		Locales:     make(map[string][]string),
	}

	err := walkObject(data, func(key string, raw json.RawMessage) error {
		var err error
		switch {
		case key == "app":
			doc.App, err = parseStrings(raw)
		case key == "app_shortcuts":
			doc.Shortcuts, err = parseStrings(raw)
		case key == "locale":
			err = parseLocales(raw, doc.Locales)
		case strings.HasPrefix(key, "app_"):
			doc.PlatformApp[strings.TrimPrefix(key, "app_")], err = parseStrings(raw)
		case strings.HasPrefix(key, "config_"):
			doc.Config[strings.TrimPrefix(key, "config_")], err = parseStrings(raw)
		case strings.HasPrefix(key, "settings_"):
			var bundles []Bundle
			bundles, err = parseBundles(raw)
			doc.Settings[strings.TrimPrefix(key, "settings_")] = bundles
		}
		if err != nil {
			return fmt.Errorf("section %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func parseLocales(raw json.RawMessage, into map[string][]string) error {
	return walkObject(raw, func(platform string, v json.RawMessage) error {
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			return fmt.Errorf("locale %q: expected list of strings", platform)
		}
		into[platform] = list
		return nil
	})
}

func parseBundles(raw json.RawMessage) ([]Bundle, error) {
	var bundles []Bundle
	err := walkObject(raw, func(name string, v json.RawMessage) error {
		s, err := parseStrings(v)
		if err != nil {
			return fmt.Errorf("bundle %q: %w", name, err)
		}
		bundles = append(bundles, Bundle{Name: name, Strings: s})
		return nil
	})
	return bundles, err
}

// ForPlatform merges the document sections relevant to platform.
func (d *Document) ForPlatform(platform string) Resolved {
	r := Resolved{
		Locales:   d.LocalesFor(platform),
		App:       d.App.Overlay(d.PlatformApp[platform]),
		Config:    d.Config[platform],
		Settings:  d.Settings[platform],
		Shortcuts: d.Shortcuts,
	}
	if r.Config == nil {
		r.Config = &Strings{}
	}
	if r.Shortcuts == nil {
		r.Shortcuts = &Strings{}
	}
	return r
}

// LocalesFor returns the deduplicated locale list for platform, falling back
// to the filename stem.
func (d *Document) LocalesFor(platform string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range d.Locales[platform] {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	if len(out) == 0 {
		return []string{d.Stem}
	}
	return out
}

// LocaleFromFile derives a locale identifier from a document path.
func LocaleFromFile(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ListFiles returns the *.json files in dir, sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// WellFormedLocale reports whether l parses as a BCP 47 tag. Android-style
// region qualifiers ("pt-rBR") and underscores are tolerated.
func WellFormedLocale(l string) bool {
	l = strings.ReplaceAll(l, "_", "-")
	if i := strings.Index(l, "-r"); i > 0 && len(l) == i+4 {
		l = l[:i] + "-" + l[i+2:]
	}
	_, err := language.Parse(l)
	return err == nil
}
