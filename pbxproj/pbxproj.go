// Package pbxproj edits the object graph of an Xcode project.pbxproj file.
//
// Only the operations needed to register localized resources are provided:
// variant group lookup and creation, resource file references and known
// regions. The graph is held in memory and written back once with Write.
package pbxproj

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"howett.net/plist"
)

const header = "// !$*UTF8*$!\n"

// Object ISA names used by this package.
const (
	isaBuildFile           = "PBXBuildFile"
	isaFileReference       = "PBXFileReference"
	isaGroup               = "PBXGroup"
	isaNativeTarget        = "PBXNativeTarget"
	isaProject             = "PBXProject"
	isaResourcesBuildPhase = "PBXResourcesBuildPhase"
	isaVariantGroup        = "PBXVariantGroup"
)

// Project is an in-memory project.pbxproj.
type Project struct {
	path    string
	root    map[string]any
	objects map[string]any
	dirty   bool
}

// Open reads and parses the project file at path.
func Open(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.path = path
	return p, nil
}

// Parse parses project.pbxproj content.
func Parse(data []byte) (*Project, error) {
	var root map[string]any
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	objects, ok := root["objects"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("no objects dictionary")
	}
	return &Project{root: root, objects: objects}, nil
}

// Path returns the file the project was opened from.
func (p *Project) Path() string { return p.path }

// Dirty reports whether the graph changed since it was opened.
func (p *Project) Dirty() bool { return p.dirty }

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func (p *Project) object(key string) map[string]any {
	o, _ := p.objects[key].(map[string]any)
	return o
}

// keysOfISA returns the keys of all objects of the given ISA, sorted.
func (p *Project) keysOfISA(isa string) []string {
	var keys []string
	for k := range p.objects {
		if str(p.object(k), "isa") == isa {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (p *Project) projectObject() map[string]any {
	key, _ := p.root["rootObject"].(string)
	if o := p.object(key); o != nil {
		return o
	}
	if keys := p.keysOfISA(isaProject); len(keys) > 0 {
		return p.object(keys[0])
	}
	return nil
}

// FindVariantGroupKey returns the key of the PBXVariantGroup named name.
func (p *Project) FindVariantGroupKey(name string) (string, bool) {
	for _, k := range p.keysOfISA(isaVariantGroup) {
		if unquote(str(p.object(k), "name")) == name {
			return k, true
		}
	}
	return "", false
}

// HasFile reports whether a file reference with the given path exists.
func (p *Project) HasFile(path string) bool {
	for _, k := range p.keysOfISA(isaFileReference) {
		if unquote(str(p.object(k), "path")) == path {
			return true
		}
	}
	return false
}

// resourcesGroupKey returns the PBXGroup named "Resources", or the project's
// main group when there is none.
func (p *Project) resourcesGroupKey() (string, bool) {
	for _, k := range p.keysOfISA(isaGroup) {
		o := p.object(k)
		if unquote(str(o, "name")) == "Resources" || filepath.Base(unquote(str(o, "path"))) == "Resources" {
			return k, true
		}
	}
	if proj := p.projectObject(); proj != nil {
		if k := str(proj, "mainGroup"); p.object(k) != nil {
			return k, true
		}
	}
	return "", false
}

// resourcesBuildPhaseKey returns the resources build phase of the first
// target, falling back to any resources build phase.
func (p *Project) resourcesBuildPhaseKey() (string, bool) {
	if proj := p.projectObject(); proj != nil {
		for _, t := range list(proj, "targets") {
			target := p.object(t)
			if str(target, "isa") != isaNativeTarget {
				continue
			}
			for _, ph := range list(target, "buildPhases") {
				if str(p.object(ph), "isa") == isaResourcesBuildPhase {
					return ph, true
				}
			}
			break
		}
	}
	if keys := p.keysOfISA(isaResourcesBuildPhase); len(keys) > 0 {
		return keys[0], true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

// AddLocalizationVariantGroup creates a PBXVariantGroup named name, places it
// in the Resources group and the resources build phase, and returns its key.
func (p *Project) AddLocalizationVariantGroup(name string) (string, error) {
	groupParent, ok := p.resourcesGroupKey()
	if !ok {
		return "", fmt.Errorf("no Resources or main group to hold %q", name)
	}

	key := p.newID()
	p.objects[key] = map[string]any{
		"isa":        isaVariantGroup,
		"children":   []any{},
		"name":       name,
		"sourceTree": "<group>",
	}
	appendList(p.object(groupParent), "children", key)

	if phase, ok := p.resourcesBuildPhaseKey(); ok {
		buildFile := p.newID()
		p.objects[buildFile] = map[string]any{
			"isa":     isaBuildFile,
			"fileRef": key,
		}
		appendList(p.object(phase), "files", buildFile)
	}

	p.dirty = true
	return key, nil
}

// AddResourceFile adds a file reference for path (relative to the variant
// group) named after its locale to the variant group groupKey. Paths that are
// already referenced are skipped; the result reports whether a reference was
// added.
func (p *Project) AddResourceFile(path, name, groupKey string) (bool, error) {
	group := p.object(groupKey)
	if str(group, "isa") != isaVariantGroup {
		return false, fmt.Errorf("%s is not a variant group", groupKey)
	}
	if p.HasFile(path) {
		return false, nil
	}

	key := p.newID()
	p.objects[key] = map[string]any{
		"isa":               isaFileReference,
		"lastKnownFileType": "text.plist.strings",
		"name":              name,
		"path":              path,
		"sourceTree":        "<group>",
	}
	appendList(group, "children", key)
	p.dirty = true
	return true, nil
}

// AddKnownRegion adds region to the project's knownRegions list.
func (p *Project) AddKnownRegion(region string) bool {
	proj := p.projectObject()
	if proj == nil {
		return false
	}
	for _, r := range list(proj, "knownRegions") {
		if unquote(r) == region {
			return false
		}
	}
	appendList(proj, "knownRegions", region)
	p.dirty = true
	return true
}

// newID returns an unused 24 character object identifier.
func (p *Project) newID() string {
	for {
		id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:24]
		if _, taken := p.objects[id]; !taken {
			return id
		}
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal serializes the project in OpenStep format.
func (p *Project) Marshal() ([]byte, error) {
	body, err := plist.MarshalIndent(p.root, plist.OpenStepFormat, "\t")
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString(header)
	b.Write(body)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Write replaces the project file on disk. The new content is written to a
// temporary file in the same directory and renamed over the original.
func (p *Project) Write() error {
	if p.path == "" {
		return fmt.Errorf("project path not set")
	}
	data, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", p.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".project.pbxproj-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", p.path, err)
	}
	defer os.Remove(tmp.Name())

	if fi, err := os.Stat(p.path); err == nil {
		_ = tmp.Chmod(fi.Mode().Perm())
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", p.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", p.path, err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("writing %s: %w", p.path, err)
	}
	p.dirty = false
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func str(o map[string]any, key string) string {
	s, _ := o[key].(string)
	return s
}

func list(o map[string]any, key string) []string {
	items, _ := o[key].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func appendList(o map[string]any, key, value string) {
	items, _ := o[key].([]any)
	o[key] = append(items, value)
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
