package inject

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/locbridge/dotstrings"
	"github.com/minios-linux/locbridge/i18n"
	"github.com/minios-linux/locbridge/pbxproj"
	"github.com/minios-linux/locbridge/translation"
)

// IOSProject locates the pieces of a Cordova iOS platform.
type IOSProject struct {
	// Dir is the platform directory, usually platforms/ios.
	Dir string
	// Name is the Xcode project name without the .xcodeproj suffix.
	Name string
	// Resources is the root the .lproj directories are written to.
	Resources string
	// PBXProj is the project.pbxproj path.
	PBXProj string
}

// Registration is a .strings file that must be referenced from the Xcode
// variant group named Group.
type Registration struct {
	Group  string
	Path   string // <locale>.lproj/<file>, relative to the Resources group
	Locale string
}

// iosProject finds the Xcode project under the iOS platform directory.
// When several exist, the one named after the app wins.
func (c *Context) iosProject() (*IOSProject, error) {
	dir := c.IOSDir
	if dir == "" {
		dir = filepath.Join(c.Root, "platforms", translation.PlatformIOS)
	}
	if !isDir(dir) {
		return nil, precondition(i18n.T("iOS platform not found at %s"), c.rel(dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, precondition(i18n.T("cannot read %s: %w"), c.rel(dir), err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && filepath.Ext(e.Name()) == ".xcodeproj" {
			names = append(names, strings.TrimSuffix(e.Name(), ".xcodeproj"))
		}
	}
	if len(names) == 0 {
		return nil, precondition(i18n.T("Couldn't find Xcode project at %s"), c.rel(dir))
	}

	name := names[0]
	for _, n := range names {
		if n == c.AppName {
			name = n
			break
		}
	}
	return &IOSProject{
		Dir:       dir,
		Name:      name,
		Resources: filepath.Join(dir, name, "Resources"),
		PBXProj:   filepath.Join(dir, name+".xcodeproj", "project.pbxproj"),
	}, nil
}

// iosPairs encodes a mapping for a .strings file.
func iosPairs(s *translation.Strings) []dotstrings.Pair {
	pairs := make([]dotstrings.Pair, 0, s.Len())
	s.Each(func(key, value string) {
		pairs = append(pairs, dotstrings.Pair{Key: dotstrings.Encode(key), Value: dotstrings.Encode(value)})
	})
	return pairs
}

// RunIOS writes the .strings files of every document and then registers
// them in the Xcode project with a single Commit.
func RunIOS(c *Context, docs []*translation.Document) (*Report, error) {
	proj, err := c.iosProject()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(proj.PBXProj); err != nil {
		return nil, precondition(i18n.T("cannot read Xcode project: %w"), err)
	}

	r := &Report{Platform: translation.PlatformIOS}
	c.log().Info(i18n.T("Injecting iOS strings"), "project", proj.Name, "resources", c.rel(proj.Resources))

	var regs []Registration
	for _, doc := range docs {
		res := doc.ForPlatform(translation.PlatformIOS)
		c.checkLocales(doc, res.Locales)
		c.log().Info(i18n.T("Adding"), "file", filepath.Base(doc.Path), "locales", strings.Join(res.Locales, ", "))

		added, err := c.writeIOS(r, proj, res)
		// Files written before a failure are still registered.
		regs = append(regs, added...)
		if err != nil {
			c.log().Warn(i18n.T("Skipping document"), "file", c.rel(doc.Path), "error", err)
			r.skip(&DocumentError{Path: doc.Path, Err: err})
			continue
		}
		r.Documents++
	}

	n, written, err := Commit(proj.PBXProj, regs)
	if err != nil {
		return r, err
	}
	r.Registered = n
	r.ProjectWritten = written
	if written {
		c.log().Info(i18n.T("Updated Xcode project"), "path", c.rel(proj.PBXProj), "files", n)
	}
	return r, nil
}

type iosTable struct {
	file    string
	strings *translation.Strings
}

// writeIOS upserts the tables of one resolved document. Settings bundle
// files are written but not registered in the project.
func (c *Context) writeIOS(r *Report, proj *IOSProject, res translation.Resolved) ([]Registration, error) {
	for _, b := range res.Settings {
		if err := checkBundleName(b.Name); err != nil {
			return nil, err
		}
	}

	var regs []Registration
	tables := []iosTable{
		{dotstrings.LocalizableFile, res.App},
		{dotstrings.InfoPlistFile, res.Config},
		{dotstrings.ShortcutsFile, res.Shortcuts},
	}
	for _, t := range tables {
		pairs := iosPairs(t.strings)
		if len(pairs) == 0 {
			continue
		}
		for _, locale := range res.Locales {
			rel := dotstrings.Path("", locale, t.file)
			if err := c.upsertStrings(r, filepath.Join(proj.Resources, rel), pairs); err != nil {
				return regs, err
			}
			regs = append(regs, Registration{Group: t.file, Path: filepath.ToSlash(rel), Locale: locale})
		}
	}

	for _, b := range res.Settings {
		pairs := iosPairs(b.Strings)
		if len(pairs) == 0 {
			continue
		}
		for _, locale := range res.Locales {
			path := filepath.Join(proj.Resources, dotstrings.Path(dotstrings.SettingsBundle, locale, b.Name+".strings"))
			if err := c.upsertStrings(r, path, pairs); err != nil {
				return regs, err
			}
		}
	}
	return regs, nil
}

// checkBundleName rejects settings bundle table names that would leave
// the Settings.bundle directory.
func checkBundleName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf(i18n.T("invalid settings bundle name %q"), name)
	}
	return nil
}

func (c *Context) upsertStrings(r *Report, path string, pairs []dotstrings.Pair) error {
	changed, err := dotstrings.Upsert(path, pairs)
	if err != nil {
		return err
	}
	r.record(c.rel(path), changed)
	if changed {
		c.log().Debug(i18n.T("Wrote"), "path", c.rel(path), "entries", len(pairs))
	}
	return nil
}

// Commit registers regs in the project at path. Each variant group is
// resolved or created once, files already referenced are skipped and every
// locale is added to knownRegions. The project is written at most once and
// only when something changed. It returns the number of file references
// added and whether the project was written.
func Commit(path string, regs []Registration) (int, bool, error) {
	if len(regs) == 0 {
		return 0, false, nil
	}
	p, err := pbxproj.Open(path)
	if err != nil {
		return 0, false, precondition("%w", err)
	}

	groups := make(map[string]string)
	added := 0
	for _, reg := range regs {
		key, ok := groups[reg.Group]
		if !ok {
			key, ok = p.FindVariantGroupKey(reg.Group)
			if !ok {
				key, err = p.AddLocalizationVariantGroup(reg.Group)
				if err != nil {
					return added, false, err
				}
			}
			groups[reg.Group] = key
		}

		ok, err = p.AddResourceFile(reg.Path, reg.Locale, key)
		if err != nil {
			return added, false, err
		}
		if ok {
			added++
		}
		p.AddKnownRegion(reg.Locale)
	}

	if !p.Dirty() {
		return added, false, nil
	}
	if err := p.Write(); err != nil {
		return added, false, err
	}
	return added, true, nil
}
