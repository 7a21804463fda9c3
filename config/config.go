// Package config implements auto-detection of project settings
// from the Cordova config.xml and package.json files.
package config

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPluginID is the plugin whose variables configure a run.
const DefaultPluginID = "cordova-plugin-localization-strings"

// DefaultLocale is used when config.xml does not declare one.
const DefaultLocale = "en"

// TranslationPathVariable is the plugin variable naming the translation directory.
const TranslationPathVariable = "TRANSLATION_PATH"

// Project holds metadata detected from the host Cordova project.
type Project struct {
	// Root is the absolute project root.
	Root string
	// Name is the first <name> element of config.xml.
	Name string
	// DefaultLocale is the widget defaultLocale attribute.
	DefaultLocale string
	// HasConfigXML reports whether config.xml was found.
	HasConfigXML bool
	// Variables are the plugin variables, config.xml winning over package.json.
	Variables map[string]string
	// Platforms lists the directories found under platforms/.
	Platforms []string
}

// Variable returns a plugin variable by name.
func (p *Project) Variable(name string) (string, bool) {
	v, ok := p.Variables[name]
	return v, ok
}

type widgetXML struct {
	XMLName       xml.Name    `xml:"widget"`
	DefaultLocale string      `xml:"defaultLocale,attr"`
	Names         []string    `xml:"name"`
	Plugins       []pluginXML `xml:"plugin"`
}

type pluginXML struct {
	Name      string `xml:"name,attr"`
	Variables []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	} `xml:"variable"`
}

type packageJSON struct {
	Cordova struct {
		Plugins map[string]map[string]any `json:"plugins"`
	} `json:"cordova"`
}

// Detect reads project metadata below rootDir for the given plugin.
// Missing metadata files are not an error; malformed ones are.
func Detect(rootDir, pluginID string) (*Project, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}
	if pluginID == "" {
		pluginID = DefaultPluginID
	}

	p := &Project{
		Root:          absRoot,
		DefaultLocale: DefaultLocale,
		Variables:     make(map[string]string),
	}

	vars, err := readPackageJSON(filepath.Join(absRoot, "package.json"), pluginID)
	if err != nil {
		return nil, err
	}
	for k, v := range vars {
		p.Variables[k] = v
	}

	w, err := readConfigXML(filepath.Join(absRoot, "config.xml"))
	if err != nil {
		return nil, err
	}
	if w != nil {
		p.HasConfigXML = true
		if w.DefaultLocale != "" {
			p.DefaultLocale = w.DefaultLocale
		}
		if len(w.Names) > 0 {
			p.Name = strings.TrimSpace(w.Names[0])
		}
		for _, pl := range w.Plugins {
			if pl.Name != pluginID {
				continue
			}
			for _, v := range pl.Variables {
				p.Variables[v.Name] = v.Value
			}
		}
	}

	p.Platforms = detectPlatforms(absRoot)
	return p, nil
}

func readConfigXML(path string) (*widgetXML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var w widgetXML
	if err := xml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &w, nil
}

func readPackageJSON(path, pluginID string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	vars := make(map[string]string)
	for k, v := range pkg.Cordova.Plugins[pluginID] {
		if v == nil {
			continue
		}
		vars[k] = fmt.Sprint(v)
	}
	return vars, nil
}

// detectPlatforms returns the sorted directory names under platforms/.
func detectPlatforms(root string) []string {
	entries, err := os.ReadDir(filepath.Join(root, "platforms"))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}
