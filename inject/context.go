// Package inject writes translation documents into the native resources of
// a Cordova project: Android strings.xml tables, iOS .strings files and the
// Xcode project entries that reference them.
//
// A run is strictly sequential. Each document is fully processed before the
// next one is read, and each platform before the next platform.
package inject

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/locbridge/config"
	"github.com/minios-linux/locbridge/i18n"
	"github.com/minios-linux/locbridge/logger"
	"github.com/minios-linux/locbridge/translation"
)

// Context is computed once per run and passed to every step.
type Context struct {
	// Root is the project root.
	Root string
	// AppName is the <name> from config.xml; it selects the Xcode project
	// when platforms/ios holds more than one.
	AppName string
	// DefaultLocale maps to the Android "values" directory.
	DefaultLocale string
	// TranslationDir holds the *.json translation documents.
	TranslationDir string
	// AndroidResDir overrides discovery of the Android res directory.
	AndroidResDir string
	// IOSDir overrides platforms/ios.
	IOSDir string
	// Platforms are the directories found under platforms/.
	Platforms []string

	Log *slog.Logger
}

// NewContext builds a run context from resolved settings.
func NewContext(s *config.Settings, log *slog.Logger) (*Context, error) {
	if err := s.Validate(); err != nil {
		return nil, &PreconditionError{Err: err}
	}
	if log == nil {
		log = logger.Get()
	}
	c := &Context{
		Root:           s.Root,
		DefaultLocale:  s.DefaultLocale,
		TranslationDir: s.TranslationDir(),
		AndroidResDir:  s.AndroidResDir(),
		IOSDir:         s.IOSProjectDir(),
		Log:            log,
	}
	if s.Project != nil {
		c.AppName = s.Project.Name
		c.Platforms = s.Project.Platforms
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = config.DefaultLocale
	}
	return c, nil
}

func (c *Context) log() *slog.Logger {
	if c.Log == nil {
		c.Log = logger.Get()
	}
	return c.Log
}

// rel returns path relative to the project root for display.
func (c *Context) rel(path string) string {
	if r, err := filepath.Rel(c.Root, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}

// Documents lists and parses the translation documents in file name order.
// A missing translation directory is a precondition failure. Documents that
// fail to parse are logged, returned as DocumentErrors and left out.
func (c *Context) Documents() ([]*translation.Document, []*DocumentError, error) {
	files, err := translation.ListFiles(c.TranslationDir)
	if err != nil {
		return nil, nil, precondition(i18n.T("cannot read translation directory %s: %w"), c.TranslationDir, err)
	}
	if len(files) == 0 {
		c.log().Warn(i18n.T("Could not find any language files"), "dir", c.rel(c.TranslationDir))
		return nil, nil, nil
	}

	var docs []*translation.Document
	var skipped []*DocumentError
	for _, f := range files {
		doc, err := translation.ParseFile(f)
		if err != nil {
			derr := &DocumentError{Path: f, Err: errors.Unwrap(err)}
			if derr.Err == nil {
				derr.Err = err
			}
			c.log().Warn(i18n.T("Skipping document"), "file", c.rel(f), "error", derr.Err)
			skipped = append(skipped, derr)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped, nil
}

// checkLocales warns about locale identifiers that are not BCP 47 tags.
func (c *Context) checkLocales(doc *translation.Document, locales []string) {
	for _, l := range locales {
		if !translation.WellFormedLocale(l) {
			c.log().Warn(i18n.T("Locale is not a well-formed language tag"), "locale", l, "file", c.rel(doc.Path))
		}
	}
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
