package inject

import (
	"path/filepath"
	"strings"

	"github.com/minios-linux/locbridge/android"
	"github.com/minios-linux/locbridge/i18n"
	"github.com/minios-linux/locbridge/translation"
)

// androidResDir returns the res directory of the Android platform: the
// configured override, app/src/main/res (cordova-android 7+) or the legacy
// res directory. A missing platforms/android is a precondition failure.
func (c *Context) androidResDir() (string, error) {
	if c.AndroidResDir != "" {
		return c.AndroidResDir, nil
	}
	platform := filepath.Join(c.Root, "platforms", translation.PlatformAndroid)
	if !isDir(platform) {
		return "", precondition(i18n.T("Android platform not found at %s"), c.rel(platform))
	}
	modern := filepath.Join(platform, "app", "src", "main", "res")
	legacy := filepath.Join(platform, "res")
	if !isDir(modern) && isDir(legacy) {
		return legacy, nil
	}
	return modern, nil
}

// androidPairs encodes a mapping for strings.xml.
func androidPairs(s *translation.Strings) []android.Pair {
	pairs := make([]android.Pair, 0, s.Len())
	s.Each(func(key, value string) {
		pairs = append(pairs, android.Pair{Key: key, Value: android.Encode(value)})
	})
	return pairs
}

// RunAndroid upserts every document into the strings.xml of each of its
// locales. The app strings are overlaid with config_android.
func RunAndroid(c *Context, docs []*translation.Document) (*Report, error) {
	resDir, err := c.androidResDir()
	if err != nil {
		return nil, err
	}
	r := &Report{Platform: translation.PlatformAndroid}
	c.log().Info(i18n.T("Injecting Android strings"), "res", c.rel(resDir), "default_locale", c.DefaultLocale)

	for _, doc := range docs {
		res := doc.ForPlatform(translation.PlatformAndroid)
		c.checkLocales(doc, res.Locales)
		c.log().Info(i18n.T("Adding"), "file", filepath.Base(doc.Path), "locales", strings.Join(res.Locales, ", "))

		pairs := androidPairs(res.App.Overlay(res.Config))
		if err := c.writeAndroid(r, resDir, res.Locales, pairs); err != nil {
			derr := &DocumentError{Path: doc.Path, Err: err}
			c.log().Warn(i18n.T("Skipping document"), "file", c.rel(doc.Path), "error", err)
			r.skip(derr)
			continue
		}
		r.Documents++
	}
	return r, nil
}

func (c *Context) writeAndroid(r *Report, resDir string, locales []string, pairs []android.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	for _, locale := range locales {
		path := android.StringsXMLPath(resDir, locale, c.DefaultLocale)
		changed, err := android.Upsert(path, pairs)
		if err != nil {
			return err
		}
		r.record(c.rel(path), changed)
		if changed {
			c.log().Debug(i18n.T("Wrote"), "path", c.rel(path), "entries", len(pairs))
		}
	}
	return nil
}
