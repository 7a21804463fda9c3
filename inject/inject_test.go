package inject

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/locbridge/config"
	"github.com/minios-linux/locbridge/pbxproj"
)

const enDoc = `{"app": {"greeting": "Hi $@!"}, "locale": {"ios": ["en", "en-GB"]}}`

// newProject lays out a Cordova project with both platforms and the given
// translation documents.
func newProject(t *testing.T, docs map[string]string) *Context {
	t.Helper()
	root := t.TempDir()

	dir := filepath.Join(root, "translations")
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	require.NoError(t, os.MkdirAll(filepath.Join(root, "platforms", "android", "app", "src", "main", "res"), 0755))

	xcodeproj := filepath.Join(root, "platforms", "ios", "HelloCordova.xcodeproj")
	require.NoError(t, os.MkdirAll(xcodeproj, 0755))
	fixture, err := os.ReadFile(filepath.Join("testdata", "project.pbxproj"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(xcodeproj, "project.pbxproj"), fixture, 0644))

	return &Context{
		Root:           root,
		AppName:        "HelloCordova",
		DefaultLocale:  "en",
		TranslationDir: dir,
		Log:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (c *Context) resDir() string {
	return filepath.Join(c.Root, "platforms", "android", "app", "src", "main", "res")
}

func (c *Context) resources() string {
	return filepath.Join(c.Root, "platforms", "ios", "HelloCordova", "Resources")
}

func (c *Context) pbxprojPath() string {
	return filepath.Join(c.Root, "platforms", "ios", "HelloCordova.xcodeproj", "project.pbxproj")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunIOS_LocaleFanOut(t *testing.T) {
	c := newProject(t, map[string]string{"en.json": enDoc})

	res, err := Run(c, []string{"ios"})
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	r := res.Reports[0]
	assert.Equal(t, 1, r.Documents)
	assert.Equal(t, 2, r.Registered)
	assert.True(t, r.ProjectWritten)

	for _, locale := range []string{"en", "en-GB"} {
		got := readFile(t, filepath.Join(c.resources(), locale+".lproj", "Localizable.strings"))
		assert.Equal(t, "\"greeting\" = \"Hi $@!\";\n", got, locale)
	}
	_, err = os.Stat(filepath.Join(c.resources(), "en.lproj", "InfoPlist.strings"))
	assert.True(t, os.IsNotExist(err), "empty config_ios must not produce a file")

	p, err := pbxproj.Open(c.pbxprojPath())
	require.NoError(t, err)
	_, ok := p.FindVariantGroupKey("Localizable.strings")
	assert.True(t, ok)
	_, ok = p.FindVariantGroupKey("InfoPlist.strings")
	assert.False(t, ok, "empty mapping must not create a group")
	assert.True(t, p.HasFile("en.lproj/Localizable.strings"))
	assert.True(t, p.HasFile("en-GB.lproj/Localizable.strings"))
	assert.False(t, p.AddKnownRegion("en-GB"), "locale should already be a known region")
}

func TestRunIOS_AllTables(t *testing.T) {
	c := newProject(t, map[string]string{"de.json": `{
  "app": {"title": "Titel"},
  "app_ios": {"title": "iOS Titel", "say": "Sag \"Hallo\""},
  "config_ios": {"CFBundleDisplayName": "Hallo"},
  "app_shortcuts": {"search": "Suchen"},
  "settings_ios": {"Root": {"Group": "Allgemein"}, "Empty": {}}
}`})

	res, err := Run(c, []string{"ios"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Reports[0].Registered)

	lproj := filepath.Join(c.resources(), "de.lproj")
	assert.Equal(t, "\"title\" = \"iOS Titel\";\n\"say\" = \"Sag \\\"Hallo\\\"\";\n", readFile(t, filepath.Join(lproj, "Localizable.strings")))
	assert.Equal(t, "\"CFBundleDisplayName\" = \"Hallo\";\n", readFile(t, filepath.Join(lproj, "InfoPlist.strings")))
	assert.Equal(t, "\"search\" = \"Suchen\";\n", readFile(t, filepath.Join(lproj, "AppShortcuts.strings")))

	bundle := filepath.Join(c.resources(), "Settings.bundle", "de.lproj")
	assert.Equal(t, "\"Group\" = \"Allgemein\";\n", readFile(t, filepath.Join(bundle, "Root.strings")))
	_, err = os.Stat(filepath.Join(bundle, "Empty.strings"))
	assert.True(t, os.IsNotExist(err))

	p, err := pbxproj.Open(c.pbxprojPath())
	require.NoError(t, err)
	for _, group := range []string{"Localizable.strings", "InfoPlist.strings", "AppShortcuts.strings"} {
		_, ok := p.FindVariantGroupKey(group)
		assert.True(t, ok, group)
	}
	assert.False(t, p.HasFile("Settings.bundle/de.lproj/Root.strings"), "settings bundle files are not registered")
	assert.False(t, p.HasFile("de.lproj/Root.strings"))
}

func TestRunAndroid_DefaultLocaleAndMerge(t *testing.T) {
	c := newProject(t, map[string]string{
		"en.json": enDoc,
		"fr.json": `{"app": {"farewell": "Bye"}, "locale": {"android": ["en"]}}`,
		"it.json": `{"app": {"quote": "L'ora"}, "config_android": {"app_name": "Ciao"}}`,
	})

	res, err := Run(c, []string{"android"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Reports[0].Documents)

	values := readFile(t, filepath.Join(c.resDir(), "values", "strings.xml"))
	assert.Contains(t, values, `<string name="greeting">Hi $s!</string>`)
	assert.Contains(t, values, `<string name="farewell">Bye</string>`)
	assert.NotContains(t, values, "$@")
	assert.Less(t, strings.Index(values, "greeting"), strings.Index(values, "farewell"))

	it := readFile(t, filepath.Join(c.resDir(), "values-it", "strings.xml"))
	assert.Contains(t, it, `<string name="quote">L\'ora</string>`)
	assert.Contains(t, it, `<string name="app_name">Ciao</string>`)
}

func TestRun_Idempotent(t *testing.T) {
	c := newProject(t, map[string]string{
		"en.json": enDoc,
		"fr.json": `{"app": {"greeting": "Salut $@"}, "config_ios": {"CFBundleDisplayName": "Bonjour"}}`,
	})

	_, err := Run(c, []string{"android", "ios"})
	require.NoError(t, err)

	paths := []string{
		filepath.Join(c.resDir(), "values", "strings.xml"),
		filepath.Join(c.resDir(), "values-fr", "strings.xml"),
		filepath.Join(c.resources(), "en.lproj", "Localizable.strings"),
		filepath.Join(c.resources(), "en-GB.lproj", "Localizable.strings"),
		filepath.Join(c.resources(), "fr.lproj", "Localizable.strings"),
		filepath.Join(c.resources(), "fr.lproj", "InfoPlist.strings"),
		c.pbxprojPath(),
	}
	before := make(map[string]string)
	for _, p := range paths {
		before[p] = readFile(t, p)
	}

	res, err := Run(c, []string{"android", "ios"})
	require.NoError(t, err)
	for _, r := range res.Reports {
		assert.Empty(t, r.Written, r.Platform)
		assert.Zero(t, r.Registered, r.Platform)
		assert.False(t, r.ProjectWritten, r.Platform)
	}
	for _, p := range paths {
		assert.Equal(t, before[p], readFile(t, p), "re-run changed %s", p)
	}
}

func TestRun_MalformedDocumentIsSkipped(t *testing.T) {
	c := newProject(t, map[string]string{
		"bad.json":    `{"app": {"greeting": `,
		"nested.json": `{"app": {"greeting": {"deep": "x"}}}`,
		"en.json":     `{"app": {"greeting": "Hi"}}`,
	})

	res, err := Run(c, []string{"android"})
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "bad.json", filepath.Base(res.Skipped[0].Path))
	assert.Len(t, res.Reports[0].Skipped, 2)
	assert.Contains(t, readFile(t, filepath.Join(c.resDir(), "values", "strings.xml")), "Hi")
}

func TestRun_BrokenContainerSkipsDocument(t *testing.T) {
	c := newProject(t, map[string]string{
		"de.json": `{"app": {"a": "A"}}`,
		"en.json": `{"app": {"a": "A"}}`,
	})
	broken := filepath.Join(c.resDir(), "values-de", "strings.xml")
	require.NoError(t, os.MkdirAll(filepath.Dir(broken), 0755))
	require.NoError(t, os.WriteFile(broken, []byte("<resources><string>"), 0644))

	res, err := Run(c, []string{"android"})
	require.NoError(t, err)
	r := res.Reports[0]
	assert.Equal(t, 1, r.Documents)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, "de.json", filepath.Base(r.Skipped[0].Path))
	assert.Equal(t, "<resources><string>", readFile(t, broken))
}

func TestRunIOS_TrailingBackslashRerun(t *testing.T) {
	c := newProject(t, map[string]string{"en.json": `{"app": {"path": "C:\\"}}`})

	_, err := Run(c, []string{"ios"})
	require.NoError(t, err)
	localizable := filepath.Join(c.resources(), "en.lproj", "Localizable.strings")
	assert.Equal(t, "\"path\" = \"C:\\\\\";\n", readFile(t, localizable))

	res, err := Run(c, []string{"ios"})
	require.NoError(t, err)
	r := res.Reports[0]
	assert.Empty(t, r.Skipped)
	assert.Equal(t, 1, r.Documents)
	assert.Empty(t, r.Written)
}

func TestRunIOS_SettingsBundleNameOutsideBundle(t *testing.T) {
	c := newProject(t, map[string]string{
		"de.json": `{"app": {"a": "A"}, "settings_ios": {"../../x": {"k": "v"}}}`,
		"en.json": `{"app": {"a": "A"}}`,
	})

	res, err := Run(c, []string{"ios"})
	require.NoError(t, err)
	r := res.Reports[0]
	assert.Equal(t, 1, r.Documents)
	require.Len(t, r.Skipped, 1)
	assert.Equal(t, "de.json", filepath.Base(r.Skipped[0].Path))
	assert.Contains(t, r.Skipped[0].Error(), "invalid settings bundle name")

	_, err = os.Stat(filepath.Join(c.resources(), "de.lproj"))
	assert.True(t, os.IsNotExist(err), "nothing is written for a rejected document")
	assert.NoFileExists(t, filepath.Join(c.resources(), "x.strings"))
}

func TestRun_MissingPlatformIsFatal(t *testing.T) {
	c := newProject(t, map[string]string{"en.json": enDoc})
	require.NoError(t, os.RemoveAll(filepath.Join(c.Root, "platforms", "android")))

	_, err := Run(c, []string{"android"})
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))

	require.NoError(t, os.RemoveAll(filepath.Join(c.Root, "platforms", "ios", "HelloCordova.xcodeproj")))
	_, err = Run(c, []string{"ios"})
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.Contains(t, err.Error(), "Xcode project")
}

func TestRun_TranslationDirectory(t *testing.T) {
	c := newProject(t, nil)

	res, err := Run(c, []string{"android", "ios"})
	require.NoError(t, err, "an empty translation directory is a no-op")
	assert.Empty(t, res.Reports)

	c.TranslationDir = filepath.Join(c.Root, "missing")
	_, err = Run(c, []string{"android"})
	assert.True(t, IsPrecondition(err))
}

func TestRun_UnknownPlatformIgnored(t *testing.T) {
	c := newProject(t, map[string]string{"en.json": enDoc})
	res, err := Run(c, []string{"browser", "android"})
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "android", res.Reports[0].Platform)
}

func TestRunAndroid_LegacyAndOverrideResDir(t *testing.T) {
	c := newProject(t, map[string]string{"en.json": enDoc})
	require.NoError(t, os.RemoveAll(filepath.Join(c.Root, "platforms", "android", "app")))
	legacy := filepath.Join(c.Root, "platforms", "android", "res")
	require.NoError(t, os.MkdirAll(legacy, 0755))

	_, err := RunAndroid(c, nil)
	require.NoError(t, err)
	dir, err := c.androidResDir()
	require.NoError(t, err)
	assert.Equal(t, legacy, dir)

	c.AndroidResDir = filepath.Join(c.Root, "custom")
	dir, err = c.androidResDir()
	require.NoError(t, err)
	assert.Equal(t, c.AndroidResDir, dir)
}

func TestCommit_Empty(t *testing.T) {
	n, written, err := Commit(filepath.Join(t.TempDir(), "missing.pbxproj"), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, written)
}

func TestNewContext(t *testing.T) {
	_, err := NewContext(&config.Settings{}, nil)
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
	assert.True(t, errors.Is(err, config.ErrMissingTranslationPath))
	assert.Equal(t, `Missing "TRANSLATION_PATH" variable.`, err.Error())

	root := t.TempDir()
	c, err := NewContext(&config.Settings{
		Root:            root,
		TranslationPath: "i18n",
		Project:         &config.Project{Name: "App", Platforms: []string{"ios"}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "i18n"), c.TranslationDir)
	assert.Equal(t, "en", c.DefaultLocale)
	assert.Equal(t, "App", c.AppName)
	assert.Equal(t, []string{"ios"}, c.Platforms)
}

func TestDocumentError(t *testing.T) {
	err := &DocumentError{Path: "/x/fr.json", Err: errors.New("invalid JSON")}
	assert.Equal(t, "fr.json: invalid JSON", err.Error())
	assert.False(t, IsPrecondition(err))
}
