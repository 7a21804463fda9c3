package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the default settings file in the project root.
const FileName = ".locbridge.yaml"

// EnvPrefix prefixes environment overrides, e.g. LOCBRIDGE_TRANSLATION_PATH.
const EnvPrefix = "LOCBRIDGE"

// ErrMissingTranslationPath is returned by Validate when no translation
// directory is configured.
var ErrMissingTranslationPath = errors.New(`Missing "TRANSLATION_PATH" variable.`)

// Settings is the resolved configuration of one run.
type Settings struct {
	PluginID        string          `mapstructure:"plugin_id" yaml:"plugin_id,omitempty"`
	TranslationPath string          `mapstructure:"translation_path" yaml:"translation_path,omitempty"`
	DefaultLocale   string          `mapstructure:"default_locale" yaml:"default_locale,omitempty"`
	Android         AndroidSettings `mapstructure:"android" yaml:"android,omitempty"`
	IOS             IOSSettings     `mapstructure:"ios" yaml:"ios,omitempty"`
	Log             LogSettings     `mapstructure:"log" yaml:"log,omitempty"`

	// Root is the absolute project root.
	Root string `mapstructure:"-" yaml:"-"`
	// Project is the detected host metadata.
	Project *Project `mapstructure:"-" yaml:"-"`
	// File is the settings file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// AndroidSettings overrides Android resource discovery.
type AndroidSettings struct {
	ResDir string `mapstructure:"res_dir" yaml:"res_dir,omitempty"`
}

// IOSSettings overrides iOS project discovery.
type IOSSettings struct {
	ProjectDir string `mapstructure:"project_dir" yaml:"project_dir,omitempty"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level,omitempty"`
	Format string `mapstructure:"format" yaml:"format,omitempty"`
}

// Options control Load.
type Options struct {
	// Root is the project root (default ".").
	Root string
	// ConfigFile overrides <root>/.locbridge.yaml. It must exist when set.
	ConfigFile string
	// Flags are bound by name: translations, default-locale, plugin-id,
	// log-level, log-format. Only flags that were set override other sources.
	Flags *pflag.FlagSet
}

// flagKeys maps CLI flag names to settings keys.
var flagKeys = map[string]string{
	"translations":   "translation_path",
	"default-locale": "default_locale",
	"plugin-id":      "plugin_id",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"android-res":    "android.res_dir",
	"ios-project":    "ios.project_dir",
}

// Load resolves settings. Sources, lowest first: built-in defaults,
// package.json and config.xml plugin variables, the settings file,
// LOCBRIDGE_* environment variables, command-line flags.
func Load(opts Options) (*Settings, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// The plugin id selects which metadata variables apply, so it is
	// resolved from every source except metadata first.
	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, err
		}
	}
	file, err := readFile(v, root, opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	proj, err := Detect(root, v.GetString("plugin_id"))
	if err != nil {
		return nil, err
	}
	v.SetDefault("default_locale", proj.DefaultLocale)
	if tp, ok := proj.Variable(TranslationPathVariable); ok {
		v.SetDefault("translation_path", tp)
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	s.Root = proj.Root
	s.Project = proj
	s.File = file
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("plugin_id", DefaultPluginID)
	v.SetDefault("translation_path", "")
	v.SetDefault("default_locale", DefaultLocale)
	v.SetDefault("android.res_dir", "")
	v.SetDefault("ios.project_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// readFile loads the settings file and returns its path, or "" when the
// default file does not exist.
func readFile(v *viper.Viper, root, explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = filepath.Join(root, FileName)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return "", nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return path, nil
}

// Validate checks the settings needed by prepare.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.TranslationPath) == "" {
		return ErrMissingTranslationPath
	}
	return nil
}

// TranslationDir returns the absolute translation directory.
func (s *Settings) TranslationDir() string {
	return s.resolve(s.TranslationPath)
}

// AndroidResDir returns the configured res directory, or "" for discovery.
func (s *Settings) AndroidResDir() string {
	return s.resolve(s.Android.ResDir)
}

// IOSProjectDir returns the configured iOS platform directory, or "".
func (s *Settings) IOSProjectDir() string {
	return s.resolve(s.IOS.ProjectDir)
}

func (s *Settings) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// WriteFile writes the settings that differ from defaults to path.
func (s *Settings) WriteFile(path string) error {
	out := *s
	if out.PluginID == DefaultPluginID {
		out.PluginID = ""
	}
	if out.Log.Level == "info" {
		out.Log.Level = ""
	}
	if out.Log.Format == "console" {
		out.Log.Format = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	header := "# locbridge settings. Environment variables (" + EnvPrefix + "_*) and flags override these values.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0644)
}
