// locbridge injects JSON translation documents into the native string
// resources of Cordova Android and iOS platforms.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/minios-linux/locbridge/config"
	"github.com/minios-linux/locbridge/i18n"
	"github.com/minios-linux/locbridge/inject"
	"github.com/minios-linux/locbridge/lockfile"
	"github.com/minios-linux/locbridge/logger"
	"github.com/minios-linux/locbridge/translation"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	logger.Info(fmt.Sprintf(i18n.T(format), args...))
}

func logSuccess(format string, args ...any) {
	logger.Info(fmt.Sprintf(i18n.T(format), args...), "status", "ok")
}

func logWarning(format string, args ...any) {
	logger.Warn(fmt.Sprintf(i18n.T(format), args...))
}

// fatal prints err in bold red when w is a terminal.
func fatal(w io.Writer, err error) {
	msg := fmt.Sprintf("locbridge: %v", err)
	if logger.IsTerminal(w) {
		msg = colorBold + "\033[31m" + msg + colorReset
	}
	fmt.Fprintln(w, msg)
}

// colorize wraps s in color when w is a terminal.
func colorize(w io.Writer, color, s string) string {
	if !logger.IsTerminal(w) {
		return s
	}
	return color + s + colorReset
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configFile string
)

// loadSettings resolves settings for cmd and configures logging from them.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.Load(config.Options{
		Root:       rootDir,
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{
		Level:  s.Log.Level,
		Format: s.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	return s, nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locbridge",
		Short: i18n.T("Inject JSON translations into Cordova Android and iOS resources"),
		Long: `locbridge reads per-locale JSON translation documents and writes them into
the native string resources of a Cordova project:

  android   res/values[-<locale>]/strings.xml
  ios       <locale>.lproj/*.strings plus Xcode variant groups

Settings come from config.xml plugin variables, package.json, .locbridge.yaml,
LOCBRIDGE_* environment variables and flags, in increasing priority.

Commands:
  prepare   Inject translations into the platforms
  status    Show project settings and translation documents
  init      Write a .locbridge.yaml for the project
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().StringVar(&configFile, "config", "", i18n.T("Settings file (default <root>/.locbridge.yaml)"))
	root.PersistentFlags().String("log-level", "", i18n.T("Log level: debug, info, warn, error"))
	root.PersistentFlags().String("log-format", "", i18n.T("Log format: console or json"))

	root.AddCommand(
		newPrepareCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		fatal(os.Stderr, err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "locbridge version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// prepare (inject translations)
// ---------------------------------------------------------------------------

func newPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare [platform...]",
		Short: i18n.T("Inject translations into the platforms"),
		Long: `Inject every *.json document of the translation directory into the given
platforms (android, ios). Without arguments every directory under platforms/
is processed.

Existing entries are updated in place and unrelated entries are kept, so the
command is safe to run after every 'cordova prepare'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd, args)
		},
	}

	cmd.Flags().String("translations", "", i18n.T("Translation directory (overrides TRANSLATION_PATH)"))
	cmd.Flags().String("default-locale", "", i18n.T("Locale written to values/ on Android"))
	cmd.Flags().String("plugin-id", "", i18n.T("Plugin whose variables configure the run"))
	cmd.Flags().String("android-res", "", i18n.T("Android res directory"))
	cmd.Flags().String("ios-project", "", i18n.T("iOS platform directory"))

	_ = cmd.Flags().MarkHidden("android-res")
	_ = cmd.Flags().MarkHidden("ios-project")

	return cmd
}

func runPrepare(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx, err := inject.NewContext(s, logger.Get())
	if err != nil {
		return err
	}

	platforms := args
	if len(platforms) == 0 {
		platforms = ctx.Platforms
	}
	if len(platforms) == 0 {
		logWarning("No platforms found under %s", filepath.Join(s.Root, "platforms"))
		return nil
	}
	logInfo("Translations: %s", relPath(s.Root, ctx.TranslationDir))

	res, err := inject.Run(ctx, platforms)
	if err != nil {
		return err
	}
	for _, r := range res.Reports {
		logSuccess("%s", r.String())
	}

	return updateLock(s.Root, res, ctx.Platforms)
}

// updateLock records the checksums of the documents each platform accepted
// and drops platforms that are no longer present under platforms/.
func updateLock(root string, res *inject.Result, present []string) error {
	if len(res.Reports) == 0 {
		return nil
	}
	lf, err := lockfile.Load(root)
	if err != nil {
		return err
	}

	if len(present) > 0 {
		for _, p := range lf.Platforms() {
			if !slices.Contains(present, p) {
				lf.RemovePlatform(p)
				logInfo("Dropped lock entries for removed platform %s", p)
			}
		}
	}

	for _, r := range res.Reports {
		skipped := make(map[string]bool)
		for _, s := range r.Skipped {
			skipped[s.Path] = true
		}
		var keys []string
		for _, doc := range res.Documents {
			key := lockfile.DocumentKey(relPath(root, doc.Path))
			keys = append(keys, key)
			if skipped[doc.Path] {
				continue
			}
			sum, err := lockfile.HashFile(doc.Path)
			if err != nil {
				return err
			}
			lf.Update(r.Platform, key, sum)
		}
		lf.Clean(r.Platform, keys)
	}

	if err := lf.Save(); err != nil {
		return err
	}
	logger.Debug(i18n.T("Updated lock file"), "path", relPath(root, lf.Path()))
	return nil
}

func relPath(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}

// ---------------------------------------------------------------------------
// status (read-only: settings + documents)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show project settings and translation documents"),
		Long: `Show the resolved settings, the translation documents with the locales they
produce per platform, and whether each document changed since the last
prepare. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	proj := s.Project

	fmt.Fprintf(out, "\n%s\n", colorize(out, colorBlue, i18n.T("Project")))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	name := proj.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(out, "  %-16s %s\n", i18n.T("Name:"), name)
	fmt.Fprintf(out, "  %-16s %s\n", i18n.T("Root:"), s.Root)
	settingsFile := s.File
	if settingsFile == "" {
		settingsFile = i18n.T("none")
	}
	fmt.Fprintf(out, "  %-16s %s\n", i18n.T("Settings file:"), settingsFile)
	fmt.Fprintf(out, "  %-16s %s\n", i18n.T("Plugin:"), s.PluginID)
	fmt.Fprintf(out, "  %-16s %s\n", i18n.T("Default locale:"), s.DefaultLocale)
	platforms := strings.Join(proj.Platforms, ", ")
	if platforms == "" {
		platforms = i18n.T("none")
	}
	fmt.Fprintf(out, "  %-16s %s\n", i18n.T("Platforms:"), platforms)

	if err := s.Validate(); err != nil {
		fmt.Fprintf(out, "  %-16s %s\n\n", i18n.T("Translations:"), colorize(out, colorRed, err.Error()))
		return nil
	}
	fmt.Fprintf(out, "  %-16s %s\n\n", i18n.T("Translations:"), relPath(s.Root, s.TranslationDir()))

	files, err := translation.ListFiles(s.TranslationDir())
	if err != nil {
		fmt.Fprintf(out, "  %s\n\n", colorize(out, colorRed, err.Error()))
		return nil
	}
	if len(files) == 0 {
		logWarning("Could not find any language files in %s", relPath(s.Root, s.TranslationDir()))
		return nil
	}

	lf, err := lockfile.Load(s.Root)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", colorize(out, colorBlue, i18n.T("Documents")))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "%-16s %-10s %-24s %s\n", i18n.T("File"), i18n.T("Platform"), i18n.T("Locales"), i18n.T("State"))
	changed := 0
	for _, f := range files {
		base := filepath.Base(f)
		doc, err := translation.ParseFile(f)
		if err != nil {
			fmt.Fprintf(out, "%-16s %s\n", base, colorize(out, colorRed, errors.Unwrap(err).Error()))
			continue
		}
		sum, err := lockfile.HashFile(f)
		if err != nil {
			return err
		}
		key := lockfile.DocumentKey(relPath(s.Root, f))
		pending := false
		for _, p := range []string{translation.PlatformAndroid, translation.PlatformIOS} {
			state := lf.StateOf(p, key, sum)
			if slices.Contains(proj.Platforms, p) && lf.IsChanged(p, key, sum) {
				pending = true
			}
			fmt.Fprintf(out, "%-16s %-10s %-24s %s\n", base, p,
				strings.Join(doc.LocalesFor(p), ","), colorize(out, stateColor(state), i18n.T(string(state))))
			base = ""
		}
		if pending {
			changed++
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s\n", i18n.T("Lock file:"), lf.Summary())
	fmt.Fprintf(out, i18n.N("%d changed document", "%d changed documents", changed)+"\n\n", changed)
	return nil
}

func stateColor(s lockfile.State) string {
	switch s {
	case lockfile.StateUnchanged:
		return colorGreen
	case lockfile.StateChanged:
		return colorYellow
	default:
		return colorBlue
	}
}

// ---------------------------------------------------------------------------
// init (write .locbridge.yaml)
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write a .locbridge.yaml for the project"),
		Long: `Write .locbridge.yaml with the settings resolved from config.xml,
package.json, the environment and flags. Values equal to the built-in
defaults are left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			path := filepath.Join(s.Root, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf(i18n.T("%s already exists (use --force to overwrite)"), path)
			}
			if err := s.WriteFile(path); err != nil {
				return err
			}
			logSuccess("Wrote %s", path)
			if err := s.Validate(); err != nil {
				logWarning("%v", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, i18n.T("Overwrite an existing file"))
	cmd.Flags().String("translations", "", i18n.T("Translation directory (overrides TRANSLATION_PATH)"))
	cmd.Flags().String("default-locale", "", i18n.T("Locale written to values/ on Android"))

	return cmd
}
