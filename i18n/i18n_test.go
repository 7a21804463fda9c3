package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("LANGUAGE has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "ru_RU" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "ru_RU")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Skipping document"); got != "Skipping document" {
		t.Fatalf("T fallback = %q", got)
	}
	if got := N("%d file written", "%d files written", 1); got != "%d file written" {
		t.Fatalf("N singular fallback = %q", got)
	}
	if got := N("%d file written", "%d files written", 2); got != "%d files written" {
		t.Fatalf("N plural fallback = %q", got)
	}
}

func TestEmbeddedRussianCatalogue(t *testing.T) {
	old := po
	t.Cleanup(func() { po = old })

	Init("ru")
	if got := T("Skipping document"); got != "Документ пропущен" {
		t.Errorf("T(ru) = %q", got)
	}
	if got := N("%d file written", "%d files written", 5); got != "%d файлов записано" {
		t.Errorf("N(ru, 5) = %q", got)
	}
	if got := T("untranslated message"); got != "untranslated message" {
		t.Errorf("missing msgid should pass through, got %q", got)
	}

	Init("xx")
	if got := T("Skipping document"); got != "Skipping document" {
		t.Errorf("unknown language should pass through, got %q", got)
	}
}
