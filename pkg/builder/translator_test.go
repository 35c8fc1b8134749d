package builder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalogTranslator(t *testing.T) {
	tr, err := NewCatalogTranslator("de-CH")
	if err != nil {
		t.Fatalf("NewCatalogTranslator() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "admin.de.yaml")
	data := []byte("Column adjuster: Spalten-Einsteller\nGeneral: Allgemein\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := tr.LoadFile(TranslationDomain, path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	tests := []struct {
		key, domain, want string
	}{
		{"Column adjuster", TranslationDomain, "Spalten-Einsteller"},
		{"General", TranslationDomain, "Allgemein"},
		{"Unknown", TranslationDomain, "Unknown"},
		{"General", "messages", "General"},
	}
	for _, tt := range tests {
		if got := tr.Trans(tt.key, tt.domain); got != tt.want {
			t.Errorf("Trans(%q, %q) = %q, want %q", tt.key, tt.domain, got, tt.want)
		}
	}

	if tr.Locale().String() != "de-CH" {
		t.Errorf("Locale() = %s", tr.Locale())
	}
}

func TestCatalogTranslatorErrors(t *testing.T) {
	if _, err := NewCatalogTranslator("not a locale!"); err == nil {
		t.Error("expected an invalid locale error")
	}

	tr, _ := NewCatalogTranslator("en")
	if err := tr.LoadYAML(TranslationDomain, []byte("- a\n- b\n")); err == nil {
		t.Error("expected a parse error for a YAML sequence")
	}
	if err := tr.LoadFile(TranslationDomain, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected a read error")
	}
}

func TestIdentityTranslator(t *testing.T) {
	if got := (IdentityTranslator{}).Trans("Title", TranslationDomain); got != "Title" {
		t.Errorf("Trans() = %q", got)
	}
}
