package builder

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// TranslationDomain is the domain of every label the builder translates.
const TranslationDomain = "admin"

// Translator resolves translation keys of one domain.
type Translator interface {
	Trans(key, domain string) string
}

// IdentityTranslator returns every key unchanged.
type IdentityTranslator struct{}

// Trans implements Translator.
func (IdentityTranslator) Trans(key, _ string) string {
	return key
}

// CatalogTranslator translates keys from per-domain x/text catalogs for one
// locale. Unknown keys translate to themselves.
type CatalogTranslator struct {
	tag language.Tag

	mu       sync.RWMutex
	catalogs map[string]*catalog.Builder
	printers map[string]*message.Printer
	known    map[string]map[string]struct{}
}

// NewCatalogTranslator creates a translator for a BCP 47 locale such as "de" or "en-US".
func NewCatalogTranslator(locale string) (*CatalogTranslator, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &CatalogTranslator{
		tag:      tag,
		catalogs: make(map[string]*catalog.Builder),
		printers: make(map[string]*message.Printer),
		known:    make(map[string]map[string]struct{}),
	}, nil
}

// Locale returns the translator's language tag.
func (t *CatalogTranslator) Locale() language.Tag {
	return t.tag
}

// Add registers one translated message.
func (t *CatalogTranslator) Add(domain, key, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.catalogs[domain]
	if !ok {
		b = catalog.NewBuilder(catalog.Fallback(t.tag))
		t.catalogs[domain] = b
		t.printers[domain] = message.NewPrinter(t.tag, message.Catalog(b))
		t.known[domain] = make(map[string]struct{})
	}
	if err := b.SetString(t.tag, key, msg); err != nil {
		return fmt.Errorf("failed to add translation %q: %w", key, err)
	}
	t.known[domain][key] = struct{}{}
	return nil
}

// LoadYAML adds every key/message pair of a flat YAML mapping to a domain.
func (t *CatalogTranslator) LoadYAML(domain string, data []byte) error {
	var messages map[string]string
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("failed to parse translations: %w", err)
	}
	for key, msg := range messages {
		if err := t.Add(domain, key, msg); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML translation file into a domain.
func (t *CatalogTranslator) LoadFile(domain, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read translations %s: %w", path, err)
	}
	return t.LoadYAML(domain, data)
}

// Trans implements Translator.
func (t *CatalogTranslator) Trans(key, domain string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.known[domain][key]; !ok {
		return key
	}
	return t.printers[domain].Sprintf(key)
}
