// Package i18n resolves update error keys ("widget.not_found") into
// human-readable messages using golang.org/x/text message catalogs.
//
// A key is "<kind>.<reason>". Exact keys registered with Set win;
// otherwise the reason's template is formatted with the humanized kind.
// Unknown keys resolve to themselves.
package i18n

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLocale is used when a locale is empty or unsupported.
const DefaultLocale = "en-US"

// Reasons shared by every kind.
const (
	ReasonNotFound    = "not_found"
	ReasonCantUpdate  = "cant_update"
	ReasonRecordError = "record_error"
	ReasonInvalid     = "invalid"
)

var reasonTemplates = map[language.Tag]map[string]string{
	language.AmericanEnglish: {
		ReasonNotFound:    "%s not found",
		ReasonCantUpdate:  "You are not allowed to update this %s",
		ReasonRecordError: "%s could not be saved",
		ReasonInvalid:     "%s is invalid",
	},
	language.French: {
		ReasonNotFound:    "%s introuvable",
		ReasonCantUpdate:  "Vous n'êtes pas autorisé à modifier cet élément (%s)",
		ReasonRecordError: "%s n'a pas pu être enregistré",
		ReasonInvalid:     "%s est invalide",
	},
}

// Catalog holds the message templates for every supported locale.
// Set may be called while printers are in use.
type Catalog struct {
	builder *catalog.Builder
	tags    []language.Tag

	mu   sync.RWMutex
	keys map[string]bool
}

// NewCatalog returns a catalog preloaded with the reason templates.
func NewCatalog() *Catalog {
	c := &Catalog{
		builder: catalog.NewBuilder(catalog.Fallback(language.AmericanEnglish)),
		keys:    make(map[string]bool),
	}
	for tag, templates := range reasonTemplates {
		c.tags = append(c.tags, tag)
		for reason, tmpl := range templates {
			// SetString only fails for malformed tags.
			_ = c.builder.SetString(tag, reason, tmpl)
		}
	}
	return c
}

// Set registers an exact message for key in locale, overriding the
// reason template for that kind.
func (c *Catalog) Set(locale, key, msg string) error {
	tag, err := language.Parse(locale)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.builder.SetString(tag, key, strings.ReplaceAll(msg, "%", "%%")); err != nil {
		return err
	}
	c.keys[key] = true
	return nil
}

// Printer returns a Messages bound to locale.
func (c *Catalog) Printer(locale string) *Printer {
	tag := c.match(locale)
	return &Printer{
		catalog: c,
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(c.builder)),
	}
}

func (c *Catalog) has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[key]
}

func (c *Catalog) match(locale string) language.Tag {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.AmericanEnglish
	}
	matcher := language.NewMatcher(append([]language.Tag{language.AmericanEnglish}, c.tags...))
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.AmericanEnglish
	}
	return append([]language.Tag{language.AmericanEnglish}, c.tags...)[idx]
}

// Printer formats messages for one locale.
type Printer struct {
	catalog *Catalog
	tag     language.Tag
	printer *message.Printer
}

// Locale returns the BCP 47 tag the printer resolved to.
func (p *Printer) Locale() string {
	return p.tag.String()
}

// Message resolves key to a human-readable message.
func (p *Printer) Message(key string) string {
	if p.catalog.has(key) {
		return p.printer.Sprintf(key)
	}

	kind, reason, ok := cutLast(key, ".")
	if !ok {
		return key
	}
	if _, known := reasonTemplates[language.AmericanEnglish][reason]; !known {
		return key
	}
	return p.printer.Sprintf(reason, p.humanize(kind))
}

func (p *Printer) humanize(kind string) string {
	// Casers are stateful and cannot be shared across goroutines.
	return cases.Title(p.tag).String(strings.ReplaceAll(kind, "_", " "))
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

var defaultCatalog = NewCatalog()

// Default returns a printer for DefaultLocale over the shared catalog.
func Default() *Printer {
	return defaultCatalog.Printer(DefaultLocale)
}

// For returns a printer for locale over the shared catalog.
func For(locale string) *Printer {
	return defaultCatalog.Printer(locale)
}
