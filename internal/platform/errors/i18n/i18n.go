// Package i18n provides localized user-facing messages for error codes.
package i18n

import (
	"bytes"
	"strings"
	"text/template"

	"golang.org/x/text/language"
)

// Code is a machine-readable error code (duplicated from the errors package
// to avoid an import cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	tag      language.Tag
	messages map[Code]string
}

var catalogs = map[language.Tag]*Catalog{
	language.AmericanEnglish:     {tag: language.AmericanEnglish, messages: enUS},
	language.BrazilianPortuguese: {tag: language.BrazilianPortuguese, messages: ptBR},
}

var matcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish,
	language.BrazilianPortuguese,
})

// Supported returns the language tags with a message catalog.
func Supported() []language.Tag {
	return []language.Tag{language.AmericanEnglish, language.BrazilianPortuguese}
}

// Resolve returns the best matching supported tag for a locale string.
// Unrecognized locales fall back to en-US.
func Resolve(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.AmericanEnglish
	}
	tag, _, _ := matcher.Match(language.Make(locale))
	// The matcher can return an extended variant of a supported tag; collapse
	// it back to the catalog key.
	base, _ := tag.Base()
	for candidate := range catalogs {
		if cb, _ := candidate.Base(); cb == base {
			return candidate
		}
	}
	return language.AmericanEnglish
}

// GetCatalog returns the catalog for the given locale, falling back to en-US.
func GetCatalog(locale string) *Catalog {
	if c, ok := catalogs[Resolve(locale)]; ok {
		return c
	}
	return catalogs[language.AmericanEnglish]
}

// Locale returns the BCP 47 tag of this catalog.
func (c *Catalog) Locale() string {
	return c.tag.String()
}

// Message renders the localized message for a code, applying metadata to the
// message template. Unknown codes render as the code itself so callers always
// get something displayable.
func (c *Catalog) Message(code Code, metadata map[string]string) string {
	raw, ok := c.messages[code]
	if !ok {
		if fallback, ok := enUS[code]; ok {
			raw = fallback
		} else {
			return code
		}
	}
	if len(metadata) == 0 || !strings.Contains(raw, "{{") {
		return raw
	}
	tmpl, err := template.New(code).Parse(raw)
	if err != nil {
		return raw
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, metadata); err != nil {
		return raw
	}
	return buf.String()
}
