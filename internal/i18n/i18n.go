// Package i18n loads the UI message catalogs and picks a language per
// request.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "ta_lang"
)

// DefaultTag is the source language of every catalog key.
var DefaultTag = language.English

//go:embed locales/*.yaml
var embeddedFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the parsed catalogs.
type Bundle struct {
	cat     *catalog.Builder
	tags    []language.Tag
	keys    map[language.Tag]map[string]bool
	matcher language.Matcher
}

// LanguageOption is one entry of the language switcher.
type LanguageOption struct {
	Tag    string
	Label  string
	Active bool
}

// LoadEmbedded loads the catalogs shipped with the binary.
func LoadEmbedded() (*Bundle, error) {
	return Load(embeddedFS)
}

// Load reads locales/*.yaml from fsys. The default locale must be present.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		cat:  catalog.NewBuilder(catalog.Fallback(DefaultTag)),
		keys: map[language.Tag]map[string]bool{},
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return nil, err
		}
	}
	if _, ok := b.keys[DefaultTag]; !ok {
		return nil, fmt.Errorf("default locale %s is not defined in catalogs", DefaultTag)
	}

	sort.Slice(b.tags, func(i, j int) bool {
		if b.tags[i] == DefaultTag {
			return true
		}
		if b.tags[j] == DefaultTag {
			return false
		}
		return b.tags[i].String() < b.tags[j].String()
	})
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (b *Bundle) add(path string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", path)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", path, locale, err)
	}
	if _, exists := b.keys[tag]; exists {
		return fmt.Errorf("catalog %s: locale %q defined twice", path, locale)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", path)
	}
	keys := make(map[string]bool, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		if err := b.cat.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: key %q: %w", path, key, err)
		}
		keys[key] = true
	}
	b.keys[tag] = keys
	b.tags = append(b.tags, tag)
	return nil
}

// Supported lists the catalog languages, default first.
func (b *Bundle) Supported() []language.Tag {
	return append([]language.Tag(nil), b.tags...)
}

// Has reports whether locale defines key.
func (b *Bundle) Has(tag language.Tag, key string) bool {
	return b.keys[tag][key]
}

// MissingKeys lists default-locale keys a locale does not translate.
func (b *Bundle) MissingKeys(tag language.Tag) []string {
	var out []string
	for key := range b.keys[DefaultTag] {
		if !b.keys[tag][key] {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Printer returns a message printer for the supplied tag.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(b.match(tag), message.Catalog(b.cat))
}

// ParseTag maps a raw value onto a supported tag.
func (b *Bundle) ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Und, false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, false
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No {
		return language.Und, false
	}
	return b.tags[idx], true
}

func (b *Bundle) match(tags ...language.Tag) language.Tag {
	_, idx, _ := b.matcher.Match(tags...)
	return b.tags[idx]
}

// ResolveTag determines the best language tag for the request: the lang
// query parameter, then the language cookie, then Accept-Language. The bool
// reports whether the query parameter should be persisted as a cookie.
func (b *Bundle) ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return DefaultTag, false
	}
	if tag, ok := b.ParseTag(r.URL.Query().Get(LangParam)); ok {
		return tag, true
	}
	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := b.ParseTag(cookie.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return b.match(tags...), false
		}
	}
	return DefaultTag, false
}

// Options builds the language switcher entries.
func (b *Bundle) Options(active language.Tag) []LanguageOption {
	out := make([]LanguageOption, 0, len(b.tags))
	for _, tag := range b.tags {
		out = append(out, LanguageOption{
			Tag:    tag.String(),
			Label:  display.Self.Name(tag),
			Active: tag == active,
		})
	}
	return out
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

type tagKey struct{}

// Middleware resolves the request language and stores it in the context.
func (b *Bundle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := b.ResolveTag(r)
		if persist {
			SetLanguageCookie(w, tag)
		}
		next.ServeHTTP(w, r.WithContext(WithTag(r.Context(), tag)))
	})
}

// WithTag stores a language tag in a context.
func WithTag(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, tagKey{}, tag)
}

// TagFrom returns the request language, or DefaultTag.
func TagFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(tagKey{}).(language.Tag); ok {
		return tag
	}
	return DefaultTag
}
