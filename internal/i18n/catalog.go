// Package i18n holds the per-language message catalog.
//
// Catalogs are flat key -> template maps. Templates use {name} placeholders.
// A key missing in the requested language falls back to the default
// language and finally to the key itself, so a broken override file
// degrades the text instead of stopping the bot.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/heatbot/core/logger"
)

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "sr"

//go:embed locales/*.yaml
var embedded embed.FS

// Catalog resolves message keys per language. It is read-only after Load.
type Catalog struct {
	def      string
	langs    []string
	messages map[string]map[string]string
	matcher  language.Matcher
}

// Load reads the embedded catalogs and applies overrides from dir when it is set.
// Unreadable override files are logged and skipped.
func Load(defaultLang, dir string) (*Catalog, error) {
	if defaultLang == "" {
		defaultLang = DefaultLanguage
	}
	messages := make(map[string]map[string]string)

	entries, err := fs.Glob(embedded, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("i18n: list embedded catalogs: %w", err)
	}
	for _, name := range entries {
		data, err := embedded.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}
		m, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		messages[strings.TrimSuffix(path.Base(name), ".yaml")] = m
	}

	if dir != "" {
		applyOverrides(messages, dir)
	}
	if _, ok := messages[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: no catalog for default language %q", defaultLang)
	}
	return newCatalog(defaultLang, messages), nil
}

// New builds a catalog from in-memory maps.
func New(defaultLang string, messages map[string]map[string]string) *Catalog {
	return newCatalog(defaultLang, messages)
}

func newCatalog(def string, messages map[string]map[string]string) *Catalog {
	langs := make([]string, 0, len(messages))
	for l := range messages {
		if l != def {
			langs = append(langs, l)
		}
	}
	sort.Strings(langs)
	langs = append([]string{def}, langs...)

	// The first tag is the matcher's fallback.
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		tags = append(tags, language.Make(l))
	}
	return &Catalog{
		def:      def,
		langs:    langs,
		messages: messages,
		matcher:  language.NewMatcher(tags),
	}
}

func parse(data []byte) (map[string]string, error) {
	m := make(map[string]string)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// applyOverrides merges <lang>.yaml, <lang>.yml and messages_<lang>.json from dir.
// JSON is valid YAML, so one parser serves both.
func applyOverrides(messages map[string]map[string]string, dir string) {
	ctx := logger.Background()
	files, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn(ctx, "i18n", "catalog.dir_unreadable",
			slog.String("dir", dir),
			slog.String("err", err.Error()),
		)
		return
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		lang, ok := overrideLang(f.Name())
		if !ok {
			continue
		}
		full := filepath.Join(dir, f.Name())
		data, err := os.ReadFile(full)
		if err == nil {
			var m map[string]string
			if m, err = parse(data); err == nil {
				if messages[lang] == nil {
					messages[lang] = make(map[string]string, len(m))
				}
				for k, v := range m {
					messages[lang][k] = v
				}
				logger.Info(ctx, "i18n", "catalog.override",
					slog.String("lang", lang),
					slog.String("file", full),
					slog.Int("keys", len(m)),
				)
				continue
			}
		}
		logger.Warn(ctx, "i18n", "catalog.override_skipped",
			slog.String("file", full),
			slog.String("err", err.Error()),
		)
	}
}

func overrideLang(name string) (string, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "messages_") && strings.HasSuffix(lower, ".json"):
		lower = strings.TrimSuffix(strings.TrimPrefix(lower, "messages_"), ".json")
	case strings.HasSuffix(lower, ".yaml"):
		lower = strings.TrimSuffix(lower, ".yaml")
	case strings.HasSuffix(lower, ".yml"):
		lower = strings.TrimSuffix(lower, ".yml")
	default:
		return "", false
	}
	if _, err := language.Parse(lower); err != nil || lower == "" {
		return "", false
	}
	return lower, true
}

// Default returns the default language code.
func (c *Catalog) Default() string { return c.def }

// Languages returns the available language codes, default first.
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.langs...)
}

// Has reports whether lang has its own catalog.
func (c *Catalog) Has(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// Match maps a platform language code such as "en-US" or "sr-Latn" to a catalog language.
// Unknown or unsupported codes give the default language.
func (c *Catalog) Match(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return c.def
	}
	tag, err := language.Parse(code)
	if err != nil {
		return c.def
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(c.langs) {
		return c.def
	}
	return c.langs[idx]
}

// T renders key in lang. kv holds placeholder name/value pairs.
func (c *Catalog) T(lang, key string, kv ...string) string {
	msg, ok := c.lookup(lang, key)
	if !ok {
		return key
	}
	if len(kv) < 2 {
		return msg
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func (c *Catalog) lookup(lang, key string) (string, bool) {
	if m, ok := c.messages[lang]; ok {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	v, ok := c.messages[c.def][key]
	return v, ok
}

// Missing lists keys present in the default catalog but absent from lang.
func (c *Catalog) Missing(lang string) []string {
	var out []string
	for k := range c.messages[c.def] {
		if _, ok := c.messages[lang][k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ErrNoCatalog is returned by Check when the default catalog is empty.
var ErrNoCatalog = errors.New("i18n: default catalog is empty")

// Check logs languages with missing keys. It fails only when the default catalog is empty.
func (c *Catalog) Check() error {
	if len(c.messages[c.def]) == 0 {
		return ErrNoCatalog
	}
	for _, l := range c.langs[1:] {
		if missing := c.Missing(l); len(missing) > 0 {
			logger.Warn(logger.Background(), "i18n", "catalog.incomplete",
				slog.String("lang", l),
				slog.Int("missing", len(missing)),
				slog.String("keys", strings.Join(missing, ",")),
			)
		}
	}
	return nil
}
