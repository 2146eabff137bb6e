// Package i18n localizes user-facing API messages.
//
// Denial codes returned by the permission gate and the moderation engine
// ("banned_temporary", "insufficient_trust", ...) are stable; the copy shown
// to the user comes from locales/<lang>.json under the "denied" namespace.
//
//	l := i18n.NewLocalizer(i18n.DetectLanguage(r.Header.Get("Accept-Language")))
//	msg := l.TWithParams("denied.banned_temporary", map[string]string{"until": "..."})
package i18n

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"sync"
)

// SupportedLanguages lists the locale files that must exist.
var SupportedLanguages = []string{"en", "tr"}

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "en"

var (
	translations map[string]map[string]string
	loadOnce     sync.Once
	loadErr      error
)

// Load reads every supported locale from localesFS once per process.
// Nested JSON keys are flattened into dot notation.
func Load(localesFS fs.FS) error {
	loadOnce.Do(func() {
		loaded := make(map[string]map[string]string)

		for _, lang := range SupportedLanguages {
			fileName := lang + ".json"

			data, err := fs.ReadFile(localesFS, fileName)
			if err != nil {
				loadErr = fmt.Errorf("failed to read translation file %s: %w", fileName, err)
				return
			}

			var nested map[string]any
			if err := json.Unmarshal(data, &nested); err != nil {
				loadErr = fmt.Errorf("failed to parse translation file %s: %w", fileName, err)
				return
			}

			flat := make(map[string]string)
			flattenMap("", nested, flat)
			loaded[lang] = flat

			log.Printf("[i18n] loaded %d keys for language: %s", len(flat), lang)
		}

		translations = loaded
	})

	return loadErr
}

// Localizer translates keys for one language.
type Localizer struct {
	lang string
}

// NewLocalizer falls back to DefaultLanguage for unsupported codes.
func NewLocalizer(lang string) *Localizer {
	if !isSupported(lang) {
		lang = DefaultLanguage
	}
	return &Localizer{lang: lang}
}

// Lang returns the resolved language code.
func (l *Localizer) Lang() string {
	return l.lang
}

// T returns the translation for key, then the English one, then key itself.
func (l *Localizer) T(key string) string {
	if msg, ok := translations[l.lang][key]; ok {
		return msg
	}
	if msg, ok := translations[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// Has reports whether key exists in any loaded language.
func (l *Localizer) Has(key string) bool {
	if _, ok := translations[l.lang][key]; ok {
		return true
	}
	_, ok := translations[DefaultLanguage][key]
	return ok
}

// TWithParams replaces {{param}} placeholders in the translation.
func (l *Localizer) TWithParams(key string, params map[string]string) string {
	msg := l.T(key)
	for k, v := range params {
		msg = strings.ReplaceAll(msg, "{{"+k+"}}", v)
	}
	return msg
}

// DetectLanguage picks the first supported language from an
// Accept-Language header such as "tr-TR,tr;q=0.9,en;q=0.8".
func DetectLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLanguage
	}

	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(tag, "-")
		lang := strings.ToLower(strings.TrimSpace(base))

		if isSupported(lang) {
			return lang
		}
	}

	return DefaultLanguage
}

// ─── Helpers ───

func isSupported(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func flattenMap(prefix string, src map[string]any, dst map[string]string) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			dst[key] = val
		case map[string]any:
			flattenMap(key, val, dst)
		}
	}
}
