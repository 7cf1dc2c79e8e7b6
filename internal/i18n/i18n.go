// Package i18n loads the embedded message catalogs and exposes them through
// the engine.Localizer interface.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-remind/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// Translator resolves message IDs for one active language and falls back to
// English for anything the language lacks.
type Translator struct {
	bundle    *goi18n.Bundle
	languages []string

	mu        sync.RWMutex
	lang      string
	localizer *goi18n.Localizer
}

// New loads every embedded catalog and activates lang.
func New(lang string) *Translator {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle}

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.languages = append(t.languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}
	slices.Sort(t.languages)

	t.SetLanguage(lang)
	return t
}

// Languages lists the language codes that loaded successfully.
func (t *Translator) Languages() []string {
	return slices.Clone(t.languages)
}

// Language returns the active language code.
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// SetLanguage switches the active language. Unknown codes fall back to
// config.DefaultLanguage.
func (t *Translator) SetLanguage(lang string) {
	if !slices.Contains(t.languages, lang) {
		lang = config.DefaultLanguage
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lang = lang
	t.localizer = goi18n.NewLocalizer(t.bundle, lang)
}

// Message implements engine.Localizer. A message present only in the
// default language is still returned with ok set.
func (t *Translator) Message(id string, data map[string]any, pluralCount any) (string, bool) {
	t.mu.RLock()
	localizer := t.localizer
	t.mu.RUnlock()

	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
		PluralCount:  pluralCount,
	})
	if err == nil {
		return msg, true
	}

	var notFound *goi18n.MessageNotFoundErr
	if errors.As(err, &notFound) && msg != "" {
		return msg, true
	}

	slog.Debug(config.MsgTransMissing,
		config.LogKeyComponent, config.CompI18n,
		config.LogKeyKey, id,
		config.LogKeyError, err,
	)
	return "", false
}

// Msg translates a key without template data, returning the key itself when
// it is missing.
func (t *Translator) Msg(key string) string {
	if msg, ok := t.Message(key, nil, nil); ok {
		return msg
	}
	return key
}
