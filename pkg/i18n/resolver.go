package i18n

import (
	"sync"

	"github.com/case-framework/survey-engine/pkg/survey/types"
)

type AvailableLanguage struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// Resolver picks the text for one active language. Each survey session owns
// its own resolver.
type Resolver struct {
	mu   sync.RWMutex
	lang string
}

func NewResolver(lang string) *Resolver {
	return &Resolver{lang: NormalizeLanguage(lang)}
}

func (r *Resolver) Language() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lang
}

// SetLanguage switches the active language. Unsupported codes are ignored and
// reported as false.
func (r *Resolver) SetLanguage(lang string) bool {
	if !IsSupported(lang) {
		return false
	}
	r.mu.Lock()
	r.lang = lang
	r.mu.Unlock()
	return true
}

func (r *Resolver) Text(t types.LocalizedText) string {
	return r.TextWithFallback(t, DEFAULT_LANGUAGE)
}

// TextWithFallback resolves t: a plain value verbatim, else the active
// language, else fallbackLang, else the first stored entry, else "".
// Empty strings count as missing.
func (r *Resolver) TextWithFallback(t types.LocalizedText, fallbackLang string) string {
	return resolve(t, r.Language(), fallbackLang, func(s string) bool { return s != "" }, "")
}

// Options resolves a localized option list the same way as Text. The result
// is never nil.
func (r *Resolver) Options(o types.LocalizedOptions) []string {
	opts := resolve(o, r.Language(), DEFAULT_LANGUAGE, func(s []string) bool { return s != nil }, []string{})
	if opts == nil {
		return []string{}
	}
	return opts
}

func resolve[T any](l types.Localized[T], active string, fallbackLang string, present func(T) bool, empty T) T {
	if l.IsPlain() {
		return l.PlainValue()
	}
	if v, ok := l.Get(active); ok && present(v) {
		return v
	}
	if v, ok := l.Get(fallbackLang); ok && present(v) {
		return v
	}
	if entries := l.Entries(); len(entries) > 0 {
		return entries[0].Value
	}
	return empty
}

func (r *Resolver) IsRTL() bool {
	return rtlLanguages[r.Language()]
}

func (r *Resolver) Direction() string {
	if r.IsRTL() {
		return "rtl"
	}
	return "ltr"
}

// LanguageClasses are the CSS classes a client puts on its root element.
func (r *Resolver) LanguageClasses() []string {
	return []string{"lang-" + r.Language(), r.Direction()}
}

func (r *Resolver) AvailableLanguages() []AvailableLanguage {
	active := r.Language()
	out := make([]AvailableLanguage, len(supportedLanguages))
	for i, l := range supportedLanguages {
		out[i] = AvailableLanguage{Code: l.Code, Name: l.Name, IsActive: l.Code == active}
	}
	return out
}
