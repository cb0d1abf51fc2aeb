package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

const DEFAULT_LANGUAGE = "en"

type languageInfo struct {
	Code string
	Name string
}

// supportedLanguages is listed in display order.
var supportedLanguages = []languageInfo{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Español"},
	{Code: "fr", Name: "Français"},
	{Code: "de", Name: "Deutsch"},
	{Code: "it", Name: "Italiano"},
	{Code: "pt", Name: "Português"},
	{Code: "nl", Name: "Nederlands"},
	{Code: "ru", Name: "Русский"},
	{Code: "ja", Name: "日本語"},
	{Code: "ko", Name: "한국어"},
	{Code: "zh", Name: "中文"},
	{Code: "ar", Name: "العربية"},
}

var rtlLanguages = map[string]bool{
	"ar": true,
	"he": true,
	"fa": true,
	"ur": true,
}

func IsSupported(lang string) bool {
	for _, l := range supportedLanguages {
		if l.Code == lang {
			return true
		}
	}
	return false
}

// NormalizeLanguage maps a request parameter onto a supported language code.
// "ES", "es-MX" and "es_MX" all become "es"; anything else becomes the
// default language.
func NormalizeLanguage(param string) string {
	lang := strings.ToLower(strings.TrimSpace(param))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if IsSupported(lang) {
		return lang
	}
	return DEFAULT_LANGUAGE
}

// LanguageName returns the native name of a language, or the code itself when
// it is unknown.
func LanguageName(code string) string {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l.Name
		}
	}
	return code
}

func SupportedLanguageCodes() []string {
	codes := make([]string, len(supportedLanguages))
	for i, l := range supportedLanguages {
		codes[i] = l.Code
	}
	return codes
}

var supportedMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(supportedLanguages))
	for i, l := range supportedLanguages {
		tags[i] = language.Make(l.Code)
	}
	return language.NewMatcher(tags)
}()

// FromAcceptLanguage picks the best supported language for an Accept-Language
// header value, or the default language when nothing matches.
func FromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DEFAULT_LANGUAGE
	}
	_, index, confidence := supportedMatcher.Match(tags...)
	if confidence == language.No {
		return DEFAULT_LANGUAGE
	}
	return supportedLanguages[index].Code
}
