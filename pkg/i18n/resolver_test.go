package i18n

import (
	"testing"
	"time"

	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		param string
		want  string
	}{
		{param: "es", want: "es"},
		{param: "ES", want: "es"},
		{param: "es-MX", want: "es"},
		{param: "pt_BR", want: "pt"},
		{param: " ar ", want: "ar"},
		{param: "he", want: "en"},
		{param: "", want: "en"},
		{param: "klingon", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLanguage(tt.param))
		})
	}
}

func TestResolverText(t *testing.T) {
	tests := []struct {
		name     string
		lang     string
		text     types.LocalizedText
		fallback string
		want     string
	}{
		{name: "plain string", lang: "es", text: types.Plain("Hi"), fallback: "en", want: "Hi"},
		{name: "active language", lang: "es", text: types.Text("en", "Hello", "es", "Hola"), fallback: "en", want: "Hola"},
		{name: "fallback language", lang: "fr", text: types.Text("es", "Hola", "en", "Hello"), fallback: "en", want: "Hello"},
		{name: "custom fallback", lang: "fr", text: types.Text("en", "Hello", "de", "Hallo"), fallback: "de", want: "Hallo"},
		{name: "first entry", lang: "fr", text: types.Text("ja", "こんにちは", "es", "Hola"), fallback: "en", want: "こんにちは"},
		{name: "empty active counts as missing", lang: "es", text: types.Text("es", "", "en", "Hello"), fallback: "en", want: "Hello"},
		{name: "empty mapping", lang: "en", text: types.Text(), fallback: "en", want: ""},
		{name: "zero value", lang: "en", text: types.LocalizedText{}, fallback: "en", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.lang)
			assert.Equal(t, tt.want, r.TextWithFallback(tt.text, tt.fallback))
		})
	}
}

func TestResolversAreIndependent(t *testing.T) {
	es := NewResolver("es")
	fr := NewResolver("fr")
	text := types.Text("en", "Hello", "es", "Hola", "fr", "Bonjour")

	assert.Equal(t, "Hola", es.Text(text))
	assert.Equal(t, "Bonjour", fr.Text(text))

	assert.True(t, es.SetLanguage("fr"))
	assert.False(t, fr.SetLanguage("tlh"))
	assert.Equal(t, "fr", fr.Language())
	assert.Equal(t, "Bonjour", es.Text(text))
}

func TestResolverOptions(t *testing.T) {
	r := NewResolver("es")
	assert.Equal(t, []string{"Sí", "No"}, r.Options(types.Translations(
		types.LocalizedEntry[[]string]{Lang: "en", Value: []string{"Yes", "No"}},
		types.LocalizedEntry[[]string]{Lang: "es", Value: []string{"Sí", "No"}},
	)))
	assert.Equal(t, []string{"a"}, r.Options(types.Plain([]string{"a"})))
	assert.Equal(t, []string{}, r.Options(types.LocalizedOptions{}))
}

func TestDirectionAndLanguages(t *testing.T) {
	ar := NewResolver("ar")
	assert.True(t, ar.IsRTL())
	assert.Equal(t, "rtl", ar.Direction())
	assert.Equal(t, []string{"lang-ar", "rtl"}, ar.LanguageClasses())

	en := NewResolver("en")
	assert.False(t, en.IsRTL())
	assert.Equal(t, []string{"lang-en", "ltr"}, en.LanguageClasses())

	langs := ar.AvailableLanguages()
	assert.Len(t, langs, len(SupportedLanguageCodes()))
	assert.Equal(t, "en", langs[0].Code)
	active := 0
	for _, l := range langs {
		if l.IsActive {
			active++
			assert.Equal(t, "ar", l.Code)
		}
	}
	assert.Equal(t, 1, active)

	assert.Equal(t, "Español", LanguageName("es"))
	assert.Equal(t, "xx", LanguageName("xx"))
}

func TestFormatting(t *testing.T) {
	date := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		lang string
		want string
	}{
		{lang: "en", want: "March 5, 2024"},
		{lang: "es", want: "5 de marzo de 2024"},
		{lang: "de", want: "5. März 2024"},
		{lang: "fr", want: "5 mars 2024"},
		{lang: "ja", want: "2024年3月5日"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.want, NewResolver(tt.lang).FormatDate(date))
		})
	}

	assert.Equal(t, "1,234.5", NewResolver("en").FormatNumber(1234.5))
	assert.Equal(t, "1.234,5", NewResolver("de").FormatNumber(1234.5))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "This field is required", NewResolver("en").Message(MSG_REQUIRED))
	assert.Equal(t, "Este campo es obligatorio", NewResolver("es").Message(MSG_REQUIRED))
	assert.Equal(t, "Minimum 3 characters required", NewResolver("en").Message(MSG_MIN_LENGTH, 3))
	assert.Equal(t, "Höchstens 5 Zeichen erlaubt", NewResolver("de").Message(MSG_MAX_LENGTH, 5))
	// no catalog entries for Japanese
	assert.Equal(t, "This field is required", NewResolver("ja").Message(MSG_REQUIRED))
}

func TestFromAcceptLanguage(t *testing.T) {
	assert.Equal(t, "fr", FromAcceptLanguage("fr-CH, fr;q=0.9, en;q=0.8"))
	assert.Equal(t, "de", FromAcceptLanguage("de-AT"))
	assert.Equal(t, "es", FromAcceptLanguage("it;q=0.1, es;q=0.5"))
	assert.Equal(t, "en", FromAcceptLanguage(""))
	assert.Equal(t, "en", FromAcceptLanguage(";;;"))
}
