package i18n

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatNumber renders v with the grouping and decimal separators of the
// active language.
func (r *Resolver) FormatNumber(v float64) string {
	tag, err := language.Parse(r.Language())
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(v))
}

var monthNames = map[string][12]string{
	"en": {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	"de": {"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
	"it": {"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
	"pt": {"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
	"nl": {"januari", "februari", "maart", "april", "mei", "juni", "juli", "augustus", "september", "oktober", "november", "december"},
	"ru": {"января", "февраля", "марта", "апреля", "мая", "июня", "июля", "августа", "сентября", "октября", "ноября", "декабря"},
	"ar": {"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو", "يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر"},
}

// FormatDate renders the long form of a date (day, month name, year) in the
// active language, falling back to English.
func (r *Resolver) FormatDate(t time.Time) string {
	lang := r.Language()
	day, month, year := t.Day(), t.Month(), t.Year()

	switch lang {
	case "ja", "zh":
		return fmt.Sprintf("%d年%d月%d日", year, month, day)
	case "ko":
		return fmt.Sprintf("%d년 %d월 %d일", year, month, day)
	}

	names, ok := monthNames[lang]
	if !ok {
		lang = DEFAULT_LANGUAGE
		names = monthNames[lang]
	}
	name := names[month-1]

	switch lang {
	case "en":
		return fmt.Sprintf("%s %d, %d", name, day, year)
	case "es", "pt":
		return fmt.Sprintf("%d de %s de %d", day, name, year)
	case "de":
		return fmt.Sprintf("%d. %s %d", day, name, year)
	case "ru":
		return fmt.Sprintf("%d %s %d г.", day, name, year)
	}
	return fmt.Sprintf("%d %s %d", day, name, year)
}
