package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// message keys
const (
	MSG_REQUIRED       = "required"
	MSG_MIN_LENGTH     = "minLength"
	MSG_MAX_LENGTH     = "maxLength"
	MSG_MIN_SELECTED   = "minSelected"
	MSG_MAX_SELECTED   = "maxSelected"
	MSG_EMAIL          = "email"
	MSG_URL            = "url"
	MSG_PHONE          = "phone"
	MSG_NUMBER         = "number"
	MSG_SURVEY_MISSING = "surveyNotFound"
	MSG_DEFAULT_TITLE  = "defaultTitle"
	MSG_DEFAULT_THANKS = "defaultThankYou"
)

var messageTable = map[language.Tag]map[string]string{
	language.English: {
		MSG_REQUIRED:       "This field is required",
		MSG_MIN_LENGTH:     "Minimum %d characters required",
		MSG_MAX_LENGTH:     "Maximum %d characters allowed",
		MSG_MIN_SELECTED:   "Please select at least %d options",
		MSG_MAX_SELECTED:   "Please select no more than %d options",
		MSG_EMAIL:          "Please enter a valid email address",
		MSG_URL:            "Please enter a valid URL",
		MSG_PHONE:          "Please enter a valid phone number",
		MSG_NUMBER:         "Please enter a valid number",
		MSG_SURVEY_MISSING: "Survey not found or no longer available",
		MSG_DEFAULT_TITLE:  "Survey",
		MSG_DEFAULT_THANKS: "Thank you for completing the survey!",
	},
	language.Spanish: {
		MSG_REQUIRED:       "Este campo es obligatorio",
		MSG_MIN_LENGTH:     "Debe tener al menos %d caracteres",
		MSG_MAX_LENGTH:     "Debe tener como máximo %d caracteres",
		MSG_MIN_SELECTED:   "Por favor selecciona al menos %d opciones",
		MSG_MAX_SELECTED:   "Por favor selecciona como máximo %d opciones",
		MSG_EMAIL:          "Por favor ingresa un email válido",
		MSG_URL:            "Por favor ingresa una URL válida",
		MSG_PHONE:          "Por favor ingresa un número de teléfono válido",
		MSG_NUMBER:         "Por favor ingresa un número válido",
		MSG_SURVEY_MISSING: "Encuesta no encontrada o ya no disponible",
		MSG_DEFAULT_TITLE:  "Encuesta",
		MSG_DEFAULT_THANKS: "¡Gracias por completar la encuesta!",
	},
	language.French: {
		MSG_REQUIRED:       "Ce champ est obligatoire",
		MSG_MIN_LENGTH:     "Au moins %d caractères requis",
		MSG_MAX_LENGTH:     "Au maximum %d caractères autorisés",
		MSG_MIN_SELECTED:   "Veuillez sélectionner au moins %d options",
		MSG_MAX_SELECTED:   "Veuillez sélectionner au plus %d options",
		MSG_EMAIL:          "Veuillez saisir une adresse e-mail valide",
		MSG_URL:            "Veuillez saisir une URL valide",
		MSG_PHONE:          "Veuillez saisir un numéro de téléphone valide",
		MSG_NUMBER:         "Veuillez saisir un nombre valide",
		MSG_SURVEY_MISSING: "Enquête introuvable ou plus disponible",
		MSG_DEFAULT_TITLE:  "Enquête",
		MSG_DEFAULT_THANKS: "Merci d'avoir répondu à l'enquête !",
	},
	language.German: {
		MSG_REQUIRED:       "Dieses Feld ist erforderlich",
		MSG_MIN_LENGTH:     "Mindestens %d Zeichen erforderlich",
		MSG_MAX_LENGTH:     "Höchstens %d Zeichen erlaubt",
		MSG_MIN_SELECTED:   "Bitte mindestens %d Optionen auswählen",
		MSG_MAX_SELECTED:   "Bitte höchstens %d Optionen auswählen",
		MSG_EMAIL:          "Bitte eine gültige E-Mail-Adresse eingeben",
		MSG_URL:            "Bitte eine gültige URL eingeben",
		MSG_PHONE:          "Bitte eine gültige Telefonnummer eingeben",
		MSG_NUMBER:         "Bitte eine gültige Zahl eingeben",
		MSG_SURVEY_MISSING: "Umfrage nicht gefunden oder nicht mehr verfügbar",
		MSG_DEFAULT_TITLE:  "Umfrage",
		MSG_DEFAULT_THANKS: "Vielen Dank für die Teilnahme an der Umfrage!",
	},
}

var messageCatalog = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messageTable {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

var catalogTags = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
}

var catalogMatcher = language.NewMatcher(catalogTags)

// Message formats a UI or validation message in the active language. Languages
// without translations get the English text.
func (r *Resolver) Message(key string, args ...interface{}) string {
	return message.NewPrinter(catalogTag(r.Language()), message.Catalog(messageCatalog)).Sprintf(key, args...)
}

func catalogTag(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, index, confidence := catalogMatcher.Match(tag)
	if confidence < language.High {
		return language.English
	}
	return catalogTags[index]
}
