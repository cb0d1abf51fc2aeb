package types

import "time"

// collection names
const (
	COLLECTION_NAME_SURVEYS           = "surveys"
	COLLECTION_NAME_QUESTIONS         = "questions"
	COLLECTION_NAME_RESPONSE_SESSIONS = "response_sessions"
	COLLECTION_NAME_ANSWERS           = "answers"
	COLLECTION_NAME_SURVEY_STATS      = "survey_stats"
)

var COLLECTION_NAMES = []string{
	COLLECTION_NAME_SURVEYS,
	COLLECTION_NAME_QUESTIONS,
	COLLECTION_NAME_RESPONSE_SESSIONS,
	COLLECTION_NAME_ANSWERS,
	COLLECTION_NAME_SURVEY_STATS,
}

type Survey struct {
	ID              string        `bson:"_id,omitempty" json:"id,omitempty"`
	Title           LocalizedText `bson:"title" json:"title"`
	Description     LocalizedText `bson:"description" json:"description"`
	Instructions    LocalizedText `bson:"instructions" json:"instructions"`
	ThankYouMessage LocalizedText `bson:"thank_you_message" json:"thankYouMessage"`
	CreatedAt       time.Time     `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt       time.Time     `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

type QuestionType string

const (
	QUESTION_TYPE_SINGLE_LINE QuestionType = "single_line"
	QUESTION_TYPE_MULTI_LINE  QuestionType = "multi_line"
	QUESTION_TYPE_DROPDOWN    QuestionType = "dropdown"
	QUESTION_TYPE_CHECKBOX    QuestionType = "checkbox"
	QUESTION_TYPE_RADIO       QuestionType = "radio"
	QUESTION_TYPE_EMAIL       QuestionType = "email"
	QUESTION_TYPE_NUMBER      QuestionType = "number"
	QUESTION_TYPE_DATE        QuestionType = "date"
	QUESTION_TYPE_TIME        QuestionType = "time"
	QUESTION_TYPE_URL         QuestionType = "url"
	QUESTION_TYPE_PHONE       QuestionType = "phone"
	QUESTION_TYPE_RATING      QuestionType = "rating"
	QUESTION_TYPE_SLIDER      QuestionType = "slider"
	QUESTION_TYPE_FILE_UPLOAD QuestionType = "file_upload"
	QUESTION_TYPE_MATRIX      QuestionType = "matrix"
	QUESTION_TYPE_RANKING     QuestionType = "ranking"
)

// IsMultiSelect reports whether answers to this question type are option lists.
func (t QuestionType) IsMultiSelect() bool {
	return t == QUESTION_TYPE_CHECKBOX || t == QUESTION_TYPE_RANKING
}

type ValidationRules struct {
	MinLength   *int `bson:"min_length,omitempty" json:"minLength,omitempty"`
	MaxLength   *int `bson:"max_length,omitempty" json:"maxLength,omitempty"`
	MinSelected *int `bson:"min_selected,omitempty" json:"minSelected,omitempty"`
	MaxSelected *int `bson:"max_selected,omitempty" json:"maxSelected,omitempty"`
}

type Question struct {
	ID              string           `bson:"_id,omitempty" json:"id,omitempty"`
	SurveyID        string           `bson:"survey_id" json:"surveyId"`
	QuestionType    QuestionType     `bson:"question_type" json:"questionType"`
	Required        bool             `bson:"required" json:"required"`
	OrderIndex      int              `bson:"order_index" json:"orderIndex"`
	QuestionText    LocalizedText    `bson:"question_text" json:"questionText"`
	Options         LocalizedOptions `bson:"options" json:"options"`
	Placeholder     LocalizedText    `bson:"placeholder" json:"placeholder"`
	ValidationRules ValidationRules  `bson:"validation_rules" json:"validationRules"`
}

// SurveyDefinition is a survey with its questions, the unit of import.
type SurveyDefinition struct {
	Survey    Survey     `json:"survey"`
	Questions []Question `json:"questions"`
}
