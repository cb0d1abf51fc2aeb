package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type SessionMetadata struct {
	WindowWidth  int               `bson:"window_width" json:"windowWidth"`
	WindowHeight int               `bson:"window_height" json:"windowHeight"`
	Timezone     string            `bson:"timezone" json:"timezone"`
	URLParams    map[string]string `bson:"url_params" json:"urlParams"`
}

type ResponseSession struct {
	ID          string          `bson:"_id,omitempty" json:"id"`
	SurveyID    string          `bson:"survey_id" json:"surveyId"`
	Language    string          `bson:"language" json:"language"`
	UserAgent   string          `bson:"user_agent" json:"userAgent"`
	Referrer    *string         `bson:"referrer" json:"referrer"`
	Metadata    SessionMetadata `bson:"metadata" json:"metadata"`
	IsComplete  bool            `bson:"is_complete" json:"isComplete"`
	CompletedAt *time.Time      `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CreatedAt   time.Time       `bson:"created_at,omitempty" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updated_at,omitempty" json:"updatedAt"`
}

type Answer struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	SessionID     string    `bson:"session_id" json:"sessionId"`
	QuestionID    string    `bson:"question_id" json:"questionId"`
	AnswerText    *string   `bson:"answer_text" json:"answerText"`
	AnswerOptions []string  `bson:"answer_options" json:"answerOptions"`
	SubmittedAt   time.Time `bson:"submitted_at,omitempty" json:"submittedAt"`
	CreatedAt     time.Time `bson:"created_at,omitempty" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updated_at,omitempty" json:"updatedAt"`
}

// Value converts a stored answer back to its in-memory form. Non-empty text wins
// over options; an answer with neither reports false.
func (a Answer) Value() (AnswerValue, bool) {
	if a.AnswerText != nil && *a.AnswerText != "" {
		return TextAnswer(*a.AnswerText), true
	}
	if a.AnswerOptions != nil {
		return OptionsAnswer(a.AnswerOptions), true
	}
	return AnswerValue{}, false
}

// AnswerValue is what a respondent entered for one question: free text or a
// list of selected options.
type AnswerValue struct {
	Text      string
	Options   []string
	isOptions bool
}

func TextAnswer(text string) AnswerValue {
	return AnswerValue{Text: text}
}

func OptionsAnswer(options []string) AnswerValue {
	if options == nil {
		options = []string{}
	}
	return AnswerValue{Options: options, isOptions: true}
}

func (a AnswerValue) IsOptions() bool {
	return a.isOptions
}

// IsBlank reports whether the value carries nothing a required rule accepts.
func (a AnswerValue) IsBlank() bool {
	if a.isOptions {
		return len(a.Options) == 0
	}
	return strings.TrimSpace(a.Text) == ""
}

// StoredFields returns the answer_text / answer_options pair persisted for it.
func (a AnswerValue) StoredFields() (*string, []string) {
	if a.isOptions {
		return nil, a.Options
	}
	text := a.Text
	return &text, nil
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.isOptions {
		return json.Marshal(a.Options)
	}
	return json.Marshal(a.Text)
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	*a = AnswerValue{}
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '[':
		var opts []string
		if err := json.Unmarshal(trimmed, &opts); err != nil {
			return err
		}
		*a = OptionsAnswer(opts)
		return nil
	case trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*a = TextAnswer(text)
		return nil
	default:
		// ratings and sliders post bare numbers or booleans
		*a = TextAnswer(string(trimmed))
		return nil
	}
}

type SurveyStats struct {
	ID                string           `bson:"_id,omitempty" json:"id"`
	SurveyID          string           `bson:"survey_id" json:"surveyId"`
	Date              string           `bson:"date" json:"date"`
	TotalSessions     int64            `bson:"total_sessions" json:"totalSessions"`
	CompletedSessions int64            `bson:"completed_sessions" json:"completedSessions"`
	CompletionRate    float64          `bson:"completion_rate" json:"completionRate"`
	LanguageBreakdown map[string]int64 `bson:"language_breakdown" json:"languageBreakdown"`
	CreatedAt         time.Time        `bson:"created_at,omitempty" json:"createdAt"`
	UpdatedAt         time.Time        `bson:"updated_at,omitempty" json:"updatedAt"`
}
