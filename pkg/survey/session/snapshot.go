package session

import (
	"github.com/case-framework/survey-engine/pkg/i18n"
	"github.com/case-framework/survey-engine/pkg/survey/types"
)

func (e *Engine) localizedOr(t types.LocalizedText, defaultKey string) string {
	if t.IsZero() {
		return ""
	}
	if s := e.resolver.Text(t); s != "" {
		return s
	}
	if defaultKey == "" {
		return ""
	}
	return e.resolver.Message(defaultKey)
}

func (e *Engine) loadedSurvey() *types.Survey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.survey
}

func (e *Engine) SurveyTitle() string {
	s := e.loadedSurvey()
	if s == nil {
		return ""
	}
	return e.localizedOr(s.Title, i18n.MSG_DEFAULT_TITLE)
}

func (e *Engine) SurveyDescription() string {
	s := e.loadedSurvey()
	if s == nil {
		return ""
	}
	return e.localizedOr(s.Description, "")
}

func (e *Engine) SurveyInstructions() string {
	s := e.loadedSurvey()
	if s == nil {
		return ""
	}
	return e.localizedOr(s.Instructions, "")
}

func (e *Engine) ThankYouMessage() string {
	s := e.loadedSurvey()
	if s == nil {
		return ""
	}
	return e.localizedOr(s.ThankYouMessage, i18n.MSG_DEFAULT_THANKS)
}

func (e *Engine) QuestionText(q types.Question) string {
	return e.localizedOr(q.QuestionText, "")
}

func (e *Engine) QuestionOptions(q types.Question) []string {
	return e.resolver.Options(q.Options)
}

func (e *Engine) QuestionPlaceholder(q types.Question) string {
	return e.localizedOr(q.Placeholder, "")
}

// QuestionView is a question resolved for the session's language.
type QuestionView struct {
	ID              string                `json:"id"`
	Type            types.QuestionType    `json:"type"`
	Required        bool                  `json:"required"`
	OrderIndex      int                   `json:"orderIndex"`
	Text            string                `json:"text"`
	Options         []string              `json:"options"`
	Placeholder     string                `json:"placeholder"`
	ValidationRules types.ValidationRules `json:"validationRules"`
}

func (e *Engine) questionView(q types.Question) QuestionView {
	return QuestionView{
		ID:              q.ID,
		Type:            q.QuestionType,
		Required:        q.Required,
		OrderIndex:      q.OrderIndex,
		Text:            e.QuestionText(q),
		Options:         e.QuestionOptions(q),
		Placeholder:     e.QuestionPlaceholder(q),
		ValidationRules: q.ValidationRules,
	}
}

// Snapshot is the complete client facing state of a session.
type Snapshot struct {
	SessionID        string                       `json:"sessionId"`
	SurveyID         string                       `json:"surveyId"`
	State            State                        `json:"state"`
	Language         string                       `json:"language"`
	Direction        string                       `json:"direction"`
	LanguageClasses  []string                     `json:"languageClasses"`
	Title            string                       `json:"title"`
	Description      string                       `json:"description"`
	Instructions     string                       `json:"instructions"`
	ThankYouMessage  string                       `json:"thankYouMessage"`
	CurrentIndex     int                          `json:"currentIndex"`
	TotalQuestions   int                          `json:"totalQuestions"`
	Progress         int                          `json:"progress"`
	IsFirstQuestion  bool                         `json:"isFirstQuestion"`
	IsLastQuestion   bool                         `json:"isLastQuestion"`
	CanProceed       bool                         `json:"canProceed"`
	IsSubmitting     bool                         `json:"isSubmitting"`
	CurrentQuestion  *QuestionView                `json:"currentQuestion"`
	Answers          map[string]types.AnswerValue `json:"answers"`
	ValidationErrors map[string][]string          `json:"validationErrors"`
	Error            string                       `json:"error,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		SessionID:        e.sessionID,
		SurveyID:         e.surveyID,
		State:            e.state,
		CurrentIndex:     e.currentIndex,
		TotalQuestions:   len(e.questions),
		Progress:         e.progressLocked(),
		IsFirstQuestion:  e.isFirstLocked(),
		IsLastQuestion:   e.isLastLocked(),
		CanProceed:       e.canProceedLocked(),
		IsSubmitting:     e.isSubmitting,
		Answers:          make(map[string]types.AnswerValue, len(e.answers)),
		ValidationErrors: e.copyErrorsLocked(),
		Error:            e.lastError,
	}
	for k, v := range e.answers {
		snap.Answers[k] = v
	}
	current := e.currentQuestionLocked()
	e.mu.Unlock()

	snap.Language = e.resolver.Language()
	snap.Direction = e.resolver.Direction()
	snap.LanguageClasses = e.resolver.LanguageClasses()
	snap.Title = e.SurveyTitle()
	snap.Description = e.SurveyDescription()
	snap.Instructions = e.SurveyInstructions()
	snap.ThankYouMessage = e.ThankYouMessage()
	if current != nil && snap.State == STATE_QUESTIONS {
		view := e.questionView(*current)
		snap.CurrentQuestion = &view
	}
	return snap
}
