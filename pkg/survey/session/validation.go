package session

import (
	"strings"
	"unicode/utf8"

	"github.com/case-framework/survey-engine/pkg/i18n"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// formatTags maps typed questions to the validator tag their text must pass.
var formatTags = map[types.QuestionType]struct {
	tag     string
	message string
}{
	types.QUESTION_TYPE_EMAIL:  {tag: "email", message: i18n.MSG_EMAIL},
	types.QUESTION_TYPE_URL:    {tag: "url", message: i18n.MSG_URL},
	types.QUESTION_TYPE_NUMBER: {tag: "numeric", message: i18n.MSG_NUMBER},
	types.QUESTION_TYPE_PHONE:  {tag: "e164", message: i18n.MSG_PHONE},
}

// satisfiesRequired is the rule behind both the required check and
// CanProceed.
func satisfiesRequired(q types.Question, value types.AnswerValue, answered bool) bool {
	if !q.Required {
		return true
	}
	if !answered {
		return false
	}
	if q.QuestionType.IsMultiSelect() {
		return value.IsOptions() && len(value.Options) > 0
	}
	return !value.IsBlank()
}

// validateAnswer returns the messages for every rule the answer breaks, in
// rule order. An empty list means the answer is valid.
func validateAnswer(q types.Question, value types.AnswerValue, answered bool, r *i18n.Resolver) []string {
	errs := []string{}

	if !satisfiesRequired(q, value, answered) {
		errs = append(errs, r.Message(i18n.MSG_REQUIRED))
	}
	if !answered {
		return errs
	}

	rules := q.ValidationRules
	if !value.IsOptions() && value.Text != "" {
		length := utf8.RuneCountInString(value.Text)
		if rules.MinLength != nil && *rules.MinLength > 0 && length < *rules.MinLength {
			errs = append(errs, r.Message(i18n.MSG_MIN_LENGTH, *rules.MinLength))
		}
		if rules.MaxLength != nil && *rules.MaxLength > 0 && length > *rules.MaxLength {
			errs = append(errs, r.Message(i18n.MSG_MAX_LENGTH, *rules.MaxLength))
		}
	}

	if value.IsOptions() && len(value.Options) > 0 {
		selected := len(value.Options)
		if rules.MinSelected != nil && *rules.MinSelected > 0 && selected < *rules.MinSelected {
			errs = append(errs, r.Message(i18n.MSG_MIN_SELECTED, *rules.MinSelected))
		}
		if rules.MaxSelected != nil && *rules.MaxSelected > 0 && selected > *rules.MaxSelected {
			errs = append(errs, r.Message(i18n.MSG_MAX_SELECTED, *rules.MaxSelected))
		}
	}

	if format, ok := formatTags[q.QuestionType]; ok && !value.IsOptions() {
		text := strings.TrimSpace(value.Text)
		if q.QuestionType == types.QUESTION_TYPE_PHONE {
			text = phoneSeparators.Replace(text)
			if text != "" && !strings.HasPrefix(text, "+") {
				text = "+" + text
			}
		}
		if text != "" && validate.Var(text, format.tag) != nil {
			errs = append(errs, r.Message(format.message))
		}
	}
	return errs
}

// ValidateQuestion checks the current answer of q without recording errors.
func (e *Engine) ValidateQuestion(q types.Question) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked(q)
}

func (e *Engine) validateLocked(q types.Question) []string {
	value, answered := e.answers[q.ID]
	return validateAnswer(q, value, answered, e.resolver)
}

func (e *Engine) setErrorsLocked(questionID string, errs []string) {
	if len(errs) > 0 {
		e.validationErrors[questionID] = errs
		return
	}
	delete(e.validationErrors, questionID)
}

// ValidateCurrentQuestion validates and records the errors of the current
// question. Without a current question it reports true.
func (e *Engine) ValidateCurrentQuestion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateCurrentLocked()
}

func (e *Engine) validateCurrentLocked() bool {
	q := e.currentQuestionLocked()
	if q == nil {
		return true
	}
	errs := e.validateLocked(*q)
	e.setErrorsLocked(q.ID, errs)
	return len(errs) == 0
}

// validateAllLocked validates and records the errors of every question.
func (e *Engine) validateAllLocked() bool {
	allValid := true
	for _, q := range e.questions {
		errs := e.validateLocked(q)
		e.setErrorsLocked(q.ID, errs)
		if len(errs) > 0 {
			allValid = false
		}
	}
	return allValid
}
