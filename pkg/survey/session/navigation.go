package session

import (
	"context"
	"log/slog"
	"math"

	"github.com/case-framework/survey-engine/pkg/survey/types"
)

func (e *Engine) currentQuestionLocked() *types.Question {
	if e.currentIndex < 0 || e.currentIndex >= len(e.questions) {
		return nil
	}
	q := e.questions[e.currentIndex]
	return &q
}

// CurrentQuestion is nil before a survey is loaded.
func (e *Engine) CurrentQuestion() *types.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentQuestionLocked()
}

func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentIndex
}

func (e *Engine) progressLocked() int {
	if len(e.questions) == 0 {
		return 0
	}
	return int(math.Round(float64(e.currentIndex+1) / float64(len(e.questions)) * 100))
}

// Progress is the share of the survey reached, in percent.
func (e *Engine) Progress() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked()
}

func (e *Engine) isFirstLocked() bool {
	return e.currentIndex == 0
}

func (e *Engine) isLastLocked() bool {
	return e.currentIndex == len(e.questions)-1
}

func (e *Engine) IsFirstQuestion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isFirstLocked()
}

func (e *Engine) IsLastQuestion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLastLocked()
}

func (e *Engine) canProceedLocked() bool {
	q := e.currentQuestionLocked()
	if q == nil {
		return false
	}
	value, answered := e.answers[q.ID]
	return satisfiesRequired(*q, value, answered)
}

// CanProceed reports whether the current answer meets the required rule. It
// does not run the other rules.
func (e *Engine) CanProceed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canProceedLocked()
}

// GoToNextQuestion validates the current question and moves on, completing
// the survey after the last one. It reports whether validation passed; the
// outcome of a completion shows in State.
func (e *Engine) GoToNextQuestion(ctx context.Context) bool {
	e.mu.Lock()
	if e.state != STATE_QUESTIONS {
		e.mu.Unlock()
		return false
	}
	e.touchLocked()
	if !e.validateCurrentLocked() {
		e.mu.Unlock()
		return false
	}
	if len(e.questions) > 0 && !e.isLastLocked() {
		e.currentIndex++
		e.mu.Unlock()
		return true
	}
	e.mu.Unlock()

	e.CompleteSurvey(ctx)
	return true
}

// GoToPreviousQuestion steps back without validating.
func (e *Engine) GoToPreviousQuestion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchLocked()
	if e.state != STATE_QUESTIONS || e.isFirstLocked() {
		return false
	}
	e.currentIndex--
	return true
}

// GoToQuestion jumps to index; out of range indexes are ignored.
func (e *Engine) GoToQuestion(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touchLocked()
	if e.state != STATE_QUESTIONS || index < 0 || index >= len(e.questions) {
		return false
	}
	e.currentIndex = index
	return true
}

// CompleteSurvey validates every question, writes pending answers, marks the
// session complete and records the completion. Only one completion runs at a
// time; a concurrent call reports false. On failure the engine stays on the
// questions.
func (e *Engine) CompleteSurvey(ctx context.Context) bool {
	e.mu.Lock()
	if e.isSubmitting || e.state != STATE_QUESTIONS {
		e.mu.Unlock()
		return false
	}
	e.isSubmitting = true
	e.touchLocked()
	if !e.validateAllLocked() {
		e.isSubmitting = false
		e.mu.Unlock()
		return false
	}
	sessionID, surveyID := e.sessionID, e.surveyID
	e.mu.Unlock()

	if err := e.saver.Flush(ctx); err != nil {
		slog.Error("failed to write pending answers", slog.String("sessionID", sessionID), slog.String("error", err.Error()))
		e.finishSubmit(err.Error())
		return false
	}

	marked := e.repo.MarkSessionCompleted(ctx, sessionID)
	if !marked.Value {
		slog.Error("failed to mark session completed", slog.String("sessionID", sessionID), slog.String("error", marked.Message()))
		e.finishSubmit(marked.Message())
		return false
	}

	if e.stats != nil {
		e.stats.RecordCompletion(ctx, surveyID)
	}

	e.mu.Lock()
	e.state = STATE_THANK_YOU
	e.isSubmitting = false
	e.mu.Unlock()
	slog.Info("survey completed", slog.String("surveyID", surveyID), slog.String("sessionID", sessionID))
	return true
}

func (e *Engine) finishSubmit(errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isSubmitting = false
	e.lastError = errMsg
}
