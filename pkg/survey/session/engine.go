package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/i18n"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

type State string

const (
	STATE_LANDING   State = "landing"
	STATE_QUESTIONS State = "questions"
	STATE_THANK_YOU State = "thank_you"
	STATE_ERROR     State = "error"
)

const (
	DEFAULT_AUTO_SAVE_DELAY = 500 * time.Millisecond
	DEFAULT_SAVE_TIMEOUT    = 10 * time.Second
)

// Repository is the persistence the engine needs.
type Repository interface {
	GetSurvey(ctx context.Context, surveyID string) docstore.Result[types.Survey]
	GetSurveyQuestions(ctx context.Context, surveyID string) docstore.Result[[]types.Question]
	GetResponseSession(ctx context.Context, sessionID string) docstore.Result[types.ResponseSession]
	CreateResponseSession(ctx context.Context, session types.ResponseSession) docstore.Result[types.ResponseSession]
	UpdateResponseSession(ctx context.Context, sessionID string, fields bson.D) docstore.Result[bool]
	SaveAnswer(ctx context.Context, sessionID string, questionID string, value types.AnswerValue) docstore.Result[types.Answer]
	GetSessionAnswers(ctx context.Context, sessionID string) docstore.Result[[]types.Answer]
	MarkSessionCompleted(ctx context.Context, sessionID string) docstore.Result[bool]
}

// StatsRecorder receives the analytics side effects of a session. Both calls
// are best effort.
type StatsRecorder interface {
	IncrementSurveyStats(ctx context.Context, surveyID string, lang string) bool
	RecordCompletion(ctx context.Context, surveyID string) bool
}

// ClientInfo is what the respondent's client reports about itself. It is
// stored with the session and not interpreted.
type ClientInfo struct {
	UserAgent    string            `json:"userAgent"`
	Referrer     string            `json:"referrer"`
	WindowWidth  int               `json:"windowWidth"`
	WindowHeight int               `json:"windowHeight"`
	Timezone     string            `json:"timezone"`
	URLParams    map[string]string `json:"urlParams"`
}

// Engine walks one respondent through one survey.
type Engine struct {
	repo          Repository
	stats         StatsRecorder
	resolver      *i18n.Resolver
	saver         *autoSaver
	saveTimeout   time.Duration
	autoSaveDelay time.Duration
	now           func() time.Time

	mu               sync.Mutex
	state            State
	sessionID        string
	surveyID         string
	survey           *types.Survey
	questions        []types.Question
	questionIndex    map[string]int
	currentIndex     int
	answers          map[string]types.AnswerValue
	validationErrors map[string][]string
	isSubmitting     bool
	closed           bool
	lastError        string
	lastActive       time.Time
}

type Option func(*Engine)

func WithAutoSaveDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.autoSaveDelay = d
		}
	}
}

// WithSaveTimeout bounds each background answer write.
func WithSaveTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.saveTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(repo Repository, stats StatsRecorder, opts ...Option) *Engine {
	e := &Engine{
		repo:          repo,
		stats:         stats,
		resolver:      i18n.NewResolver(i18n.DEFAULT_LANGUAGE),
		saveTimeout:   DEFAULT_SAVE_TIMEOUT,
		autoSaveDelay: DEFAULT_AUTO_SAVE_DELAY,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.saver = newAutoSaver(e.autoSaveDelay, e.persistAnswer)
	e.resetLocked()
	e.lastActive = e.now()
	return e
}

func (e *Engine) resetLocked() {
	e.state = STATE_LANDING
	e.sessionID = ""
	e.surveyID = ""
	e.survey = nil
	e.questions = []types.Question{}
	e.questionIndex = map[string]int{}
	e.currentIndex = 0
	e.answers = map[string]types.AnswerValue{}
	e.validationErrors = map[string][]string{}
	e.isSubmitting = false
	e.lastError = ""
}

func (e *Engine) touchLocked() {
	e.lastActive = e.now()
}

func (e *Engine) failLocked(msg string) {
	e.state = STATE_ERROR
	e.lastError = msg
}

// InitializeSurvey loads the survey and its questions, creates the response
// session or picks up an existing one, and restores saved answers. Answers
// still waiting for their auto-save are written first. It reports false, with
// the engine in the error state, when the survey or the session cannot be
// loaded. An empty sessionID gets a fresh one.
func (e *Engine) InitializeSurvey(ctx context.Context, surveyID string, sessionID string, lang string, client ClientInfo) bool {
	lang = i18n.NormalizeLanguage(lang)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := e.saver.Flush(ctx); err != nil {
		slog.Warn("pending answers still being written", slog.String("sessionID", e.SessionID()), slog.String("error", err.Error()))
	}
	e.mu.Lock()
	e.resetLocked()
	e.sessionID = sessionID
	e.surveyID = surveyID
	e.resolver.SetLanguage(lang)
	e.touchLocked()
	e.mu.Unlock()

	surveyRes := e.repo.GetSurvey(ctx, surveyID)
	if !surveyRes.OK() {
		slog.Error("failed to load survey", slog.String("surveyID", surveyID), slog.String("error", surveyRes.Message()))
		msg := surveyRes.Message()
		if surveyRes.NotFound() {
			msg = e.resolver.Message(i18n.MSG_SURVEY_MISSING)
		}
		e.fail(msg)
		return false
	}

	questionsRes := e.repo.GetSurveyQuestions(ctx, surveyID)
	if questionsRes.Failed() {
		slog.Error("failed to load survey questions", slog.String("surveyID", surveyID), slog.String("error", questionsRes.Message()))
		e.fail(questionsRes.Message())
		return false
	}

	session, ok := e.openSession(ctx, surveyID, sessionID, lang, client)
	if !ok {
		return false
	}

	answers := map[string]types.AnswerValue{}
	questionIndex := make(map[string]int, len(questionsRes.Value))
	for i, q := range questionsRes.Value {
		questionIndex[q.ID] = i
	}
	savedRes := e.repo.GetSessionAnswers(ctx, sessionID)
	if savedRes.Failed() {
		slog.Warn("could not restore saved answers", slog.String("sessionID", sessionID), slog.String("error", savedRes.Message()))
	}
	for _, a := range savedRes.Value {
		if _, known := questionIndex[a.QuestionID]; !known {
			continue
		}
		if v, ok := a.Value(); ok {
			answers[a.QuestionID] = v
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	survey := surveyRes.Value
	e.survey = &survey
	e.questions = questionsRes.Value
	e.questionIndex = questionIndex
	e.answers = answers
	if session.IsComplete {
		e.state = STATE_THANK_YOU
	}
	e.touchLocked()

	slog.Debug("survey session initialized",
		slog.String("surveyID", surveyID),
		slog.String("sessionID", sessionID),
		slog.String("language", lang),
		slog.Int("questions", len(e.questions)),
		slog.Int("restoredAnswers", len(answers)),
	)
	return true
}

// openSession reuses a stored session or creates it. New sessions are counted
// in the day's stats.
func (e *Engine) openSession(ctx context.Context, surveyID string, sessionID string, lang string, client ClientInfo) (types.ResponseSession, bool) {
	existing := e.repo.GetResponseSession(ctx, sessionID)
	if existing.Failed() {
		slog.Error("failed to load response session", slog.String("sessionID", sessionID), slog.String("error", existing.Message()))
		e.fail(existing.Message())
		return types.ResponseSession{}, false
	}

	if existing.OK() {
		session := existing.Value
		if session.SurveyID != surveyID {
			slog.Warn("session belongs to another survey", slog.String("sessionID", sessionID), slog.String("surveyID", surveyID))
			e.fail("session belongs to another survey")
			return types.ResponseSession{}, false
		}
		if fields := refreshedSessionFields(session, lang, client); len(fields) > 0 {
			if res := e.repo.UpdateResponseSession(ctx, sessionID, fields); !res.Value {
				slog.Warn("failed to refresh response session", slog.String("sessionID", sessionID), slog.String("error", res.Message()))
			}
			session.Language = lang
		}
		return session, true
	}

	created := e.repo.CreateResponseSession(ctx, types.ResponseSession{
		ID:        sessionID,
		SurveyID:  surveyID,
		Language:  lang,
		UserAgent: client.UserAgent,
		Referrer:  client.referrer(),
		Metadata:  client.metadata(),
	})
	if !created.OK() {
		slog.Error("failed to create response session", slog.String("sessionID", sessionID), slog.String("error", created.Message()))
		e.fail(created.Message())
		return types.ResponseSession{}, false
	}

	if e.stats != nil {
		e.stats.IncrementSurveyStats(ctx, surveyID, lang)
	}
	return created.Value, true
}

func (c ClientInfo) referrer() *string {
	if c.Referrer == "" {
		return nil
	}
	r := c.Referrer
	return &r
}

func (c ClientInfo) metadata() types.SessionMetadata {
	urlParams := c.URLParams
	if urlParams == nil {
		urlParams = map[string]string{}
	}
	return types.SessionMetadata{
		WindowWidth:  c.WindowWidth,
		WindowHeight: c.WindowHeight,
		Timezone:     c.Timezone,
		URLParams:    urlParams,
	}
}

func (c ClientInfo) hasMetadata() bool {
	return c.WindowWidth > 0 || c.WindowHeight > 0 || c.Timezone != "" || len(c.URLParams) > 0
}

// refreshedSessionFields lists what a returning client changes on its stored
// session. Client details it does not report are kept.
func refreshedSessionFields(session types.ResponseSession, lang string, client ClientInfo) bson.D {
	fields := bson.D{}
	if session.Language != lang {
		fields = append(fields, bson.E{Key: "language", Value: lang})
	}
	if client.UserAgent != "" && client.UserAgent != session.UserAgent {
		fields = append(fields, bson.E{Key: "user_agent", Value: client.UserAgent})
	}
	if client.Referrer != "" {
		fields = append(fields, bson.E{Key: "referrer", Value: client.Referrer})
	}
	if client.hasMetadata() {
		fields = append(fields, bson.E{Key: "metadata", Value: client.metadata()})
	}
	return fields
}

func (e *Engine) fail(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLocked(msg)
}

// StartSurvey leaves the landing page for the first question.
func (e *Engine) StartSurvey() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != STATE_LANDING || e.survey == nil {
		return false
	}
	e.state = STATE_QUESTIONS
	e.currentIndex = 0
	e.touchLocked()
	return true
}

// UpdateAnswer records value in memory, clears the question's errors and
// schedules its save. Unknown questions are rejected.
func (e *Engine) UpdateAnswer(questionID string, value types.AnswerValue) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if _, ok := e.questionIndex[questionID]; !ok {
		return false
	}
	e.answers[questionID] = value
	delete(e.validationErrors, questionID)
	e.saver.Schedule(e.sessionID, questionID, value)
	e.touchLocked()
	return true
}

func (e *Engine) persistAnswer(sessionID string, questionID string, value types.AnswerValue) {
	if sessionID == "" || questionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.saveTimeout)
	defer cancel()
	res := e.repo.SaveAnswer(ctx, sessionID, questionID, value)
	if !res.OK() {
		slog.Error("failed to save answer", slog.String("sessionID", sessionID), slog.String("questionID", questionID), slog.String("error", res.Message()))
		e.mu.Lock()
		e.lastError = res.Message()
		e.mu.Unlock()
	}
}

// Flush writes pending answers now.
func (e *Engine) Flush(ctx context.Context) error {
	return e.saver.Flush(ctx)
}

// Close flushes pending answers and stops accepting new ones.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return e.saver.Flush(ctx)
}

// ResetSurvey returns to the landing defaults and drops unsaved answers.
// Stored documents are kept.
func (e *Engine) ResetSurvey() {
	e.saver.Cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	e.touchLocked()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

func (e *Engine) SurveyID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surveyID
}

// Initialized reports whether a survey is loaded.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.survey != nil
}

func (e *Engine) IsSubmitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isSubmitting
}

func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

func (e *Engine) LastActive() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActive
}

func (e *Engine) Resolver() *i18n.Resolver {
	return e.resolver
}

// SetLanguage switches the display language of the session.
func (e *Engine) SetLanguage(lang string) bool {
	e.mu.Lock()
	e.touchLocked()
	e.mu.Unlock()
	return e.resolver.SetLanguage(lang)
}

func (e *Engine) Answers() map[string]types.AnswerValue {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]types.AnswerValue, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

func (e *Engine) ValidationErrors() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyErrorsLocked()
}

func (e *Engine) copyErrorsLocked() map[string][]string {
	out := make(map[string][]string, len(e.validationErrors))
	for k, v := range e.validationErrors {
		out[k] = append([]string{}, v...)
	}
	return out
}

func (e *Engine) Questions() []types.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.Question{}, e.questions...)
}
