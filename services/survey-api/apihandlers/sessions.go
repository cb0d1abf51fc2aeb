package apihandlers

import (
	"log/slog"
	"net/http"
	"strconv"

	mw "github.com/case-framework/survey-engine/pkg/apihelpers/middlewares"
	"github.com/case-framework/survey-engine/pkg/survey/session"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/case-framework/survey-engine/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *HttpEndpoints) AddSurveySessionAPI(rg *gin.RouterGroup) {
	sessionsGroup := rg.Group("/sessions")
	{
		sessionsGroup.POST("", mw.RequirePayload(), h.initializeSession)
	}

	sessionGroup := sessionsGroup.Group("/:sessionID")
	{
		sessionGroup.GET("", h.getSession)
		sessionGroup.DELETE("", h.closeSession)
		sessionGroup.GET("/watch", h.watchSession)
		sessionGroup.PUT("/language", mw.RequirePayload(), h.setSessionLanguage)
		sessionGroup.PUT("/answers/:questionID", mw.RequirePayload(), h.updateAnswer)

		sessionGroup.POST("/start", h.startSurvey)
		sessionGroup.POST("/next", h.goToNextQuestion)
		sessionGroup.POST("/previous", h.goToPreviousQuestion)
		sessionGroup.POST("/goto/:index", h.goToQuestion)
		sessionGroup.POST("/complete", h.completeSurvey)
		sessionGroup.POST("/reset", h.resetSurvey)
	}
}

// engineFor looks up the live engine of the request's session and answers
// 404 when there is none.
func (h *HttpEndpoints) engineFor(c *gin.Context) (*session.Engine, bool) {
	sessionID := c.Param("sessionID")
	engine, ok := h.registry.Get(sessionID)
	if !ok {
		slog.Debug("session not loaded", slog.String("sessionID", sessionID))
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return engine, true
}

func (h *HttpEndpoints) initializeSession(c *gin.Context) {
	var req struct {
		SurveyID  string             `json:"surveyId" binding:"required"`
		SessionID string             `json:"sessionId"`
		Lang      string             `json:"lang"`
		Client    session.ClientInfo `json:"client"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if !utils.IsURLSafe(req.SurveyID) || !utils.IsURLSafe(req.SessionID) {
		slog.Warn("invalid survey or session id", slog.String("surveyID", req.SurveyID), slog.String("sessionID", req.SessionID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid survey or session id"})
		return
	}
	if req.Client.UserAgent == "" {
		req.Client.UserAgent = c.Request.UserAgent()
	}
	if req.Client.Referrer == "" {
		req.Client.Referrer = c.Request.Referer()
	}
	lang := h.requestLanguage(c, req.Lang)

	engine, _ := h.registry.GetOrCreate(req.SessionID)
	if !engine.InitializeSurvey(c.Request.Context(), req.SurveyID, req.SessionID, lang, req.Client) {
		errMsg := engine.LastError()
		h.registry.Remove(c.Request.Context(), req.SessionID)
		slog.Warn("failed to initialize survey session", slog.String("surveyID", req.SurveyID), slog.String("sessionID", req.SessionID), slog.String("error", errMsg))
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) getSession(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) closeSession(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if _, ok := h.engineFor(c); !ok {
		return
	}
	h.registry.Remove(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{"message": "session closed"})
}

func (h *HttpEndpoints) setSessionLanguage(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}

	var req struct {
		Lang string `json:"lang" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !engine.SetLanguage(req.Lang) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) updateAnswer(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	questionID := c.Param("questionID")

	var req struct {
		Value types.AnswerValue `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !engine.UpdateAnswer(questionID, req.Value) {
		slog.Warn("answer rejected", slog.String("sessionID", engine.SessionID()), slog.String("questionID", questionID))
		c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) startSurvey(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	if !engine.StartSurvey() {
		c.JSON(http.StatusConflict, gin.H{"error": "survey cannot be started from state " + string(engine.State())})
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

// goToNextQuestion answers 422 with the snapshot, including its validation
// errors, when the current question is invalid.
func (h *HttpEndpoints) goToNextQuestion(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	if engine.State() != session.STATE_QUESTIONS {
		c.JSON(http.StatusConflict, gin.H{"error": "survey is not in progress"})
		return
	}
	if !engine.GoToNextQuestion(c.Request.Context()) {
		c.JSON(http.StatusUnprocessableEntity, engine.Snapshot())
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) goToPreviousQuestion(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	if !engine.GoToPreviousQuestion() {
		c.JSON(http.StatusConflict, gin.H{"error": "no previous question"})
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) goToQuestion(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question index"})
		return
	}
	if !engine.GoToQuestion(index) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question index out of range"})
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

func (h *HttpEndpoints) completeSurvey(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	if engine.IsSubmitting() {
		c.JSON(http.StatusConflict, gin.H{"error": "survey is already being submitted"})
		return
	}
	if !engine.CompleteSurvey(c.Request.Context()) {
		c.JSON(http.StatusUnprocessableEntity, engine.Snapshot())
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

// resetSurvey drops unsaved answers and unloads the session. Clients start
// over with a new initialization.
func (h *HttpEndpoints) resetSurvey(c *gin.Context) {
	engine, ok := h.engineFor(c)
	if !ok {
		return
	}
	sessionID := c.Param("sessionID")
	engine.ResetSurvey()
	h.registry.Remove(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{"message": "session reset"})
}
