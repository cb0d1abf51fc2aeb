package apihandlers

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/case-framework/survey-engine/pkg/apihelpers/middlewares"
	"github.com/case-framework/survey-engine/pkg/survey/stats"
	"github.com/gin-gonic/gin"
)

func (h *HttpEndpoints) AddSurveyStatsAPI(rg *gin.RouterGroup, apiKeys []string) {
	statsGroup := rg.Group("/surveys/:surveyID/stats")
	statsGroup.Use(mw.HasValidAPIKey(apiKeys))
	{
		statsGroup.GET("", h.getSurveyStats)                   // ?date=2024-01-31
		statsGroup.POST("/reconcile", h.reconcileSurveyStats) // ?date=2024-01-31
	}
}

// statsDate reads the date query parameter, defaulting to today (UTC).
func statsDate(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		return stats.Today(), true
	}
	if _, err := time.Parse(stats.DATE_FORMAT, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted as " + stats.DATE_FORMAT})
		return "", false
	}
	return date, true
}

func (h *HttpEndpoints) getSurveyStats(c *gin.Context) {
	surveyID := c.Param("surveyID")
	date, ok := statsDate(c)
	if !ok {
		return
	}

	res := h.stats.GetStats(c.Request.Context(), surveyID, date)
	switch {
	case res.NotFound():
		c.JSON(http.StatusNotFound, gin.H{"error": "no stats for this day"})
	case res.Failed():
		slog.Error("failed to read survey stats", slog.String("surveyID", surveyID), slog.String("date", date), slog.String("error", res.Message()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stats"})
	default:
		c.JSON(http.StatusOK, res.Value)
	}
}

func (h *HttpEndpoints) reconcileSurveyStats(c *gin.Context) {
	surveyID := c.Param("surveyID")
	date, ok := statsDate(c)
	if !ok {
		return
	}

	res := h.stats.Reconcile(c.Request.Context(), surveyID, date)
	switch {
	case res.NotFound():
		c.JSON(http.StatusNotFound, gin.H{"error": "no sessions for this day"})
	case res.Failed():
		slog.Error("failed to reconcile survey stats", slog.String("surveyID", surveyID), slog.String("date", date), slog.String("error", res.Message()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reconcile stats"})
	default:
		c.JSON(http.StatusOK, res.Value)
	}
}
