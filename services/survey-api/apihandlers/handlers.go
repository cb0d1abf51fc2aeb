package apihandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/case-framework/survey-engine/pkg/i18n"
	"github.com/case-framework/survey-engine/pkg/survey"
	"github.com/case-framework/survey-engine/pkg/survey/session"
	"github.com/case-framework/survey-engine/pkg/survey/stats"
	"github.com/gin-gonic/gin"
)

func HealthCheckHandle(c *gin.Context) {
	serviceInfos := make(map[string]interface{})
	infos, err := os.ReadFile("serviceInfos.json")
	if err != nil {
		slog.Debug("Error reading serviceInfos.json", slog.String("error", err.Error()))
	} else if err := json.Unmarshal(infos, &serviceInfos); err != nil {
		slog.Debug("Error unmarshalling serviceInfos.json", slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"serviceInfos": serviceInfos,
	})
}

type HttpEndpoints struct {
	registry        *session.Registry
	repository      *survey.Repository
	stats           *stats.Aggregator
	defaultLanguage string
}

func NewHTTPHandler(
	registry *session.Registry,
	repository *survey.Repository,
	stats *stats.Aggregator,
	defaultLanguage string,
) *HttpEndpoints {
	if defaultLanguage == "" {
		defaultLanguage = i18n.DEFAULT_LANGUAGE
	}
	return &HttpEndpoints{
		registry:        registry,
		repository:      repository,
		stats:           stats,
		defaultLanguage: defaultLanguage,
	}
}

// requestLanguage takes the language from an explicit value, the lang query
// parameter or the Accept-Language header, in that order.
func (h *HttpEndpoints) requestLanguage(c *gin.Context, explicit string) string {
	if explicit != "" {
		return i18n.NormalizeLanguage(explicit)
	}
	if lang := c.Query("lang"); lang != "" {
		return i18n.NormalizeLanguage(lang)
	}
	if header := c.GetHeader("Accept-Language"); header != "" {
		return i18n.FromAcceptLanguage(header)
	}
	return h.defaultLanguage
}
