package apihandlers

import (
	"net/http"

	"github.com/case-framework/survey-engine/pkg/i18n"
	"github.com/gin-gonic/gin"
)

func (h *HttpEndpoints) AddLanguageAPI(rg *gin.RouterGroup) {
	rg.GET("/languages", h.getLanguages) // ?lang=es
}

func (h *HttpEndpoints) getLanguages(c *gin.Context) {
	resolver := i18n.NewResolver(h.requestLanguage(c, ""))
	c.JSON(http.StatusOK, gin.H{
		"active":    resolver.Language(),
		"direction": resolver.Direction(),
		"languages": resolver.AvailableLanguages(),
	})
}
