package apihandlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/gin-gonic/gin"
)

// watchSession streams the stored response session as server-sent events:
// a "session" event for every version of the document, "error" once the
// subscription fails.
func (h *HttpEndpoints) watchSession(c *gin.Context) {
	sessionID := c.Param("sessionID")
	ctx := c.Request.Context()

	updates := make(chan *types.ResponseSession, 1)
	failures := make(chan error, 1)

	unsubscribe := h.repository.Gateway().SubscribeToDocument(ctx, types.COLLECTION_NAME_RESPONSE_SESSIONS, sessionID,
		func(doc *docstore.Document) {
			var current *types.ResponseSession
			if doc != nil {
				var s types.ResponseSession
				if err := doc.Decode(&s); err != nil {
					slog.Error("failed to decode watched session", slog.String("sessionID", sessionID), slog.String("error", err.Error()))
					return
				}
				current = &s
			}
			// keep only the newest version for slow clients
			select {
			case <-updates:
			default:
			}
			updates <- current
		},
		func(err error) {
			select {
			case failures <- err:
			default:
			}
		},
	)
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case s := <-updates:
			if s == nil {
				c.SSEvent("session", gin.H{"id": sessionID, "exists": false})
				return true
			}
			c.SSEvent("session", s)
			return true
		case err := <-failures:
			c.SSEvent("error", gin.H{"error": err.Error()})
			return false
		}
	})
}
