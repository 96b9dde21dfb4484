package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/completion-engine/internal/platform/ctxutil"
	"github.com/yungbote/completion-engine/internal/platform/logger"
	"github.com/yungbote/completion-engine/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/events/stream streams the caller's progress events.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "not authenticated", "code": "unauthorized"}})
		return
	}
	client := h.hub.NewClient(rd.LearnerID)
	h.hub.AddChannel(client, realtime.LearnerChannel(rd.LearnerID))
	defer h.hub.CloseClient(client)

	h.log.Debug("event stream open", "learner_id", rd.LearnerID, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
