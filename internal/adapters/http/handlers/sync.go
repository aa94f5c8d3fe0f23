package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Syncer runs sync cycles. Implemented by *app.SyncCoordinator.
type Syncer interface {
	Sync(ctx context.Context, trigger domain.SyncTrigger) (app.SyncResult, error)
	State() app.SyncState
}

// SyncHandler serves manual sync requests.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

type syncStateResponse struct {
	State string `json:"state"`
}

// Sync handles POST /api/v1/sync by running one manual cycle.
func (h *SyncHandler) Sync(c *gin.Context) {
	result, err := h.syncer.Sync(c.Request.Context(), domain.TriggerManual)
	if err != nil {
		dto.RespondError(c, err)
		return
	}

	var message string
	if n := len(result.Merged); n > 0 {
		message = app.SyncedMessage(n)
	}

	c.JSON(http.StatusOK, dto.FromSyncResult(result, message))
}

// State handles GET /api/v1/sync.
func (h *SyncHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, syncStateResponse{State: string(h.syncer.State())})
}

// Register mounts the routes on the /api/v1 group.
func (h *SyncHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/sync", h.State)
	rg.POST("/sync", h.Sync)
}
