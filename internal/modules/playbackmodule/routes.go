package playbackmodule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinetra/kinetra/internal/media"
)

// RegisterRoutes exposes the playback control API.
func (m *Module) RegisterRoutes(router *gin.Engine) {
	handler := &apiHandler{manager: m.manager}

	playbackGroup := router.Group("/api/playback")
	{
		playbackGroup.GET("/status", handler.handleStatus)
		playbackGroup.GET("/profile", handler.handleProfile)
		playbackGroup.POST("/play", handler.handlePlay)
		playbackGroup.POST("/pause", handler.handlePause)
		playbackGroup.POST("/unpause", handler.handleUnpause)
		playbackGroup.POST("/seek", handler.handleSeek)
		playbackGroup.POST("/stop", handler.handleStop)
	}
}

type apiHandler struct {
	manager *Manager
}

func (h *apiHandler) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.GetStatus())
}

func (h *apiHandler) handleProfile(c *gin.Context) {
	profile := h.manager.NegotiationProfile()
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no player provides a device profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type playRequest struct {
	ItemID             string `json:"itemId" binding:"required"`
	StartPositionTicks int64  `json:"startPositionTicks"`
}

func (h *apiHandler) handlePlay(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.manager.PlayItem(c.Request.Context(), req.ItemID, req.StartPositionTicks); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "playing", "itemId": req.ItemID})
}

func (h *apiHandler) handlePause(c *gin.Context) {
	h.manager.NoteInteraction()
	h.manager.Pause()
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

func (h *apiHandler) handleUnpause(c *gin.Context) {
	h.manager.NoteInteraction()
	h.manager.Unpause()
	c.JSON(http.StatusOK, gin.H{"status": "playing"})
}

type seekRequest struct {
	PositionTicks *int64 `json:"positionTicks"`
	PositionMs    int64  `json:"positionMs"`
}

func (h *apiHandler) handleSeek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.manager.NoteInteraction()
	ticks := int64(0)
	if req.PositionTicks != nil {
		ticks = *req.PositionTicks
	} else {
		ticks = media.MsToTicks(req.PositionMs)
	}
	if err := h.manager.Seek(ticks); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positionTicks": ticks})
}

func (h *apiHandler) handleStop(c *gin.Context) {
	if err := h.manager.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}
