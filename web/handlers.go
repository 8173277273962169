// Package web exposes archived conversations over HTTP.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"git.skobk.in/skobkin/telegram-conversation-saver/render"
)

type ConvoHandler struct {
	Renderer *render.Renderer
}

// NewRouter builds the gin engine serving the conversation viewer API.
func NewRouter(renderer *render.Renderer) *gin.Engine {
	r := gin.Default()

	h := &ConvoHandler{Renderer: renderer}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/convo/:id", h.GetConversation)

	return r
}

func (h *ConvoHandler) GetConversation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	conversation, err := h.Renderer.Render(uint(id))
	if err != nil {
		if errors.Is(err, render.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such conversation"})
			return
		}
		slog.Error("web: Failed to render conversation", "error", err, "conversation_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, conversation)
}
