package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	exchange, err := h.chatService.Send(c.Request.Context(), app.SendInput{
		UserID:  userID,
		Message: req.Message,
	})
	if err != nil {
		writeError(c, err, "chat failed")
		return
	}
	response.OK(c, gin.H{
		"id":            exchange.ID,
		"reply":         exchange.Response,
		"context_count": exchange.ContextCount,
		"timestamp":     exchange.CreatedAt,
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badPayload(c)
			return
		}
		limit = v
	}
	history, err := h.chatService.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err, "get history failed")
		return
	}
	response.OK(c, gin.H{"history": history})
}

func (h *ChatHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	exchange, err := h.chatService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err, "get chat failed")
		return
	}
	response.OK(c, exchange)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.chatService.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, err, "delete chat failed")
		return
	}
	response.OK(c, gin.H{"deleted_id": id})
}
