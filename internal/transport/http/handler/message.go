package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/transport/http/response"
)

type MessageHandler struct {
	messageService *app.MessageService
	maxUpload      int64
}

type SendDirectMessageRequest struct {
	ReceiverID uint   `json:"receiver_id" form:"receiver_id" binding:"required,gt=0"`
	Message    string `json:"message" form:"message"`
}

func NewMessageHandler(messageService *app.MessageService, maxUpload int64) *MessageHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &MessageHandler{messageService: messageService, maxUpload: maxUpload}
}

// Send accepts JSON, or multipart form data with an optional "file" part.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)

	var req SendDirectMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		badPayload(c)
		return
	}
	input := app.SendDirectInput{SenderID: userID, ReceiverID: req.ReceiverID, Body: req.Message}

	if fh, err := c.FormFile("file"); err == nil {
		if fh.Size > h.maxUpload {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file exceeds size limit")
			return
		}
		f, err := fh.Open()
		if err != nil {
			badPayload(c)
			return
		}
		defer f.Close()
		input.Attachment = &app.Attachment{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}
	}

	msg, err := h.messageService.Send(c.Request.Context(), input)
	if err != nil {
		writeError(c, err, "send message failed")
		return
	}
	response.Created(c, gin.H{"success": true, "message_id": msg.ID, "message": msg})
}

func (h *MessageHandler) Conversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.messageService.Conversation(c.Request.Context(), userID, otherID)
	if err != nil {
		writeError(c, err, "get messages failed")
		return
	}
	response.OK(c, gin.H{"messages": msgs})
}

func (h *MessageHandler) Inbox(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entries, err := h.messageService.Inbox(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "get inbox failed")
		return
	}
	response.OK(c, gin.H{"conversations": entries})
}

func (h *MessageHandler) Attachment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	msg, rc, err := h.messageService.OpenAttachment(c.Request.Context(), userID, messageID)
	if err != nil {
		writeError(c, err, "open attachment failed")
		return
	}
	defer rc.Close()

	contentType := msg.AttachmentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(msg.AttachmentSize, 10))
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": msg.AttachmentName}))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		_ = c.Error(fmt.Errorf("stream attachment %d failed: %w", messageID, err))
	}
}
