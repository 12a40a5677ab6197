package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/transport/http/response"
)

type TopicHandler struct {
	topicService *app.TopicService
	ragService   *app.RAGService
	maxPDFBytes  int64
}

type UpsertTopicRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Content     string `json:"content" binding:"required"`
}

func NewTopicHandler(topicService *app.TopicService, ragService *app.RAGService, maxPDFBytes int64) *TopicHandler {
	if maxPDFBytes <= 0 {
		maxPDFBytes = 10 << 20
	}
	return &TopicHandler{topicService: topicService, ragService: ragService, maxPDFBytes: maxPDFBytes}
}

func (h *TopicHandler) List(c *gin.Context) {
	topics, err := h.topicService.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "list topics failed")
		return
	}
	response.OK(c, gin.H{"topics": topics})
}

func (h *TopicHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	topic, err := h.topicService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get topic failed")
		return
	}
	response.OK(c, topic)
}

// Search accepts the query as a path segment or as ?q=.
func (h *TopicHandler) Search(c *gin.Context) {
	query := c.Param("query")
	if query == "" {
		query = c.Query("q")
	}
	topics, err := h.topicService.Search(c.Request.Context(), query)
	if err != nil {
		writeError(c, err, "search topics failed")
		return
	}
	response.OK(c, gin.H{"topics": topics})
}

func (h *TopicHandler) Upsert(c *gin.Context) {
	var req UpsertTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	topic, err := h.topicService.Upsert(c.Request.Context(), app.TopicInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
	})
	if err != nil {
		writeError(c, err, "save topic failed")
		return
	}
	response.OK(c, topic)
}

func (h *TopicHandler) ImportPDF(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxPDFBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		badPayload(c)
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "file: only .pdf files are accepted")
		return
	}
	if fh.Size > h.maxPDFBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "file exceeds size limit")
		return
	}
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		badPayload(c)
		return
	}
	defer f.Close()

	topic, err := h.topicService.ImportPDF(c.Request.Context(), title, c.PostForm("description"), f)
	if err != nil {
		writeError(c, err, "import pdf failed")
		return
	}
	response.OK(c, topic)
}

func (h *TopicHandler) Reindex(c *gin.Context) {
	if err := h.topicService.Reindex(c.Request.Context()); err != nil {
		writeError(c, err, "reindex failed")
		return
	}
	response.OK(c, h.ragService.Stats())
}

// IndexStats reports the state of the semantic index.
func (h *TopicHandler) IndexStats(c *gin.Context) {
	response.OK(c, h.ragService.Stats())
}
