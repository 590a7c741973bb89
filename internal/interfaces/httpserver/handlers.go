package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat-client/internal/domain/chat"
	"github.com/janhq/jan-chat-client/internal/domain/status"
)

type handler struct {
	svc ChatService
}

type statusResponse struct {
	Connection     status.ConnectionStatus `json:"connection"`
	Language       string                  `json:"language"`
	ReplyCount     int                     `json:"reply_count"`
	ConversationID int64                   `json:"conversation_id"`
	Messages       int                     `json:"messages"`
}

type conversationSummary struct {
	ID        int64  `json:"id"`
	StartedAt int64  `json:"ts"`
	Messages  int    `json:"messages"`
	Preview   string `json:"preview"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *handler) status(c *gin.Context) {
	cur := h.svc.Current()
	c.JSON(http.StatusOK, statusResponse{
		Connection:     h.svc.ConnectionStatus(),
		Language:       h.svc.Language(),
		ReplyCount:     h.svc.ReplyCount(),
		ConversationID: cur.ID,
		Messages:       len(cur.Messages),
	})
}

func (h *handler) setLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetLanguage(req.Language); err != nil {
		if errors.Is(err, chat.ErrUnsupportedLanguage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": h.svc.Language()})
}

func (h *handler) listConversations(c *gin.Context) {
	history := h.svc.History(c.Request.Context())
	data := make([]conversationSummary, 0, len(history))
	for _, conv := range history {
		data = append(data, conversationSummary{
			ID:        conv.ID,
			StartedAt: conv.StartedAt,
			Messages:  len(conv.Messages),
			Preview:   conv.Preview(40),
		})
	}
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}

func (h *handler) newConversation(c *gin.Context) {
	c.JSON(http.StatusCreated, h.svc.StartNew(c.Request.Context()))
}

func (h *handler) currentConversation(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Current())
}

func (h *handler) getConversation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	for _, conv := range h.svc.History(c.Request.Context()) {
		if conv.ID == id {
			c.JSON(http.StatusOK, conv)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
}

func (h *handler) loadConversation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !h.svc.LoadHistorical(c.Request.Context(), id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	c.JSON(http.StatusOK, h.svc.Current())
}

func (h *handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, ok := h.svc.Submit(c.Request.Context(), req.Text)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return 0, false
	}
	return id, true
}
