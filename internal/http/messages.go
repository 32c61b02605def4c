package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-api/internal/apperr"
	"chat-api/internal/domain"
	"chat-api/internal/service"
)

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Text       string `json:"text"`
	Image      string `json:"image"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), currentUser(c).ID, service.SendInput{
		ReceiverID: req.ReceiverID,
		Text:       req.Text,
		Image:      req.Image,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": messageToResponse(*msg)})
}

func (h *Handler) getMessages(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		h.writeError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", domain.MaxPageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}

	conv, err := h.messages.Conversation(c.Request.Context(), currentUser(c).ID, c.Param("userId"), page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]MessageResponse, len(conv.Messages))
	for i := range conv.Messages {
		resp[i] = messageToResponse(conv.Messages[i])
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp, "pagination": conv.Page})
}

func (h *Handler) conversations(c *gin.Context) {
	users, err := h.messages.Partners(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) getMessage(c *gin.Context) {
	msg, err := h.messages.Get(c.Request.Context(), c.Param("messageId"), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": messageToResponse(*msg)})
}

func (h *Handler) deleteMessage(c *gin.Context) {
	id := c.Param("messageId")
	if err := h.messages.Delete(c.Request.Context(), id, currentUser(c).ID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": id})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return v, nil
}
