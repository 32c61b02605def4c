package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"chat-api/internal/apperr"
	"chat-api/internal/domain"
	"chat-api/internal/service"
	"chat-api/internal/storage"
)

// writeError answers with {"error": message}. Causes of internal errors are
// logged but never sent to the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		h.logger.WithError(err).
			WithField("request_id", c.GetString(ctxRequestID)).
			Errorf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	h.writeError(c, apperr.Validation("invalid request body").Wrap(err))
}

type MessageResponse struct {
	ID         string             `json:"id"`
	SenderID   string             `json:"senderId"`
	ReceiverID string             `json:"receiverId"`
	Sender     *domain.PublicUser `json:"sender,omitempty"`
	Receiver   *domain.PublicUser `json:"receiver,omitempty"`
	Text       string             `json:"text,omitempty"`
	Image      string             `json:"image,omitempty"`
	CreatedAt  string             `json:"createdAt"`
	UpdatedAt  string             `json:"updatedAt"`
}

func messageToResponse(msg service.PopulatedMessage) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Sender:     msg.Sender,
		Receiver:   msg.Receiver,
		Text:       msg.Content.Text,
		Image:      msg.Content.Image,
		CreatedAt:  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  msg.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type UploadResponse struct {
	Key          string  `json:"key"`
	URL          string  `json:"url"`
	Size         int64   `json:"size"`
	LastModified *string `json:"lastModified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) UploadResponse {
	resp := UploadResponse{
		Key:  obj.Key,
		URL:  obj.URL,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.UTC().Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
