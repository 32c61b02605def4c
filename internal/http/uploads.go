package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-api/internal/apperr"
	"chat-api/internal/service"
)

// multipart framing allowance on top of the image itself
const uploadOverhead = 1 << 20

func (h *Handler) uploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxImageSize+uploadOverhead)

	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, service.ErrImageTooLarge)
			return
		}
		h.writeError(c, apperr.Validation("image file is required").Wrap(err))
		return
	}
	if header.Size > service.MaxImageSize {
		h.writeError(c, service.ErrImageTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, apperr.Internal(err))
		return
	}
	defer file.Close()

	url, err := h.media.UploadImage(c.Request.Context(), currentUser(c).ID, file)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Handler) listUploads(c *gin.Context) {
	objects, err := h.media.ListImages(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]UploadResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, gin.H{"uploads": resp})
}
