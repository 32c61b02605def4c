package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"chat-api/internal/apperr"
)

const (
	// MaxTextLength bounds message text in characters.
	MaxTextLength = 1000
	// MaxPageSize bounds a conversation page.
	MaxPageSize = 50
)

// MessageContent is the body of a direct message. At least one of Text and
// Image is always set; use NewMessageContent to build one.
type MessageContent struct {
	Text  string
	Image string
}

// NewMessageContent trims and validates the optional text and image.
func NewMessageContent(text, image string) (MessageContent, error) {
	text = strings.TrimSpace(text)
	image = strings.TrimSpace(image)

	if text == "" && image == "" {
		return MessageContent{}, apperr.Validation("message must contain text or an image")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return MessageContent{}, apperr.Validation("message text cannot exceed %d characters", MaxTextLength)
	}
	if image != "" {
		if err := ValidateURL("image", image); err != nil {
			return MessageContent{}, err
		}
	}
	return MessageContent{Text: text, Image: image}, nil
}

func (c MessageContent) HasText() bool  { return c.Text != "" }
func (c MessageContent) HasImage() bool { return c.Image != "" }

// Message is a direct message between exactly two users.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    MessageContent
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Involves reports whether userID sent or received the message.
func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Page describes a window over a conversation. Page 1 is the most recent.
type Page struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalMessages int64 `json:"totalMessages"`
	Limit         int   `json:"limit"`
	HasNextPage   bool  `json:"hasNextPage"`
	HasPrevPage   bool  `json:"hasPrevPage"`
}

// NewPage computes page metadata. page and limit must already be clamped.
func NewPage(page, limit int, total int64) Page {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalMessages: total,
		Limit:         limit,
		HasNextPage:   page < totalPages,
		HasPrevPage:   page > 1,
	}
}

// Offset is the number of newest messages skipped before this page.
func (p Page) Offset() int {
	return (p.CurrentPage - 1) * p.Limit
}
