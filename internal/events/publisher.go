// Package events announces chat activity to other processes, such as a
// realtime gateway pushing new messages to connected clients.
package events

import (
	"context"
	"time"

	"chat-api/internal/domain"
)

// MessageEvent is the payload of message.sent and message.deleted.
type MessageEvent struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PresenceEvent is the payload of user.presence.
type PresenceEvent struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	At       time.Time `json:"at"`
}

// Publisher emits chat events. Implementations must be safe for concurrent use.
type Publisher interface {
	MessageSent(ctx context.Context, msg domain.Message) error
	MessageDeleted(ctx context.Context, msg domain.Message) error
	Presence(ctx context.Context, userID string, online bool) error
}

func newMessageEvent(msg domain.Message) MessageEvent {
	return MessageEvent{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Text:       msg.Content.Text,
		Image:      msg.Content.Image,
		CreatedAt:  msg.CreatedAt,
	}
}

// Noop discards every event.
type Noop struct{}

func (Noop) MessageSent(context.Context, domain.Message) error    { return nil }
func (Noop) MessageDeleted(context.Context, domain.Message) error { return nil }
func (Noop) Presence(context.Context, string, bool) error         { return nil }

var _ Publisher = Noop{}
