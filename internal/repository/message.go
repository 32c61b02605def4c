package repository

import (
	"context"

	"chat-api/internal/domain"
)

// MessageRepository manages direct messages.
type MessageRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, msg *domain.Message) error
	Get(ctx context.Context, id string) (*domain.Message, error)
	Delete(ctx context.Context, id string) error
	// ListBetween returns up to limit messages exchanged between a and b in
	// either direction, newest first, skipping the newest offset messages.
	ListBetween(ctx context.Context, a, b string, offset, limit int) ([]domain.Message, error)
	CountBetween(ctx context.Context, a, b string) (int64, error)
	// ListPartners returns the distinct ids userID has exchanged messages
	// with, most recent activity first.
	ListPartners(ctx context.Context, userID string) ([]string, error)
}
