package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"chat-api/internal/apperr"
	"chat-api/internal/domain"
	"chat-api/internal/events"
	"chat-api/internal/repository"
)

var (
	ErrMessageNotFound  = apperr.NotFound("message not found")
	ErrReceiverNotFound = apperr.NotFound("receiver not found")
	ErrMessageForbidden = apperr.Forbidden("you can only delete your own messages")
	ErrMessageHidden    = apperr.Forbidden("you are not a participant of this message")
)

// PopulatedMessage is a message with both participants resolved.
type PopulatedMessage struct {
	domain.Message
	Sender   *domain.PublicUser
	Receiver *domain.PublicUser
}

// SendInput is a message to deliver from the caller to ReceiverID.
type SendInput struct {
	ReceiverID string
	Text       string
	Image      string
}

// Conversation is one page of messages between two users, oldest first.
type Conversation struct {
	Messages []PopulatedMessage
	Page     domain.Page
}

// MessageService describes direct messaging operations. Every call takes the
// id of the authenticated user explicitly.
type MessageService interface {
	Send(ctx context.Context, senderID string, in SendInput) (*PopulatedMessage, error)
	Conversation(ctx context.Context, userID, otherID string, page, limit int) (*Conversation, error)
	Partners(ctx context.Context, userID string) ([]domain.PublicUser, error)
	Get(ctx context.Context, messageID, requesterID string) (*PopulatedMessage, error)
	Delete(ctx context.Context, messageID, requesterID string) error
}

type messageService struct {
	messages  repository.MessageRepository
	users     repository.UserRepository
	publisher events.Publisher
	logger    *logrus.Logger
}

func NewMessageService(
	messages repository.MessageRepository,
	users repository.UserRepository,
	publisher events.Publisher,
	logger *logrus.Logger,
) MessageService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &messageService{
		messages:  messages,
		users:     users,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *messageService) Send(ctx context.Context, senderID string, in SendInput) (*PopulatedMessage, error) {
	content, err := domain.NewMessageContent(in.Text, in.Image)
	if err != nil {
		return nil, err
	}
	if in.ReceiverID == "" {
		return nil, apperr.Validation("receiverId is required")
	}
	if in.ReceiverID == senderID {
		return nil, apperr.Validation("cannot send a message to yourself")
	}

	if _, err := s.users.GetByID(ctx, in.ReceiverID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, apperr.Internal(err)
	}

	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.publisher.MessageSent(ctx, *msg); err != nil {
		s.logger.WithError(err).WithField("message_id", msg.ID).Warn("publish message.sent")
	}

	populated, err := s.populate(ctx, []domain.Message{*msg})
	if err != nil {
		return nil, err
	}
	return &populated[0], nil
}

// Conversation returns page of the messages exchanged between userID and
// otherID. Page 1 is the newest window; every window is ordered oldest first.
func (s *messageService) Conversation(ctx context.Context, userID, otherID string, page, limit int) (*Conversation, error) {
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	page, limit = ClampPage(page, limit)

	total, err := s.messages.CountBetween(ctx, userID, otherID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	meta := domain.NewPage(page, limit, total)

	msgs, err := s.messages.ListBetween(ctx, userID, otherID, meta.Offset(), limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	populated, err := s.populate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &Conversation{Messages: populated, Page: meta}, nil
}

func (s *messageService) Partners(ctx context.Context, userID string) ([]domain.PublicUser, error) {
	ids, err := s.messages.ListPartners(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	users, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	partners := make([]domain.PublicUser, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			partners = append(partners, *u)
		}
	}
	return partners, nil
}

func (s *messageService) Get(ctx context.Context, messageID, requesterID string) (*PopulatedMessage, error) {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.Involves(requesterID) {
		return nil, ErrMessageHidden
	}
	populated, err := s.populate(ctx, []domain.Message{*msg})
	if err != nil {
		return nil, err
	}
	return &populated[0], nil
}

func (s *messageService) Delete(ctx context.Context, messageID, requesterID string) error {
	msg, err := s.load(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requesterID {
		return ErrMessageForbidden
	}
	if err := s.messages.Delete(ctx, msg.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMessageNotFound
		}
		return apperr.Internal(err)
	}

	if err := s.publisher.MessageDeleted(ctx, *msg); err != nil {
		s.logger.WithError(err).WithField("message_id", msg.ID).Warn("publish message.deleted")
	}
	return nil
}

func (s *messageService) load(ctx context.Context, id string) (*domain.Message, error) {
	if id == "" {
		return nil, ErrMessageNotFound
	}
	msg, err := s.messages.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, apperr.Internal(err)
	}
	return msg, nil
}

// populate resolves sender and receiver profiles with a single lookup.
func (s *messageService) populate(ctx context.Context, msgs []domain.Message) ([]PopulatedMessage, error) {
	ids := make([]string, 0, 2)
	seen := make(map[string]struct{})
	for _, m := range msgs {
		for _, id := range []string{m.SenderID, m.ReceiverID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	users, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]PopulatedMessage, len(msgs))
	for i, m := range msgs {
		out[i] = PopulatedMessage{
			Message:  m,
			Sender:   users[m.SenderID],
			Receiver: users[m.ReceiverID],
		}
	}
	return out, nil
}

func (s *messageService) lookup(ctx context.Context, ids []string) (map[string]*domain.PublicUser, error) {
	users := make(map[string]*domain.PublicUser, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	found, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range found {
		public := found[i].Public()
		users[public.ID] = &public
	}
	return users, nil
}

// ClampPage keeps page at or above 1 and limit within [1, domain.MaxPageSize].
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = 1
	case limit > domain.MaxPageSize:
		limit = domain.MaxPageSize
	}
	return page, limit
}
