package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chat-api/internal/domain"
	"chat-api/internal/repository"
)

const (
	selectMessageColumns = `SELECT id, sender_id, receiver_id, text, image, created_at, updated_at FROM messages`
	betweenClause        = `(sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)`
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Init(ctx context.Context) error {
	return checkTable(ctx, r.db, "messages")
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	now := time.Now().UTC()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = now
	msg.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO messages (id, sender_id, receiver_id, text, image, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Content.Text,
		msg.Content.Image,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("insert message", err)
	}
	return nil
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*domain.Message, error) {
	return scanMessage(r.db.QueryRowContext(ctx, selectMessageColumns+` WHERE id = $1`, id))
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return requireAffected(res, "delete message")
}

func (r *MessageRepository) ListBetween(ctx context.Context, a, b string, offset, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, selectMessageColumns+`
WHERE `+betweenClause+`
ORDER BY seq DESC
LIMIT $3 OFFSET $4`,
		a, b, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) CountBetween(ctx context.Context, a, b string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+betweenClause, a, b).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepository) ListPartners(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT partner FROM (
	SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS partner, seq
	FROM messages
	WHERE sender_id = $1 OR receiver_id = $1
) AS touching
GROUP BY partner
ORDER BY MAX(seq) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query partners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanMessage(row interface {
	Scan(dest ...any) error
}) (*domain.Message, error) {
	var msg domain.Message
	if err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Content.Text,
		&msg.Content.Image,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return &msg, nil
}
