package sqlite

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

const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	sender_id TEXT NOT NULL,
	receiver_id TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	CHECK (text <> '' OR image <> ''),
	FOREIGN KEY(sender_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY(receiver_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver ON messages(sender_id, receiver_id, seq);
CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, seq);
`

const (
	selectMessageColumns = `SELECT id, sender_id, receiver_id, text, image, created_at, updated_at FROM messages`
	betweenClause        = `(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMessagesTable); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}
	return nil
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
VALUES (?, ?, ?, ?, ?, ?, ?)`,
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
	return scanMessage(r.db.QueryRowContext(ctx, selectMessageColumns+` WHERE id = ?`, id))
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return requireAffected(res, "delete message")
}

func (r *MessageRepository) ListBetween(ctx context.Context, a, b string, offset, limit int) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, selectMessageColumns+`
WHERE `+betweenClause+`
ORDER BY seq DESC
LIMIT ? OFFSET ?`,
		a, b, b, a, limit, offset,
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
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+betweenClause, a, b, b, a).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepository) ListPartners(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT partner FROM (
	SELECT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner, seq
	FROM messages
	WHERE sender_id = ? OR receiver_id = ?
) AS touching
GROUP BY partner
ORDER BY MAX(seq) DESC`,
		userID, userID, userID,
	)
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
