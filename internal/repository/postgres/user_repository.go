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

const selectUserColumns = `SELECT id, username, email, password_hash, avatar, is_online, created_at, updated_at FROM users`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	return checkTable(ctx, r.db, "users")
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, password_hash, avatar, is_online, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.IsOnline,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return translateWriteError("insert user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE email = $1`, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUserColumns+` WHERE username = $1`, username))
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, selectUserColumns+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET username=$1, email=$2, avatar=$3, updated_at=$4
WHERE id=$5`,
		user.Username,
		user.Email,
		user.Avatar,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return translateWriteError("update user", err)
	}
	return requireAffected(res, "update user")
}

func (r *UserRepository) SetOnline(ctx context.Context, id string, online bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_online=$1, updated_at=$2 WHERE id=$3`,
		online, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set user online: %w", err)
	}
	return requireAffected(res, "set user online")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.IsOnline,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
