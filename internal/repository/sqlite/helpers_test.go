package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-api/internal/domain"
	"chat-api/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRepos(t *testing.T) (repository.UserRepository, repository.MessageRepository) {
	t.Helper()
	db := newTestDB(t)
	users := NewUserRepository(db)
	messages := NewMessageRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, messages.Init(context.Background()))
	return users, messages
}

func mustCreateUser(t *testing.T, users repository.UserRepository, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     username,
		Email:        username + "@x.com",
		PasswordHash: "hash",
		Avatar:       "https://example.com/" + username + ".png",
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}
