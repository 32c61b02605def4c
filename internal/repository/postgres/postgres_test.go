package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-api/internal/domain"
	"chat-api/internal/repository"
	"chat-api/internal/repository/postgres/migrations"
)

// These tests need a disposable database; they are skipped unless
// CHAT_TEST_POSTGRES_DSN points at one.
func newTestRepos(t *testing.T) (repository.UserRepository, repository.MessageRepository) {
	t.Helper()
	dsn := os.Getenv("CHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHAT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE messages, users`)
	require.NoError(t, err)

	users := NewUserRepository(db)
	messages := NewMessageRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, messages.Init(ctx))
	return users, messages
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_init.sql", entries[0].Name())
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), " ")
	assert.Error(t, err)
}

func TestPostgresRepositories(t *testing.T) {
	users, messages := newTestRepos(t)
	ctx := context.Background()

	alice := &domain.User{Username: "alice", Email: "alice@x.com", PasswordHash: "h"}
	bob := &domain.User{Username: "bob", Email: "bob@x.com", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	dup := &domain.User{Username: "alice", Email: "other@x.com", PasswordHash: "h"}
	assert.ErrorIs(t, users.Create(ctx, dup), repository.ErrDuplicate)

	for _, text := range []string{"1", "2", "3"} {
		require.NoError(t, messages.Create(ctx, &domain.Message{
			SenderID:   alice.ID,
			ReceiverID: bob.ID,
			Content:    domain.MessageContent{Text: text},
		}))
	}

	page, err := messages.ListBetween(ctx, bob.ID, alice.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "3", page[0].Content.Text)

	n, err := messages.CountBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	partners, err := messages.ListPartners(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, partners)

	found, err := users.GetByIDs(ctx, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
