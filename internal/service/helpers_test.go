package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chat-api/internal/auth"
	"chat-api/internal/domain"
	"chat-api/internal/repository"
	"chat-api/internal/repository/sqlite"
)

type recordingPublisher struct {
	mu       sync.Mutex
	sent     []domain.Message
	deleted  []domain.Message
	presence []bool
	err      error
}

func (p *recordingPublisher) MessageSent(_ context.Context, msg domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return p.err
}

func (p *recordingPublisher) MessageDeleted(_ context.Context, msg domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, msg)
	return p.err
}

func (p *recordingPublisher) Presence(_ context.Context, _ string, online bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presence = append(p.presence, online)
	return p.err
}

type fixture struct {
	users     repository.UserRepository
	messages  repository.MessageRepository
	tokens    *auth.TokenIssuer
	revoker   *auth.MemoryTokenRevoker
	publisher *recordingPublisher
	userSvc   UserService
	msgSvc    MessageService
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	messages := sqlite.NewMessageRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, messages.Init(ctx))

	tokens, err := auth.NewTokenIssuer("test-secret", 0)
	require.NoError(t, err)

	f := &fixture{
		users:     users,
		messages:  messages,
		tokens:    tokens,
		revoker:   auth.NewMemoryTokenRevoker(),
		publisher: &recordingPublisher{},
	}
	logger := quietLogger()
	f.userSvc = NewUserService(users, auth.NewPasswordHasher(bcrypt.MinCost), tokens, f.revoker, f.publisher, UserServiceConfig{Logger: logger})
	f.msgSvc = NewMessageService(messages, users, f.publisher, logger)
	return f
}

func (f *fixture) signup(t *testing.T, username string) *Session {
	t.Helper()
	s, err := f.userSvc.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return s
}
