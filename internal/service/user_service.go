package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chat-api/internal/apperr"
	"chat-api/internal/auth"
	"chat-api/internal/domain"
	"chat-api/internal/events"
	"chat-api/internal/repository"
)

// DefaultAvatarTemplate builds an avatar URL from the escaped username.
const DefaultAvatarTemplate = "https://avatar.iran.liara.run/public?username=%s"

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
	ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")
	// ErrUnauthorized covers every failed token authentication.
	ErrUnauthorized  = apperr.Unauthorized("unauthorized")
	ErrEmailTaken    = apperr.Conflict("email already registered")
	ErrUsernameTaken = apperr.Conflict("username already taken")
	ErrUserNotFound  = apperr.NotFound("user not found")
)

// SignupInput carries the fields required to register.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Session is the result of a successful signup or login.
type Session struct {
	Token  string
	Claims *auth.Claims
	User   domain.PublicUser
}

// UserService describes user lifecycle operations.
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, userID string, claims *auth.Claims) error
	Authenticate(ctx context.Context, token string) (*domain.PublicUser, *auth.Claims, error)
	GetByID(ctx context.Context, id string) (*domain.PublicUser, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.PublicUser, error)
}

// UserServiceConfig holds the optional knobs of the user service.
type UserServiceConfig struct {
	DefaultAvatar string
	Logger        *logrus.Logger
}

type userService struct {
	users     repository.UserRepository
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenIssuer
	revoker   auth.TokenRevoker
	publisher events.Publisher
	avatar    string
	logger    *logrus.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	revoker auth.TokenRevoker,
	publisher events.Publisher,
	cfg UserServiceConfig,
) UserService {
	if revoker == nil {
		revoker = auth.NewMemoryTokenRevoker()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if strings.TrimSpace(cfg.DefaultAvatar) == "" {
		cfg.DefaultAvatar = DefaultAvatarTemplate
	}
	return &userService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		revoker:   revoker,
		publisher: publisher,
		avatar:    cfg.DefaultAvatar,
		logger:    cfg.Logger,
	}
}

func (s *userService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("username, email and password are required")
	}
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, "", username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Avatar:       s.defaultAvatar(username),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("username or email already in use")
		}
		return nil, apperr.Internal(err)
	}

	return s.newSession(user)
}

func (s *userService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep response timing close to the wrong-password path
			s.hasher.Check(s.fakeHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	if !s.hasher.Check(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.SetOnline(ctx, user.ID, true); err != nil {
		return nil, apperr.Internal(err)
	}
	user.IsOnline = true
	s.announcePresence(ctx, user.ID, true)

	return s.newSession(user)
}

// Logout revokes the presented token before marking the user offline, so a
// failed revocation leaves the session exactly as it was.
func (s *userService) Logout(ctx context.Context, userID string, claims *auth.Claims) error {
	if claims != nil && claims.ID != "" {
		if err := s.revoker.Revoke(ctx, claims.ID, claims.TTL(time.Now())); err != nil {
			return apperr.Internal(fmt.Errorf("revoke token: %w", err))
		}
	}
	if err := s.users.SetOnline(ctx, userID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return apperr.Internal(err)
	}
	s.announcePresence(ctx, userID, false)
	return nil
}

func (s *userService) Authenticate(ctx context.Context, token string) (*domain.PublicUser, *auth.Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, ErrUnauthorized
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, ErrUnauthorized
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, apperr.Internal(fmt.Errorf("check token revocation: %w", err))
	}
	if revoked {
		return nil, nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, apperr.Internal(err)
	}
	public := user.Public()
	return &public, claims, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	public := user.Public()
	return &public, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.PublicUser, error) {
	if update.Empty() {
		return nil, apperr.Validation("provide at least one of username, email or avatar")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}

	var checkUsername, checkEmail string
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := domain.ValidateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			checkUsername = username
		}
		user.Username = username
	}
	if update.Email != nil {
		email := domain.NormalizeEmail(*update.Email)
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			checkEmail = email
		}
		user.Email = email
	}
	if update.Avatar != nil {
		avatar := strings.TrimSpace(*update.Avatar)
		if avatar == "" {
			avatar = s.defaultAvatar(user.Username)
		} else if err := domain.ValidateURL("avatar", avatar); err != nil {
			return nil, err
		}
		user.Avatar = avatar
	}

	if err := s.ensureAvailable(ctx, user.ID, checkUsername, checkEmail); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperr.Conflict("username or email already in use")
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	public := user.Public()
	return &public, nil
}

// ensureAvailable reports a Conflict when username or email belongs to a
// user other than selfID. Empty arguments are skipped.
func (s *userService) ensureAvailable(ctx context.Context, selfID, username, email string) error {
	if email != "" {
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrEmailTaken
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return apperr.Internal(err)
		}
	}
	if username != "" {
		existing, err := s.users.GetByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrUsernameTaken
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return apperr.Internal(err)
		}
	}
	return nil
}

func (s *userService) newSession(user *domain.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Token: token, Claims: claims, User: user.Public()}, nil
}

func (s *userService) defaultAvatar(username string) string {
	if strings.Contains(s.avatar, "%s") {
		return fmt.Sprintf(s.avatar, url.QueryEscape(username))
	}
	return s.avatar
}

func (s *userService) fakeHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.WithError(err).Warn("build dummy password hash")
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *userService) announcePresence(ctx context.Context, userID string, online bool) {
	if err := s.publisher.Presence(ctx, userID, online); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("publish presence event")
	}
}
