package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/repository"
)

const (
	// DemoUsername and DemoPassword identify the development account.
	DemoUsername = "johndoe"
	DemoPassword = "password"
	// DemoMoney is the demo account's starting balance.
	DemoMoney int64 = 500
)

// AuthService manages accounts and sessions.
type AuthService struct {
	users         repository.UserRepository
	tokens        *TokenService
	startingMoney int64
	cost          int
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// NewAuthService creates a new auth service. New accounts start with startingMoney.
func NewAuthService(users repository.UserRepository, tokens *TokenService, startingMoney int64, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:         users,
		tokens:        tokens,
		startingMoney: startingMoney,
		cost:          bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session is returned by Login.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates an account.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	return s.createUser(ctx, username, password, s.startingMoney)
}

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistenceErr("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(ctx, model.TokenData{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("User logged in", "user_id", user.ID)
	return &Session{Token: token, User: user}, nil
}

// Logout revokes a session token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.RevokeToken(ctx, token)
}

// Authenticate resolves a session token to its data.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.TokenData, error) {
	return s.tokens.ValidateToken(ctx, token)
}

// SeedDemoUser creates the development account when it is missing.
func (s *AuthService) SeedDemoUser(ctx context.Context) error {
	_, err := s.users.GetUserByUsername(ctx, DemoUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return persistenceErr("load demo user", err)
	}

	user, err := s.createUser(ctx, DemoUsername, DemoPassword, DemoMoney)
	if errors.Is(err, ErrUsernameTaken) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Demo user created", "user_id", user.ID, "username", user.Username)
	return nil
}

func (s *AuthService) createUser(ctx context.Context, username, password string, money int64) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hash),
		Money:        money,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, persistenceErr("create user", err)
	}
	return user, nil
}
