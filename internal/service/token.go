package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"caseopener-rest-api/internal/cache"
	"caseopener-rest-api/internal/logger"
	"caseopener-rest-api/internal/model"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "cot_"

	// DefaultTokenTTL is the default token lifetime
	DefaultTokenTTL = 24 * time.Hour

	// tokenKeyPrefix is prepended to the token when stored in the cache
	tokenKeyPrefix = "token:"
)

// TokenService handles session token generation and validation.
type TokenService struct {
	store cache.Cache
	ttl   time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(store cache.Cache, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{store: store, ttl: ttl}
}

// TTL returns the session lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// GenerateToken creates a new session token and stores it in the cache.
func (s *TokenService) GenerateToken(ctx context.Context, data model.TokenData) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	token := TokenPrefix + hex.EncodeToString(tokenBytes)

	data.CreatedAt = time.Now()
	data.ExpiresAt = data.CreatedAt.Add(s.ttl)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}

	if err := s.store.Set(ctx, tokenKeyPrefix+token, jsonData, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	logger.FromContext(ctx).Debug("Generated session token",
		"user_id", data.UserID, "expires_at", data.ExpiresAt)

	return token, nil
}

// ValidateToken checks if a token is valid and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if token == "" || !strings.HasPrefix(token, TokenPrefix) {
		return nil, ErrInvalidToken
	}

	key := tokenKeyPrefix + token
	jsonData, err := s.store.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}

	if time.Now().After(data.ExpiresAt) {
		_ = s.store.Delete(ctx, key)
		return nil, ErrInvalidToken
	}

	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.store.Delete(ctx, tokenKeyPrefix+token)
}

// RefreshToken extends the lifetime of an existing token.
func (s *TokenService) RefreshToken(ctx context.Context, token string) error {
	data, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	data.ExpiresAt = time.Now().Add(s.ttl)

	newJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize token data: %w", err)
	}
	return s.store.Set(ctx, tokenKeyPrefix+token, newJSON, s.ttl)
}
