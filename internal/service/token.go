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

	"github.com/rs/zerolog"

	"winshirt-sync/internal/cache"
	"winshirt-sync/internal/model"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "wst_"

	// TokenTTL is the default token lifetime
	TokenTTL = 12 * time.Hour

	// TokenKeyPrefix is the cache key prefix for tokens
	TokenKeyPrefix = "winshirt:token:"
)

// TokenService handles session token generation and validation.
type TokenService struct {
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(c cache.Cache, logger zerolog.Logger) *TokenService {
	return &TokenService{
		cache: c,
		ttl:   TokenTTL,
		now:   time.Now,
		log:   logger.With().Str("component", "tokens").Logger(),
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken creates a new session token and stores it in the cache.
func (s *TokenService) GenerateToken(ctx context.Context, data model.TokenData) (string, error) {
	raw, err := randomHex(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := TokenPrefix + raw

	data.CreatedAt = s.now()
	data.ExpiresAt = data.CreatedAt.Add(s.ttl)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token data: %w", err)
	}
	if err := s.cache.Set(ctx, TokenKeyPrefix+token, jsonData, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.log.Info().Int64("account_id", data.AccountID).Str("role", data.Role).Time("expires", data.ExpiresAt).Msg("token issued")
	return token, nil
}

// ValidateToken checks if a token is valid and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if !strings.HasPrefix(token, TokenPrefix) || len(token) == len(TokenPrefix) {
		return nil, ErrInvalidToken
	}

	key := TokenKeyPrefix + token
	jsonData, err := s.cache.Get(ctx, key)
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

	if s.now().After(data.ExpiresAt) {
		_ = s.cache.Delete(ctx, key)
		return nil, ErrInvalidToken
	}
	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, TokenKeyPrefix+token)
}

// RefreshToken extends the lifetime of an existing token.
func (s *TokenService) RefreshToken(ctx context.Context, token string) error {
	data, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}
	data.ExpiresAt = s.now().Add(s.ttl)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize token data: %w", err)
	}
	return s.cache.Set(ctx, TokenKeyPrefix+token, jsonData, s.ttl)
}
