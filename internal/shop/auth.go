package shop

import (
	"context"
	"errors"
	"strings"

	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 6
)

const badCredentials = "invalid username or password"

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Service) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if n := len(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, apperr.Validation("username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}

	if _, err := store.GetUserByUsername(ctx, s.db, username); err == nil {
		return nil, apperr.Conflict(database.ErrUsernameTaken)
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, translate(err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user, err := store.CreateUser(ctx, s.db, username, hash, false)
	if err != nil {
		return nil, translate(err)
	}

	return s.issue(user)
}

// Login checks the credentials. Unknown users and wrong passwords return
// the same error after the same amount of hashing work.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := store.GetUserByUsername(ctx, s.db, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			auth.CompareDummy(password)
			return nil, apperr.Unauthenticated(badCredentials)
		}
		return nil, translate(err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthenticated(badCredentials)
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	return s.issue(user)
}

func (s *Service) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = store.UpdateUserPassword(ctx, s.db, user.ID, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

func (s *Service) issue(user *models.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Authenticate resolves a bearer token to its claims. Bad, expired and
// revoked tokens are Forbidden; a missing token is the caller's concern.
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperr.New(apperr.KindForbidden, auth.ErrInvalidToken.Error(), err)
	}

	if claims.ID != "" && s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if revoked {
			return nil, apperr.Forbidden("token has been revoked")
		}
	}

	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revocations == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := store.GetUser(ctx, s.db, userID)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}
