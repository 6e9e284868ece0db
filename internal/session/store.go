// Package session keeps the per-browser token and user-info record.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/merchant-console/internal/domain"
	"github.com/spec-kit/merchant-console/internal/observability"
	"github.com/spec-kit/merchant-console/internal/repository"
)

// Persisted key names.
const (
	TokenKey    = "token"
	UserInfoKey = "userInfo"
)

// Store wraps the persisted session keys of one browser scope. It holds no copy of the
// values; every read goes to the repository.
type Store struct {
	repo   repository.SessionRepository
	scope  string
	logger *zap.Logger
}

// NewStore binds repo to scope.
func NewStore(repo repository.SessionRepository, scope string, logger *zap.Logger) *Store {
	return &Store{repo: repo, scope: scope, logger: observability.OrNop(logger)}
}

// Scope returns the browser scope the store is bound to.
func (s *Store) Scope() string {
	return s.scope
}

// SetSession persists token and then the serialized user info. When the second write fails
// the token is removed again so no half-written session remains.
func (s *Store) SetSession(ctx context.Context, token string, info domain.UserInfo) error {
	blob, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode user info: %w", err)
	}
	if err := s.repo.Set(ctx, s.scope, TokenKey, token); err != nil {
		return err
	}
	if err := s.repo.Set(ctx, s.scope, UserInfoKey, string(blob)); err != nil {
		if cleanupErr := s.repo.Delete(ctx, s.scope, TokenKey); cleanupErr != nil {
			return errors.Join(err, cleanupErr)
		}
		return err
	}
	return nil
}

// ClearSession removes both keys.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.repo.Delete(ctx, s.scope, TokenKey, UserInfoKey)
}

// Token returns the raw stored token. A repository failure is logged and reads as absent.
func (s *Store) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.repo.Get(ctx, s.scope, TokenKey)
	if err != nil {
		s.logger.Warn("session token unreadable", zap.String("scope", s.scope), zap.Error(err))
		return "", false
	}
	return token, ok && token != ""
}

// ReadCachedUserInfo returns the user info stored next to the token. It is a display cache;
// authorization always derives identity from the token.
func (s *Store) ReadCachedUserInfo(ctx context.Context) (*domain.UserInfo, bool) {
	blob, ok, err := s.repo.Get(ctx, s.scope, UserInfoKey)
	if err != nil {
		s.logger.Warn("cached user info unreadable", zap.String("scope", s.scope), zap.Error(err))
		return nil, false
	}
	if !ok || blob == "" {
		return nil, false
	}
	var info domain.UserInfo
	if err := json.Unmarshal([]byte(blob), &info); err != nil {
		s.logger.Warn("cached user info corrupted", zap.String("scope", s.scope), zap.Error(err))
		return nil, false
	}
	return &info, true
}
