// Package service — authentication business logic.
//
// AuthService is the business logic layer for the GitHub login. It sits
// between the HTTP handlers and the OAuth client / repository:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ IdentityExchanger (GitHub OAuth)
//
// KEY RESPONSIBILITIES:
//   - Orchestrate the OAuth callback: exchange the code, upsert the user
//   - Encapsulate all auth rules in one place, away from HTTP concerns
//   - Be easily testable with fake dependencies
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sakif/devdash/internal/apperror"
	"github.com/sakif/devdash/internal/auth"
	"github.com/sakif/devdash/internal/model"
	"github.com/sakif/devdash/internal/repository"
)

// IdentityExchanger is the GitHub side of the login, as seen by the service.
// *auth.GitHubProvider implements it.
type IdentityExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - provider  IdentityExchanger          → code → GitHub identity
//   - users     repository.UserRepository  → read/write user records
//   - logger    *slog.Logger               → structured logging
type AuthService struct {
	provider      IdentityExchanger
	users         repository.UserRepository
	logger        *slog.Logger
	retries       int
	retryInterval time.Duration
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithStoreRetries sets how many times a failed user upsert is retried.
// Zero means a single attempt.
func WithStoreRetries(n int) Option {
	return func(s *AuthService) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithRetryInterval sets the first backoff delay between upsert attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	provider IdentityExchanger,
	users repository.UserRepository,
	logger *slog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		provider:      provider,
		users:         users,
		logger:        logger,
		retries:       2,
		retryInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthURL returns the GitHub authorization URL for the given state.
func (s *AuthService) AuthURL(state string) string {
	return s.provider.AuthURL(state)
}

// CompleteGitHubLogin handles the GitHub OAuth callback.
//
//  1. Exchange the code for the user's GitHub identity (token + profile)
//  2. Upsert the user (create on first login, update on subsequent logins)
//  3. Return the stored user so the handler can redirect
//
// An empty code fails with apperror.ErrBadRequest before anything leaves the
// process. A failed exchange is an apperror.ErrAuthExchange. A store write
// that still fails after the configured retries is an apperror.ErrStorage:
// the login is not reported as successful when the user was never saved.
//
// WHAT THIS METHOD DOES NOT DO:
//   - It does NOT read HTTP requests or write redirects
//   - It does NOT issue sessions or cookies
func (s *AuthService) CompleteGitHubLogin(ctx context.Context, code string) (*model.User, error) {
	if code == "" {
		return nil, apperror.BadRequest("code", "No code provided")
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service/auth: exchanging code: %w", err)
	}

	user := &model.User{
		GitHubID:    identity.ExternalID,
		Username:    identity.Username,
		Email:       identity.Email,
		AvatarURL:   identity.AvatarURL,
		AccessToken: identity.AccessToken,
	}

	if err := s.upsertWithRetry(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// upsertWithRetry writes user, retrying transient failures with exponential
// backoff. Validation errors are not retried.
func (s *AuthService) upsertWithRetry(ctx context.Context, user *model.User) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryInterval

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.retries)), ctx)

	op := func() error {
		err := s.users.Upsert(ctx, user)
		if errors.Is(err, apperror.ErrBadRequest) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		s.logger.Warn("user upsert failed, retrying",
			slog.String("githubID", user.GitHubID),
			slog.Duration("backoff", next),
			slog.String("error", err.Error()),
		)
	}

	err := backoff.RetryNotify(op, b, notify)
	if err == nil {
		return nil
	}

	if errors.Is(err, apperror.ErrBadRequest) || errors.Is(err, apperror.ErrStorage) {
		return fmt.Errorf("service/auth: upserting user (githubID=%s): %w", user.GitHubID, err)
	}
	return apperror.StorageFailed(fmt.Sprintf("upserting user (githubID=%s)", user.GitHubID), err)
}
