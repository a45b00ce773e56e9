package repository

import (
	"context"

	"github.com/sakif/devdash/internal/model"
)

// UserRepository is the User Store. Implementations live in the sqlite and
// postgres subpackages.
//
// Upsert is keyed on GitHubID. It fills ID, CreatedAt and UpdatedAt on the
// passed struct; ID and CreatedAt survive re-authentication.
// The getters return apperror.ErrNotFound when no row matches.
type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByGitHubID(ctx context.Context, githubID string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}
