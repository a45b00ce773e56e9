package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devdash/internal/apperror"
	"github.com/sakif/devdash/internal/model"
	"github.com/sakif/devdash/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, github_id, username, email, avatar_url, access_token, created_at, updated_at`

// Upsert inserts or updates a user based on their GitHub ID.
//
// ON CONFLICT ... DO UPDATE semantics:
//   - INSERT a new row if no row with the same github_id exists
//   - otherwise UPDATE the profile fields and token of the existing row
//
// WHY NOT INSERT OR REPLACE?
// "INSERT OR REPLACE" deletes the conflicting row and inserts a new one, which
// throws away the internal ID and created_at on every login. DO UPDATE keeps
// the row, so both survive re-authentication. The statement is atomic, so two
// concurrent logins for the same account cannot trip the UNIQUE constraint:
// whichever commits last wins.
//
// After the upsert, we SELECT the row back to populate ID and timestamps.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	if user.GitHubID == "" {
		return apperror.BadRequest("githubId", "github id must not be empty")
	}

	token, err := db.sealer.Seal(user.AccessToken)
	if err != nil {
		return apperror.StorageFailed("sealing access token", err)
	}

	now := time.Now().UTC()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.StorageFailed("beginning upsert", err)
	}
	defer tx.Rollback() // no-op once committed

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, github_id, username, email, avatar_url, access_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(github_id) DO UPDATE SET
		     username     = excluded.username,
		     email        = excluded.email,
		     avatar_url   = excluded.avatar_url,
		     access_token = excluded.access_token,
		     updated_at   = excluded.updated_at`,
		xid.New().String(),
		user.GitHubID,
		user.Username,
		user.Email,
		user.AvatarURL,
		token,
		now,
		now,
	)
	if err != nil {
		return apperror.StorageFailed(fmt.Sprintf("upserting user (githubID=%s)", user.GitHubID), err)
	}

	var stored model.User
	if err := tx.GetContext(ctx, &stored,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID,
	); err != nil {
		return apperror.StorageFailed(fmt.Sprintf("reading back user (githubID=%s)", user.GitHubID), err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.StorageFailed("committing upsert", err)
	}

	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// GetByGitHubID retrieves a user by their GitHub ID.
// Returns apperror.ErrNotFound if no user exists with that GitHub ID.
func (db *DB) GetByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	return db.getOne(ctx, "github_id", githubID)
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getOne(ctx, "id", id)
}

// getOne loads a single user by a trusted column name (never user input).
func (db *DB) getOne(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, apperror.StorageFailed(fmt.Sprintf("getting user by %s %s", column, value), err)
	}

	token, err := db.sealer.Open(u.AccessToken)
	if err != nil {
		return nil, apperror.StorageFailed("opening access token", err)
	}
	u.AccessToken = token

	return &u, nil
}
