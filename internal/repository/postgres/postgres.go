// Package postgres implements repository.UserRepository on PostgreSQL.
//
// It is selected when DATABASE_URL holds a postgres DSN, for deployments that
// run more than one API process against a shared database. Queries go through
// a pgxpool; schema migrations run once at startup over a database/sql handle
// (goose needs *sql.DB) that is closed again afterwards.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/xid"

	"github.com/sakif/devdash/internal/apperror"
	"github.com/sakif/devdash/internal/migrations"
	"github.com/sakif/devdash/internal/model"
	"github.com/sakif/devdash/internal/repository"
	"github.com/sakif/devdash/internal/secret"
)

var _ repository.UserRepository = (*DB)(nil)

// Pool is the subset of *pgxpool.Pool the store uses.
// pgxmock.PgxPoolIface satisfies it in tests.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type DB struct {
	pool   Pool
	sealer secret.Sealer
}

// New connects to dsn, applies migrations and returns a ready store.
func New(ctx context.Context, dsn string, sealer secret.Sealer) (*DB, error) {
	if err := migrate(ctx, dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	return NewWithPool(pool, sealer), nil
}

// NewWithPool wraps an existing pool. Migrations are the caller's concern.
func NewWithPool(pool Pool, sealer secret.Sealer) *DB {
	if sealer == nil {
		sealer = secret.Plaintext{}
	}
	return &DB{pool: pool, sealer: sealer}
}

func migrate(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres: opening migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := migrations.Up(ctx, sqlDB, migrations.Postgres); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// Upsert inserts or updates a user keyed on github_id, keeping id and
// created_at of an existing row.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	if user.GitHubID == "" {
		return apperror.BadRequest("githubId", "github id must not be empty")
	}

	token, err := db.sealer.Seal(user.AccessToken)
	if err != nil {
		return apperror.StorageFailed("sealing access token", err)
	}

	now := time.Now().UTC()
	err = db.pool.QueryRow(ctx, `
		INSERT INTO users (id, github_id, username, email, avatar_url, access_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (github_id) DO UPDATE SET
			username     = EXCLUDED.username,
			email        = EXCLUDED.email,
			avatar_url   = EXCLUDED.avatar_url,
			access_token = EXCLUDED.access_token,
			updated_at   = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, xid.New().String(), user.GitHubID, user.Username, user.Email, user.AvatarURL, token, now, now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return apperror.StorageFailed(fmt.Sprintf("upserting user (githubID=%s)", user.GitHubID), err)
	}

	return nil
}

func (db *DB) GetByGitHubID(ctx context.Context, githubID string) (*model.User, error) {
	return db.getOne(ctx, `
		SELECT id, github_id, username, email, avatar_url, access_token, created_at, updated_at
		FROM users WHERE github_id = $1
	`, githubID)
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getOne(ctx, `
		SELECT id, github_id, username, email, avatar_url, access_token, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
}

func (db *DB) getOne(ctx context.Context, query, key string) (*model.User, error) {
	var u model.User
	err := db.pool.QueryRow(ctx, query, key).Scan(
		&u.ID, &u.GitHubID, &u.Username, &u.Email, &u.AvatarURL,
		&u.AccessToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, apperror.StorageFailed("getting user "+key, err)
	}

	token, err := db.sealer.Open(u.AccessToken)
	if err != nil {
		return nil, apperror.StorageFailed("opening access token", err)
	}
	u.AccessToken = token

	return &u, nil
}
