package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/ports"
)

const selectUser = `
SELECT id, username, display_name, COALESCE(avatar_url, '')
FROM users
`

// Schema creates the users table when it does not exist
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id           BIGSERIAL PRIMARY KEY,
	username     TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	avatar_url   TEXT
)
`

// PostgresRepository reads users from a PostgreSQL "users" table
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by db
func NewPostgresRepository(db *pgxpool.Pool) ports.UserRepository {
	return &PostgresRepository{db: db}
}

// Connect opens a pgx pool and verifies connectivity
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// FindByUsername returns the user registered under username
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.queryOne(ctx, selectUser+"WHERE username = $1", username)
}

// FindByID returns the user with id
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*core.User, error) {
	return r.queryOne(ctx, selectUser+"WHERE id = $1", id)
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, arg any) (*core.User, error) {
	var (
		u         core.User
		avatarURL string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.DisplayName, &avatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if avatarURL != "" {
		u.Avatar = &core.AvatarInfo{UserID: u.ID, AvatarURL: avatarURL}
	}
	return &u, nil
}
