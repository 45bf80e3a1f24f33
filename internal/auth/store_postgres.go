package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (LOWER(username));
`

// PostgresUserStore persists user accounts in PostgreSQL.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

func (s *PostgresUserStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, userSchema); err != nil {
		return fmt.Errorf("ensure user schema: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505: unique_violation on the lowercased username index.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.findOne(ctx, `SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.findOne(ctx, `SELECT id, username, password_hash, role, created_at FROM users WHERE LOWER(username) = LOWER($1)`, username)
}

func (s *PostgresUserStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	var role string
	err := s.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.Role = Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
