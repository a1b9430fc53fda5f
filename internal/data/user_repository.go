package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UserRepository is the forum's user directory.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, `SELECT id, username, email, created_at FROM users WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

// FindByUsername retrieves a user by exact username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, `SELECT id, username, email, created_at FROM users WHERE username = ?`, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user '%s': %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, nil
}

// FindByUsernames returns the users whose username exactly matches one of
// names. Names without a matching user are skipped.
func (r *UserRepository) FindByUsernames(ctx context.Context, names []string) ([]*User, error) {
	if len(names) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, email, created_at FROM users WHERE username IN (?) ORDER BY id`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to build username query: %w", err)
	}
	var users []*User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find users by username: %w", err)
	}
	return users, nil
}

// GetOrCreate returns the user with the given username, creating it first
// when it does not exist yet.
func (r *UserRepository) GetOrCreate(ctx context.Context, username, email string) (*User, error) {
	query := insertIgnore(r.db) + ` INTO users (username, email, created_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, username, email, Now()); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return r.FindByUsername(ctx, username)
}
