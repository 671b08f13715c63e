package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/planetevo/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, auth0_id, email, username, created_at, updated_at`

// Upsert returns the user with the given identity-provider id, creating it
// when absent. Email and username are merged: a nil or empty value keeps the
// stored one, and updated_at only moves when something was supplied.
func (r *UserRepository) Upsert(ctx context.Context, auth0ID string, email, username *string) (types.User, error) {
	var user types.User
	err := retryOnUniqueViolation(func() error {
		var err error
		user, err = upsertUser(ctx, r.db, auth0ID, email, username)
		return err
	})
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE auth0_id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, auth0ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// upsertUser is a single statement, so two concurrent callers with the same
// auth0_id serialize on the unique index instead of racing a lookup.
func upsertUser(ctx context.Context, q querier, auth0ID string, email, username *string) (types.User, error) {
	const query = `
		INSERT INTO users (auth0_id, email, username)
		VALUES ($1, NULLIF($2::text, ''), NULLIF($3::text, ''))
		ON CONFLICT (auth0_id) DO UPDATE
		SET email = COALESCE(EXCLUDED.email, users.email),
			username = COALESCE(EXCLUDED.username, users.username),
			updated_at = CASE
				WHEN EXCLUDED.email IS NULL AND EXCLUDED.username IS NULL THEN users.updated_at
				ELSE CURRENT_TIMESTAMP
			END
		RETURNING ` + userColumns
	return scanUser(q.QueryRowContext(ctx, query, auth0ID, nullString(email), nullString(username)))
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user     types.User
		email    sql.NullString
		username sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Auth0ID,
		&email,
		&username,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return types.User{}, err
	}
	user.Email = stringPtr(email)
	user.Username = stringPtr(username)
	return user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
