package types

import "time"

// User represents a player known to the game.
// Identity is owned by the external identity provider; the service only
// mirrors the provider's subject identifier and optional profile fields.
type User struct {
	// ID is the surrogate identifier assigned by the database.
	ID int64 `json:"id" db:"id"`

	// Auth0ID is the identity provider's subject identifier.
	// Exactly one user exists per Auth0ID and it never changes.
	Auth0ID string `json:"auth0_id" db:"auth0_id"`

	// Email is the player's email address, if the client supplied one.
	Email *string `json:"email" db:"email"`

	// Username is the player's display name, if the client supplied one.
	// It is what the leaderboard shows.
	Username *string `json:"username" db:"username"`

	// CreatedAt is the timestamp when the user was first seen.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent profile change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
