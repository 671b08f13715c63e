package services

import (
	"context"
	"errors"
	"strings"

	"github.com/planetevo/apiserver/internal/apperror"
	"github.com/planetevo/apiserver/internal/store"
	"github.com/planetevo/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Upsert(ctx context.Context, auth0ID string, email, username *string) (types.User, error)
	GetByAuth0ID(ctx context.Context, auth0ID string) (types.User, error)
}

// ResolveUserInput carries the identity-provider id and the optional
// profile fields sent after a login.
type ResolveUserInput struct {
	Auth0ID  string
	Email    *string
	Username *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Resolve returns the user for the given identity, creating it on first
// contact and merging any supplied profile fields into an existing record.
func (s *UserService) Resolve(ctx context.Context, in ResolveUserInput) (types.User, error) {
	auth0ID := strings.TrimSpace(in.Auth0ID)
	if auth0ID == "" {
		return types.User{}, apperror.ValidationFailed("auth0_id", "auth0_id is required")
	}

	user, err := s.repo.Upsert(ctx, auth0ID, trimmed(in.Email), trimmed(in.Username))
	if err != nil {
		return types.User{}, apperror.Unavailable("create/get user", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, auth0ID string) (types.User, error) {
	return lookupUser(ctx, s.repo, auth0ID)
}

func lookupUser(ctx context.Context, repo UserRepository, auth0ID string) (types.User, error) {
	auth0ID = strings.TrimSpace(auth0ID)
	if auth0ID == "" {
		return types.User{}, apperror.ValidationFailed("auth0_id", "auth0_id is required")
	}

	user, err := repo.GetByAuth0ID(ctx, auth0ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperror.NotFound("user", auth0ID)
		}
		return types.User{}, apperror.Unavailable("load user", err)
	}
	return user, nil
}

// trimmed drops surrounding whitespace; blank values count as not supplied.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
