package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryAuthService implements AuthService over a UserRepository.
type RepositoryAuthService struct {
	users      UserRepository
	bcryptCost int
}

func NewRepositoryAuthService(users UserRepository, bcryptCost int) *RepositoryAuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &RepositoryAuthService{users: users, bcryptCost: bcryptCost}
}

// Register creates a local account. Duplicate usernames surface as
// ErrDuplicateUsername from the unique index, so there is no read-then-
// write race with concurrent registrations.
func (s *RepositoryAuthService) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Username: username}, nil
}

// Authenticate validates local credentials against the stored hash.
// Unknown usernames and wrong passwords are indistinguishable to the
// caller; store failures propagate as-is.
func (s *RepositoryAuthService) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: u.ID, Username: u.Username}, nil
}

// FindOrCreateGoogleUser resolves a federated profile to a principal.
// The persistence step is the atomic upsert keyed by the provider id.
func (s *RepositoryAuthService) FindOrCreateGoogleUser(ctx context.Context, profile GoogleProfile) (User, error) {
	if profile.Sub == "" {
		return User{}, ErrInvalidCredentials
	}
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = profile.Sub
	}

	u, err := s.users.UpsertByGoogleID(ctx, profile.Sub, name)
	if err != nil {
		return User{}, err
	}
	return User{ID: u.ID, Username: u.Username}, nil
}
