// Package identity turns provider subjects into pseudonymous ids and resolves
// them to local users.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
)

// HashExternalID returns the lowercase hex SHA-256 digest of a provider subject.
// Only the digest is ever stored.
func HashExternalID(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}

// UserLookup is the part of the user store the resolver needs.
type UserLookup interface {
	GetByHashedExternalID(ctx context.Context, hashed string) (*models.User, error)
}

// Resolver maps pseudonymous ids onto registered users.
type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// FindUser returns the user bound to hashed, or (nil, nil) when the id has not registered yet.
func (r *Resolver) FindUser(ctx context.Context, hashed string) (*models.User, error) {
	u, err := r.users.GetByHashedExternalID(ctx, hashed)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
