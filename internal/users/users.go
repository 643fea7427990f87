package users

import (
	"context"

	"github.com/tourchat/tourchat/internal/trip"
)

// User is a stored credential record with its preference bag. Records are
// created at registration and mutated in place; there is no delete.
type User struct {
	Username     string           `json:"username"`
	PasswordHash string           `json:"password_hash"`
	Preferences  trip.Preferences `json:"preferences"`
}

// Repository persists the full user mapping. The store is read once at
// startup and rewritten in full on every mutation, so implementations
// only need whole-store load/save. *FileRepository and
// storage.Repository both satisfy this interface.
type Repository interface {
	Load(ctx context.Context) (map[string]User, error)
	Save(ctx context.Context, users map[string]User) error
}
