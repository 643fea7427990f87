package users

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tourchat/tourchat/internal/trip"
)

var (
	// ErrUsernameTaken is returned by Register for a duplicate username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrUnknownUser is returned when a username has no record.
	ErrUnknownUser = errors.New("unknown user")
)

// HashPassword returns the hex sha256 digest of password. The digest is
// deterministic: the same password always yields the same digest.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Store holds the in-memory user mapping and writes it through the
// Repository on every mutation. It is safe for concurrent use by HTTP
// handlers.
type Store struct {
	mu    sync.Mutex
	repo  Repository
	log   *slog.Logger
	users map[string]User
}

// NewStore loads the persisted mapping through repo. An unreadable or
// corrupt store degrades to an empty mapping rather than failing startup;
// registered users would be lost, so the condition is logged.
func NewStore(ctx context.Context, repo Repository, log *slog.Logger) *Store {
	users, err := repo.Load(ctx)
	if err != nil {
		log.Error("user store unreadable, starting empty", "err", err)
		users = map[string]User{}
	}
	return &Store{repo: repo, log: log, users: users}
}

// Register creates a record for username with an empty preference bag.
// Returns ErrUsernameTaken when the name is in use. If persisting fails
// the record is not kept, so a retry is possible.
func (s *Store) Register(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUsernameTaken
	}

	s.users[username] = User{
		Username:     username,
		PasswordHash: HashPassword(password),
	}
	if err := s.repo.Save(ctx, s.users); err != nil {
		delete(s.users, username)
		return fmt.Errorf("persisting user store: %w", err)
	}
	return nil
}

// Authenticate reports whether username exists and password matches the
// stored digest. Digests are compared in constant time.
func (s *Store) Authenticate(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[username]
	if !exists {
		return false
	}
	provided := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(u.PasswordHash)) == 1
}

// SavePreferences overwrites the preference bag for an existing user and
// persists the full store. A persist failure is returned, but the
// in-memory record keeps the new preferences so the session stays
// consistent with what the user submitted.
func (s *Store) SavePreferences(ctx context.Context, username string, prefs trip.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[username]
	if !exists {
		return ErrUnknownUser
	}

	u.Preferences = prefs
	s.users[username] = u
	if err := s.repo.Save(ctx, s.users); err != nil {
		return fmt.Errorf("persisting user store: %w", err)
	}
	return nil
}

// Preferences returns a copy of the stored preference bag for username.
func (s *Store) Preferences(username string) (trip.Preferences, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.users[username]
	if !exists {
		return trip.Preferences{}, false
	}
	return u.Preferences, true
}
