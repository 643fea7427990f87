package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tourchat/tourchat/internal/trip"
	"github.com/tourchat/tourchat/internal/users"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is the postgres-backed users.Repository, selected when
// DATABASE_URL is set. Preferences live in a JSONB column so the record
// shape matches the file store exactly.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// Load reads every user record into the in-memory mapping.
func (r *Repository) Load(ctx context.Context) (map[string]users.User, error) {
	const q = `
		SELECT username, password_hash, preferences
		FROM users
	`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	loaded := map[string]users.User{}
	for rows.Next() {
		var u users.User
		var prefsJSON []byte

		if err := rows.Scan(&u.Username, &u.PasswordHash, &prefsJSON); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}

		if len(prefsJSON) > 0 {
			var prefs trip.Preferences
			if err := json.Unmarshal(prefsJSON, &prefs); err != nil {
				return nil, fmt.Errorf("unmarshaling preferences for %s: %w", u.Username, err)
			}
			u.Preferences = prefs
		}

		loaded[u.Username] = u
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return loaded, nil
}

// Save upserts every record in the mapping, preserving the whole-store
// read-modify-write contract of users.Repository. The store mutates one
// user at a time, so each call touches a handful of rows at most.
func (r *Repository) Save(ctx context.Context, all map[string]users.User) error {
	const q = `
		INSERT INTO users (username, password_hash, preferences, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    preferences   = EXCLUDED.preferences,
		    updated_at    = EXCLUDED.updated_at
	`

	for _, u := range all {
		prefsJSON, err := json.Marshal(u.Preferences)
		if err != nil {
			return fmt.Errorf("marshaling preferences for %s: %w", u.Username, err)
		}
		if _, err := r.q.Exec(ctx, q, u.Username, u.PasswordHash, prefsJSON); err != nil {
			return fmt.Errorf("upserting user %s: %w", u.Username, err)
		}
	}

	return nil
}
