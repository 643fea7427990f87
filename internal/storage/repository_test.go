package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourchat/tourchat/internal/storage"
	"github.com/tourchat/tourchat/internal/trip"
	"github.com/tourchat/tourchat/internal/users"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryFn func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows   [][]any
	idx    int
	rowErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case *[]byte:
			*v = row[i].([]byte)
		}
	}
	return nil
}

func TestRepository_Load(t *testing.T) {
	prefs := trip.Preferences{Budget: 100, CityName: "Rome", Activity: trip.ActivityFoodTour}
	prefsJSON, err := json.Marshal(prefs)
	require.NoError(t, err)

	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{
				{"alice", users.HashPassword("pw1"), prefsJSON},
				{"bob", users.HashPassword("pw2"), []byte(nil)},
			}}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, prefs, got["alice"].Preferences)
	assert.Equal(t, users.HashPassword("pw1"), got["alice"].PasswordHash)
	assert.Equal(t, trip.Preferences{}, got["bob"].Preferences, "NULL preferences load as the zero set")
}

func TestRepository_Load_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("db down")
		},
	}

	_, err := storage.NewRepositoryWithQuerier(q).Load(context.Background())
	require.Error(t, err)
}

func TestRepository_Save_UpsertsEachUser(t *testing.T) {
	var upserted []string
	q := &mockQuerier{
		execFn: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			assert.Contains(t, sql, "ON CONFLICT (username)")
			upserted = append(upserted, args[0].(string))
			return pgconn.CommandTag{}, nil
		},
	}

	all := map[string]users.User{
		"alice": {Username: "alice", PasswordHash: "aa"},
		"bob":   {Username: "bob", PasswordHash: "bb"},
	}
	require.NoError(t, storage.NewRepositoryWithQuerier(q).Save(context.Background(), all))
	assert.ElementsMatch(t, []string{"alice", "bob"}, upserted)
}

func TestRepository_Save_ExecError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("constraint violation")
		},
	}

	err := storage.NewRepositoryWithQuerier(q).Save(context.Background(), map[string]users.User{
		"alice": {Username: "alice"},
	})
	require.Error(t, err)
}
